package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/logging"
	"github.com/JonMunkholm/fastro/internal/web/views"
)

// auditPageSize is the number of entries per audit page.
const auditPageSize = 50

// auditFilter builds a filter from the table, action, from and to query
// parameters. Dates are YYYY-MM-DD; to is inclusive.
func auditFilter(r *http.Request) core.AuditLogFilter {
	q := r.URL.Query()
	filter := core.AuditLogFilter{
		TableKey: q.Get("table"),
		Action:   core.AuditAction(q.Get("action")),
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.StartTime = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.EndTime = t.Add(24*time.Hour - time.Second)
		}
	}
	return filter
}

// handleAuditLog renders the audit log page with filtering and pagination.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		respondError(w, r, core.ErrFeatureDisabled, http.StatusNotFound)
		return
	}
	page := parseIntParam(r, "page", 1)
	filter := auditFilter(r)
	filter.Limit = auditPageSize
	filter.Offset = (page - 1) * auditPageSize

	entries, total, err := s.deps.Audit.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	tables := make([]string, 0)
	for _, def := range core.All() {
		tables = append(tables, def.Info.Key)
	}

	params := views.AuditParams{
		Entries:    entries,
		TotalCount: total,
		Page:       page,
		TotalPages: int((total + auditPageSize - 1) / auditPageSize),
		Table:      filter.TableKey,
		Action:     string(filter.Action),
		Tables:     tables,
	}
	layout := views.PageParams{
		Title:         "Audit log",
		Groups:        navGroups(),
		Active:        "audit",
		Notifications: s.takeFlashes(w, r),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Page(layout, views.AuditLog(params)).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// AuditResponse is one page of audit entries.
type AuditResponse struct {
	Entries    []core.AuditEntry `json:"entries"`
	TotalCount int64             `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// handleAPIAudit returns audit entries as JSON. Supports limit and offset
// besides the page filters; format=csv streams every matching entry.
func (s *Server) handleAPIAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		respondError(w, r, core.ErrFeatureDisabled, http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		s.handleAuditLogExport(w, r)
		return
	}

	filter := auditFilter(r)
	filter.Limit = parseIntParam(r, "limit", core.DefaultAuditLimit)
	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off > 0 {
		filter.Offset = off
	}

	entries, total, err := s.deps.Audit.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, AuditResponse{
		Entries:    entries,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// handleAuditLogExport exports audit log entries as a streaming CSV file,
// reading them page by page.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	filter := auditFilter(r)
	filter.Limit = 1000

	timestamp := time.Now().Format("20060102_150405")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit_log_%s.csv"`, timestamp))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{
		"ID", "Timestamp", "Action", "Severity", "Table", "IP Address",
		"Row Key", "Column", "Old Value", "New Value", "Rows Affected", "Reason",
	}); err != nil {
		return
	}

	for {
		entries, _, err := s.deps.Audit.List(r.Context(), filter)
		if err != nil {
			// Headers are already sent.
			logging.FromContext(r.Context()).Error("audit export failed", "error", err)
			break
		}
		for _, e := range entries {
			csvWriter.Write([]string{
				e.ID,
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				string(e.Action),
				string(e.Severity),
				e.TableKey,
				e.IPAddress,
				e.RowKey,
				e.ColumnName,
				e.OldValue,
				e.NewValue,
				strconv.Itoa(e.RowsAffected),
				e.Reason,
			})
		}
		csvWriter.Flush()
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if len(entries) < filter.Limit {
			break
		}
		filter.Offset += len(entries)
	}
	csvWriter.Flush()
}
