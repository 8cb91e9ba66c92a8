package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/jackc/pgx/v5"
)

// AuditStore persists audit entries in the audit_log table.
type AuditStore struct {
	db DBTX
}

// NewAuditStore creates an audit store.
func NewAuditStore(db DBTX) *AuditStore {
	return &AuditStore{db: db}
}

const auditColumns = `id::text, action, severity, table_key,
	COALESCE(host(ip_address), ''), COALESCE(user_agent, ''), COALESCE(row_key, ''),
	COALESCE(column_name, ''), COALESCE(old_value, ''), COALESCE(new_value, ''),
	row_data, COALESCE(rows_affected, 0), COALESCE(reason, ''), created_at`

// LogAudit writes one entry. Request metadata missing from params is taken
// from ctx.
func (a *AuditStore) LogAudit(ctx context.Context, params core.AuditLogParams) (*core.AuditEntry, error) {
	params = core.AuditParamsFromContext(ctx, params)

	var rowData []byte
	if params.RowData != nil {
		if b, err := json.Marshal(params.RowData); err == nil {
			rowData = b
		}
	}

	// Strip a port and drop unparsable addresses
	var ip *string
	if params.IPAddress != "" {
		host := params.IPAddress
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if addr, err := netip.ParseAddr(host); err == nil {
			s := addr.String()
			ip = &s
		}
	}

	row := a.db.QueryRow(ctx, `INSERT INTO audit_log
		(action, severity, table_key, ip_address, user_agent, row_key, column_name,
		 old_value, new_value, row_data, rows_affected, reason)
		VALUES ($1, $2, $3, $4::inet, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
		 NULLIF($8, ''), NULLIF($9, ''), $10, $11, NULLIF($12, ''))
		RETURNING `+auditColumns,
		string(params.Action), string(core.DetermineSeverity(params.Action)), params.TableKey,
		ip, params.UserAgent, params.RowKey, params.ColumnName,
		params.OldValue, params.NewValue, rowData, params.RowsAffected, params.Reason,
	)
	entry, err := scanAuditEntry(row)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

// List returns entries matching filter, newest first, and the total count.
func (a *AuditStore) List(ctx context.Context, filter core.AuditLogFilter) ([]core.AuditEntry, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = core.DefaultAuditLimit
	}

	wb := NewWhereBuilder()
	wb.Add("action", string(filter.Action))
	wb.Add("table_key", filter.TableKey)

	start := filter.StartTime
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	end := filter.EndTime
	if end.IsZero() {
		end = time.Now().Add(24 * time.Hour)
	}
	wb.AddTimestampRange("created_at", start, end)

	where, whereArgs := wb.Build()
	countArgs := append([]any(nil), whereArgs...)

	var total int64
	if err := a.db.QueryRow(ctx, "SELECT COUNT(*) FROM audit_log"+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := "SELECT " + auditColumns + " FROM audit_log" + where +
		" ORDER BY created_at DESC LIMIT " + wb.Arg(filter.Limit) + " OFFSET " + wb.Arg(filter.Offset)
	_, args := wb.Build()

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]core.AuditEntry, 0)
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Purge deletes entries older than before and returns how many were removed.
func (a *AuditStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := a.db.Exec(ctx, "DELETE FROM audit_log WHERE created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAuditEntry(row pgx.Row) (*core.AuditEntry, error) {
	var (
		e        core.AuditEntry
		action   string
		severity string
		rowData  []byte
	)
	err := row.Scan(&e.ID, &action, &severity, &e.TableKey,
		&e.IPAddress, &e.UserAgent, &e.RowKey,
		&e.ColumnName, &e.OldValue, &e.NewValue,
		&rowData, &e.RowsAffected, &e.Reason, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Action = core.AuditAction(action)
	e.Severity = core.AuditSeverity(severity)
	if len(rowData) > 0 {
		_ = json.Unmarshal(rowData, &e.RowData)
	}
	return &e, nil
}
