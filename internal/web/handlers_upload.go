package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/JonMunkholm/fastro/internal/backend"
	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/importer"
	"github.com/JonMunkholm/fastro/internal/logging"
	"github.com/JonMunkholm/fastro/internal/provider"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// handleOpenImport opens the CSV import form.
func (s *Server) handleOpenImport(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	err := v.table.OpenImport()
	if err == nil && (s.deps.Importer == nil || !s.deps.Importer.Enabled()) {
		v.table.CloseModal()
		err = importer.ErrNoEndpoint
	}
	if err != nil {
		provider.Notify(r.Context(), provider.Failure("Import unavailable", err))
	}
	s.patchModal(sse, r, v)
}

// handleImport forwards an uploaded CSV file to the ingestion service. The
// form posts outside of Datastar, so the outcome is flashed and the browser
// is redirected back to the table.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	back := "/tables/" + v.def.Info.Key

	res, err := s.importFile(w, r, v)
	s.deps.Metrics.Import(v.def.Info.Key, err)

	var note provider.Notification
	switch {
	case err != nil:
		note = provider.Failure("Import failed", err)
	case res.StatusURL != "":
		note = provider.ActionNotice("Import queued", "Batch job "+res.JobID+" is processing the file.", "View job", res.StatusURL)
	case res.JobID != "":
		note = provider.Info("Import queued", "Batch job "+res.JobID+" is processing the file.")
	default:
		msg := res.Message
		if msg == "" {
			msg = "The file was imported."
		}
		note = provider.Success("Import complete", msg)
	}

	if err == nil {
		v.table.CloseModal()
		v.binding.Invalidate()
		if s.deps.Hub != nil {
			s.deps.Hub.Broadcast(v.def.Info.Key)
		}
	}
	s.addFlashes(w, r, append(provider.InboxFrom(r.Context()).Drain(), note))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) importFile(w http.ResponseWriter, r *http.Request, v *tableView) (importer.Result, error) {
	if !v.def.Features.CSVImport {
		return importer.Result{}, core.ErrFeatureDisabled
	}
	if s.deps.Importer == nil || !s.deps.Importer.Enabled() {
		return importer.Result{}, importer.ErrNoEndpoint
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return importer.Result{}, importer.ErrFileTooLarge
		}
		return importer.Result{}, importer.ErrNoFile
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return importer.Result{}, importer.ErrNoFile
	}
	defer file.Close()

	skipHeader, _ := strconv.ParseBool(r.FormValue("skipHeader"))
	batch, _ := strconv.ParseBool(r.FormValue("useBatchProcessing"))

	res, err := s.deps.Importer.Import(r.Context(), importer.Request{
		Table:              v.def.Info.Key,
		Filename:           header.Filename,
		File:               file,
		Size:               header.Size,
		Delimiter:          r.FormValue("delimiter"),
		SkipHeader:         skipHeader,
		UseBatchProcessing: batch,
	})
	if err != nil {
		return importer.Result{}, err
	}

	s.audit(r, core.AuditLogParams{
		Action:   core.ActionImport,
		TableKey: v.def.Info.Key,
		NewValue: res.JobID,
		Reason:   header.Filename,
	})
	return res, nil
}

// StorageUploadResponse is the answer to a storage upload.
type StorageUploadResponse struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

// handleStorageUpload stores a file in the configured bucket. The object
// name is the optional "path" form value, or the file name.
func (s *Server) handleStorageUpload(w http.ResponseWriter, r *http.Request) {
	bucket := s.cfg.Storage.Bucket
	if s.deps.Storage == nil || bucket == "" {
		respondError(w, r, backend.ErrStorageUnavailable, http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, importer.ErrFileTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, importer.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("path"))
	if name == "" {
		name = header.Filename
	}
	upsert, _ := strconv.ParseBool(r.FormValue("upsert"))

	object, err := s.deps.Storage.Upload(r.Context(), bucket, name, file, backend.UploadOptions{
		Upsert:      upsert,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, backend.ErrObjectExists) {
			status = http.StatusConflict
		}
		respondError(w, r, err, status)
		return
	}

	s.audit(r, core.AuditLogParams{
		Action:   core.ActionUpload,
		TableKey: bucket,
		RowKey:   object,
		Reason:   header.Filename,
	})
	writeJSON(w, StorageUploadResponse{
		Bucket: bucket,
		Path:   object,
		URL:    s.deps.Storage.PublicURL(bucket, object),
	})
}

// audit records an entry for an action outside the table bindings. Failures
// are logged, not returned.
func (s *Server) audit(r *http.Request, params core.AuditLogParams) {
	if s.deps.Audit == nil {
		return
	}
	ctx := r.Context()
	if _, err := s.deps.Audit.LogAudit(ctx, core.AuditParamsFromContext(ctx, params)); err != nil {
		logging.FromContext(ctx).Error("audit log failed", "action", params.Action, "error", err)
	}
}
