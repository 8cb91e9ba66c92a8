package web

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/JonMunkholm/fastro/internal/provider"
)

// ---- selection ----

// handleToggle flips the selection of one row.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.Toggle(chiParam(r, "id"))
	notifyFailure(r, "Selection failed", err)
	s.patchGrid(sse, r, v)
}

// handleSelectAll selects every row, or clears the selection when every row
// is already selected.
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	if n := len(v.table.Selected()); n > 0 && n == v.table.Len() {
		v.table.ClearSelection()
	} else {
		notifyFailure(r, "Selection failed", v.table.SelectAll())
	}
	s.patchGrid(sse, r, v)
}

// handleClearSelection clears the selection.
func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	v.table.ClearSelection()
	s.patchGrid(sse, r, v)
}

// ---- create and edit ----

// handleOpenCreate opens the create form.
func (s *Server) handleOpenCreate(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.OpenCreate()
	notifyFailure(r, "Cannot create", err)
	s.patchModal(sse, r, v)
}

// handleSubmitCreate submits the create form. On failure the form stays
// open with the error.
func (s *Server) handleSubmitCreate(w http.ResponseWriter, r *http.Request) {
	var sig gridSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		respondError(w, r, errBadRequest, http.StatusBadRequest)
		return
	}
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.SubmitCreate(r.Context(), formValues(v.table.Modal().Form, sig.Form))
	notifyFailure(r, "Create failed", err)
	s.patchTable(sse, r, v)
}

// handleOpenEdit opens the edit form of a row.
func (s *Server) handleOpenEdit(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.OpenEdit(chiParam(r, "id"))
	notifyFailure(r, "Cannot edit", err)
	s.patchModal(sse, r, v)
}

// handleSubmitEdit submits the edit form of a row.
func (s *Server) handleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	var sig gridSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		respondError(w, r, errBadRequest, http.StatusBadRequest)
		return
	}
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.SubmitEdit(r.Context(), chiParam(r, "id"), formValues(v.table.Modal().Form, sig.Form))
	notifyFailure(r, "Update failed", err)
	s.patchTable(sse, r, v)
}

// handleEditCell saves one inline cell edit.
func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	var sig gridSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		respondError(w, r, errBadRequest, http.StatusBadRequest)
		return
	}
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.EditCell(r.Context(), chiParam(r, "id"), chiParam(r, "column"), sig.CellValue)
	notifyFailure(r, "Update failed", err)
	s.patchGrid(sse, r, v)
}

// ---- preview ----

// handlePreview opens the read-only preview of a row.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.OpenPreview(chiParam(r, "id"))
	notifyFailure(r, "Cannot preview", err)
	s.patchModal(sse, r, v)
}

// handleCloseModal closes the open modal without side effects.
func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	v.table.CloseModal()
	s.patchModal(sse, r, v)
}

// ---- delete ----

// handleRequestDelete asks for confirmation before deleting a row.
func (s *Server) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.RequestDelete(chiParam(r, "id"))
	notifyFailure(r, "Cannot delete", err)
	s.patchModal(sse, r, v)
}

// handleRequestBulkDelete asks for confirmation before deleting the
// selected rows.
func (s *Server) handleRequestBulkDelete(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	_, err := v.table.RequestBulkDelete()
	notifyFailure(r, "Cannot delete", err)
	s.patchModal(sse, r, v)
}

// handleConfirm runs the pending delete.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	notifyFailure(r, "Delete failed", v.table.Confirm(r.Context()))
	s.patchTable(sse, r, v)
}

// handleCancel dismisses the pending delete.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	v.table.CancelConfirm()
	s.patchModal(sse, r, v)
}

// ---- actions ----

// handleRowAction runs a custom action on one row. Actions talk to the
// backend on their own, so every failure is reported here.
func (s *Server) handleRowAction(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	label := chiParam(r, "action")
	if err := v.table.RunRowAction(r.Context(), label, chiParam(r, "id")); err != nil {
		provider.Notify(r.Context(), provider.Failure(label+" failed", err))
	} else {
		v.binding.Invalidate()
		provider.Notify(r.Context(), provider.Success(label, "Action completed."))
	}
	v.reload(r.Context())
	s.patchGrid(sse, r, v)
}

// handleBulkAction runs a bulk action over the selected rows.
func (s *Server) handleBulkAction(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	label := chiParam(r, "action")
	if err := v.table.RunBulkAction(r.Context(), label); err != nil {
		provider.Notify(r.Context(), provider.Failure(label+" failed", err))
	} else {
		v.binding.Invalidate()
		provider.Notify(r.Context(), provider.Success(label, "Action completed for the selected rows."))
	}
	v.reload(r.Context())
	s.patchGrid(sse, r, v)
}
