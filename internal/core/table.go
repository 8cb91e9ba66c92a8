package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Orchestrator errors.
var (
	ErrRowBusy           = errors.New("row has a mutation in progress")
	ErrRowNotFound       = errors.New("row not found")
	ErrColumnNotEditable = errors.New("column is not editable")
	ErrNoSelection       = errors.New("no rows selected")
	ErrFeatureDisabled   = errors.New("feature is disabled for this table")
	ErrNoPendingConfirm  = errors.New("no confirmation is pending")
	ErrActionNotFound    = errors.New("action not found")
)

// Handlers are the mutation callbacks a Table invokes. A nil callback is
// treated as a successful no-op.
type Handlers struct {
	// Create receives the template merged with the submitted values. A
	// non-empty returned record (carrying backend-assigned fields such as the
	// id) is appended instead of the submitted one.
	Create func(ctx context.Context, row Record) (Record, error)

	// Update receives the merged row and the row it replaces.
	Update func(ctx context.Context, updated, original Record) error

	Delete func(ctx context.Context, row Record) error

	// BulkDelete, when nil, makes bulk deletes fall back to one Delete per row.
	BulkDelete func(ctx context.Context, rows []Record) error

	SelectionChange func(selected []Record)
}

// PreviewFunc renders a caller-supplied preview of a row.
type PreviewFunc func(row Record) Preview

// TableConfig configures a Table. TableDefinition.Config builds one for a
// registered table.
type TableConfig struct {
	Title          string
	Variants       VariantMap
	Template       Record
	EditableFields []string
	Dropdowns      DropdownOptions
	Features       Features
	PageSize       int
	StatusMap      StatusMap
	PreviewExclude []string
	PreviewLabels  map[string]string
	EmptyState     string
	BulkActions    []Action
	CustomActions  []Action
	CustomPreview  PreviewFunc
}

// RowState is the mutation lifecycle state of one row.
//
//	clean -> pending -> clean
//	                 -> rolled-back -> pending ...
type RowState int

const (
	RowClean RowState = iota
	RowPending
	RowRolledBack
)

func (s RowState) String() string {
	switch s {
	case RowClean:
		return "clean"
	case RowPending:
		return "pending"
	case RowRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// ModalKind identifies the open modal.
type ModalKind int

const (
	ModalNone ModalKind = iota
	ModalCreate
	ModalEdit
	ModalPreview
	ModalConfirm
	ModalImport
)

// Modal titles.
const (
	CreateModalTitle  = "Create New Item"
	EditModalTitle    = "Edit Item"
	PreviewModalTitle = "Item Details"
	ImportModalTitle  = "Import CSV"
	ConfirmTitle      = "Delete Confirmation"
)

// ConfirmPrompt is the delete confirmation shown before any delete runs.
type ConfirmPrompt struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
	Count        int
	Bulk         bool

	ids []string
}

// Modal is the table's currently open modal.
type Modal struct {
	Kind    ModalKind
	Title   string
	RowID   string
	Form    *Form
	Preview *Preview
	Confirm *ConfirmPrompt
	Err     error
}

// Open reports whether a modal is open.
func (m Modal) Open() bool { return m.Kind != ModalNone }

// Table orchestrates a grid over an in-memory row collection: column
// generation, create/edit/preview/delete flows, selection and actions.
//
// Mutations are applied to the collection only after their callback
// succeeds. Each row moves through clean -> pending -> clean | rolled-back,
// and a mutation on a pending row fails with ErrRowBusy. Callbacks run
// without holding the table lock, so mutations on different rows proceed
// independently.
type Table struct {
	mu       sync.Mutex
	cfg      TableConfig
	h        Handlers
	rows     []Record
	selected map[string]bool
	states   map[string]RowState
	modal    Modal
}

// NewTable creates a Table over rows.
func NewTable(cfg TableConfig, h Handlers, rows []Record) *Table {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.EmptyState == "" {
		cfg.EmptyState = DefaultEmptyState
	}
	if cfg.Variants == nil {
		cfg.Variants = VariantMap{}
	}
	return &Table{
		cfg:      cfg,
		h:        h,
		rows:     cloneRows(rows),
		selected: make(map[string]bool),
		states:   make(map[string]RowState),
	}
}

// Config returns the table configuration.
func (t *Table) Config() TableConfig {
	return t.cfg
}

// Rows returns a copy of the row collection.
func (t *Table) Rows() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRows(t.rows)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// SetRows replaces the collection with a fresh query result. Selections of
// rows that no longer exist are dropped.
func (t *Table) SetRows(rows []Record) {
	t.mu.Lock()
	t.rows = cloneRows(rows)
	changed := false
	for id := range t.selected {
		if t.indexLocked(id) < 0 {
			delete(t.selected, id)
			changed = true
		}
	}
	sel := t.selectedLocked()
	t.mu.Unlock()

	if changed {
		t.notifySelection(sel)
	}
}

// Columns derives the grid columns from the current rows, falling back to the
// create template when there are none.
func (t *Table) Columns() []ColumnDef {
	t.mu.Lock()
	samples := t.rows
	if len(samples) == 0 && t.cfg.Template.Len() > 0 {
		samples = []Record{t.cfg.Template}
	}
	var first []Record
	if len(samples) > 0 {
		first = []Record{samples[0].Clone()}
	}
	t.mu.Unlock()

	return GenerateColumns(first, t.cfg.Variants, t.cfg.EditableFields,
		WithStatusMap(t.cfg.StatusMap),
		WithDropdowns(t.cfg.Dropdowns),
		WithHeaders(t.cfg.PreviewLabels),
	)
}

// Modal returns the currently open modal.
func (t *Table) Modal() Modal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.modal
}

// CloseModal closes any open modal without side effects.
func (t *Table) CloseModal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modal = Modal{}
}

// RowState returns the mutation state of the row with id.
func (t *Table) RowState(id string) RowState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[id]
}

// Row returns the row with id.
func (t *Table) Row(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return Record{}, false
	}
	return t.rows[i].Clone(), true
}

// ---- create ----

// OpenCreate opens the create modal with a form over the template.
func (t *Table) OpenCreate() (*Form, error) {
	if !t.cfg.Features.Create {
		return nil, ErrFeatureDisabled
	}
	form := BuildForm(t.cfg.Template, t.cfg.Variants, t.cfg.Dropdowns, WithFieldLabels(t.cfg.PreviewLabels))

	t.mu.Lock()
	t.modal = Modal{Kind: ModalCreate, Title: CreateModalTitle, Form: form}
	t.mu.Unlock()
	return form, nil
}

// SubmitCreate validates values against the template form, merges them over
// the template defaults and invokes the create callback. The new row is
// appended only on success; on failure the modal stays open with the error.
func (t *Table) SubmitCreate(ctx context.Context, values Record) (Record, error) {
	if !t.cfg.Features.Create {
		return Record{}, ErrFeatureDisabled
	}

	form := BuildForm(t.cfg.Template, t.cfg.Variants, t.cfg.Dropdowns, WithFieldLabels(t.cfg.PreviewLabels))
	submitted, ferrs := form.Submit(values)
	if ferrs != nil {
		t.keepOpen(Modal{Kind: ModalCreate, Title: CreateModalTitle, Form: form, Err: ferrs})
		return Record{}, ferrs
	}

	row := t.cfg.Template.Merge(submitted)
	if t.h.Create != nil {
		created, err := t.h.Create(ctx, row)
		if err != nil {
			t.keepOpen(Modal{Kind: ModalCreate, Title: CreateModalTitle, Form: form, Err: err})
			return Record{}, err
		}
		if created.Len() > 0 {
			row = created
		}
	}

	t.mu.Lock()
	t.rows = append(t.rows, row.Clone())
	t.modal = Modal{}
	t.mu.Unlock()
	return row, nil
}

// ---- update ----

// OpenEdit opens the edit modal with a form pre-filled from the row.
func (t *Table) OpenEdit(id string) (*Form, error) {
	if !t.cfg.Features.Edit {
		return nil, ErrFeatureDisabled
	}
	row, ok := t.Row(id)
	if !ok {
		return nil, ErrRowNotFound
	}
	form := BuildForm(t.editRecord(row), t.cfg.Variants, t.cfg.Dropdowns, WithFieldLabels(t.cfg.PreviewLabels))

	t.mu.Lock()
	t.modal = Modal{Kind: ModalEdit, Title: EditModalTitle, RowID: id, Form: form}
	t.mu.Unlock()
	return form, nil
}

// editRecord returns the fields of row the edit form covers: the template's
// fields, taking the row's value where it has one. Without a template every
// field except the id is covered. Columns the backend maintains, such as
// created_at, are therefore never written back from the form.
func (t *Table) editRecord(row Record) Record {
	var out Record
	if t.cfg.Template.Len() == 0 {
		for _, p := range row.Pairs() {
			if p.Key != IDField {
				out.Set(p.Key, p.Value)
			}
		}
		return out
	}
	for _, p := range t.cfg.Template.Pairs() {
		if v, ok := row.Get(p.Key); ok {
			p.Value = v
		}
		out.Set(p.Key, p.Value)
	}
	return out
}

// SubmitEdit validates values against the row's form, merges them onto the
// original row (submitted fields win) and invokes the update callback with
// (merged, original). The row is replaced by identity only on success.
func (t *Table) SubmitEdit(ctx context.Context, id string, values Record) (Record, error) {
	if !t.cfg.Features.Edit {
		return Record{}, ErrFeatureDisabled
	}
	original, ok := t.Row(id)
	if !ok {
		return Record{}, ErrRowNotFound
	}

	form := BuildForm(t.editRecord(original), t.cfg.Variants, t.cfg.Dropdowns, WithFieldLabels(t.cfg.PreviewLabels))
	submitted, ferrs := form.Submit(values)
	if ferrs != nil {
		t.keepOpen(Modal{Kind: ModalEdit, Title: EditModalTitle, RowID: id, Form: form, Err: ferrs})
		return Record{}, ferrs
	}

	merged := original.Merge(submitted)
	if err := t.update(ctx, id, merged, original); err != nil {
		if !errors.Is(err, ErrRowBusy) {
			t.keepOpen(Modal{Kind: ModalEdit, Title: EditModalTitle, RowID: id, Form: form, Err: err})
		}
		return Record{}, err
	}

	t.mu.Lock()
	if t.modal.Kind == ModalEdit && t.modal.RowID == id {
		t.modal = Modal{}
	}
	t.mu.Unlock()
	return merged, nil
}

// EditCell edits one cell inline. Columns outside the editable set are
// rejected with ErrColumnNotEditable.
func (t *Table) EditCell(ctx context.Context, id, column string, value any) (Record, error) {
	if !t.cfg.Features.Edit {
		return Record{}, ErrFeatureDisabled
	}
	if !t.editable(column) {
		return Record{}, fmt.Errorf("%w: %s", ErrColumnNotEditable, column)
	}
	original, ok := t.Row(id)
	if !ok {
		return Record{}, ErrRowNotFound
	}

	v := t.cfg.Variants.Of(column)
	current := original.Value(column)
	cell := BuildForm(NewRecord(Pair{column, current}), VariantMap{column: v}, t.cfg.Dropdowns)
	submitted, ferrs := cell.Submit(NewRecord(Pair{column, value}))
	if ferrs != nil {
		return Record{}, ferrs
	}

	merged := original.Merge(submitted)
	if err := t.update(ctx, id, merged, original); err != nil {
		return Record{}, err
	}
	return merged, nil
}

func (t *Table) editable(column string) bool {
	for _, f := range t.cfg.EditableFields {
		if f == column {
			return true
		}
	}
	return false
}

func (t *Table) update(ctx context.Context, id string, merged, original Record) error {
	if err := t.begin(id); err != nil {
		return err
	}

	var err error
	if t.h.Update != nil {
		err = t.h.Update(ctx, merged, original)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.states[id] = RowRolledBack
		return err
	}
	if i := t.indexLocked(id); i >= 0 {
		t.rows[i] = merged.Clone()
	}
	delete(t.states, id)
	return nil
}

// ---- delete ----

// RequestDelete opens the confirmation prompt for deleting one row. Nothing is
// deleted until Confirm.
func (t *Table) RequestDelete(id string) (ConfirmPrompt, error) {
	if !t.cfg.Features.Delete {
		return ConfirmPrompt{}, ErrFeatureDisabled
	}
	if _, ok := t.Row(id); !ok {
		return ConfirmPrompt{}, ErrRowNotFound
	}

	p := ConfirmPrompt{
		Title:        ConfirmTitle,
		Message:      "Are you sure you want to delete this item? This action cannot be undone.",
		ConfirmLabel: "Delete",
		CancelLabel:  "Cancel",
		Count:        1,
		ids:          []string{id},
	}
	t.mu.Lock()
	t.modal = Modal{Kind: ModalConfirm, Title: ConfirmTitle, RowID: id, Confirm: &p}
	t.mu.Unlock()
	return p, nil
}

// RequestBulkDelete opens the confirmation prompt for deleting the selected
// rows. It fails with ErrNoSelection when nothing is selected.
func (t *Table) RequestBulkDelete() (ConfirmPrompt, error) {
	if !t.cfg.Features.Delete {
		return ConfirmPrompt{}, ErrFeatureDisabled
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sel := t.selectedLocked()
	if len(sel) == 0 {
		return ConfirmPrompt{}, ErrNoSelection
	}
	ids := make([]string, len(sel))
	for i, r := range sel {
		ids[i] = r.IdentityKey()
	}

	p := ConfirmPrompt{
		Title:        ConfirmTitle,
		Message:      fmt.Sprintf("Are you sure you want to delete %s? This action cannot be undone.", itemCount(len(ids))),
		ConfirmLabel: "Delete All",
		CancelLabel:  "Cancel",
		Count:        len(ids),
		Bulk:         true,
		ids:          ids,
	}
	t.modal = Modal{Kind: ModalConfirm, Title: ConfirmTitle, Confirm: &p}
	return p, nil
}

func itemCount(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// CancelConfirm dismisses a pending confirmation. Rows, selection and the
// backend are left unchanged.
func (t *Table) CancelConfirm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.modal.Kind == ModalConfirm {
		t.modal = Modal{}
	}
}

// Confirm runs the pending delete. A single delete invokes the delete callback
// exactly once. A bulk delete invokes the bulk callback once, or the delete
// callback per row when no bulk callback is set. On success the rows are
// removed and their selection cleared; on failure nothing changes and the
// prompt stays open.
func (t *Table) Confirm(ctx context.Context) error {
	t.mu.Lock()
	if t.modal.Kind != ModalConfirm || t.modal.Confirm == nil {
		t.mu.Unlock()
		return ErrNoPendingConfirm
	}
	prompt := *t.modal.Confirm
	rows := make([]Record, 0, len(prompt.ids))
	for _, id := range prompt.ids {
		if i := t.indexLocked(id); i >= 0 {
			rows = append(rows, t.rows[i].Clone())
		}
	}
	t.mu.Unlock()

	if len(rows) == 0 {
		t.CancelConfirm()
		return ErrRowNotFound
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.IdentityKey()
	}
	if err := t.begin(ids...); err != nil {
		return err
	}

	err := t.runDelete(ctx, prompt.Bulk, rows)

	t.mu.Lock()
	if err != nil {
		for _, id := range ids {
			t.states[id] = RowRolledBack
		}
		if t.modal.Kind == ModalConfirm {
			t.modal.Err = err
		}
		t.mu.Unlock()
		return err
	}

	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
		delete(t.states, id)
	}
	kept := t.rows[:0]
	for _, r := range t.rows {
		if !removed[r.IdentityKey()] {
			kept = append(kept, r)
		}
	}
	t.rows = kept

	changed := false
	if prompt.Bulk {
		changed = len(t.selected) > 0
		t.selected = make(map[string]bool)
	} else {
		for _, id := range ids {
			if t.selected[id] {
				delete(t.selected, id)
				changed = true
			}
		}
	}
	t.modal = Modal{}
	sel := t.selectedLocked()
	t.mu.Unlock()

	if changed {
		t.notifySelection(sel)
	}
	return nil
}

func (t *Table) runDelete(ctx context.Context, bulk bool, rows []Record) error {
	if bulk && t.h.BulkDelete != nil {
		return t.h.BulkDelete(ctx, rows)
	}
	if t.h.Delete == nil {
		return nil
	}
	for _, r := range rows {
		if err := t.h.Delete(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ---- preview and import ----

// OpenPreview opens the read-only preview of a row, using the custom preview
// when one is configured.
func (t *Table) OpenPreview(id string) (Preview, error) {
	if !t.cfg.Features.Preview {
		return Preview{}, ErrFeatureDisabled
	}
	row, ok := t.Row(id)
	if !ok {
		return Preview{}, ErrRowNotFound
	}

	var p Preview
	if t.cfg.CustomPreview != nil {
		p = t.cfg.CustomPreview(row)
	} else {
		noTitle := ""
		p = BuildPreview(row, t.cfg.Variants, PreviewOptions{
			Exclude:   t.cfg.PreviewExclude,
			Labels:    t.cfg.PreviewLabels,
			Layout:    LayoutCard,
			StatusMap: t.cfg.StatusMap,
			Title:     &noTitle,
		})
	}

	t.mu.Lock()
	t.modal = Modal{Kind: ModalPreview, Title: PreviewModalTitle, RowID: id, Preview: &p}
	t.mu.Unlock()
	return p, nil
}

// OpenImport opens the CSV import modal.
func (t *Table) OpenImport() error {
	if !t.cfg.Features.CSVImport {
		return ErrFeatureDisabled
	}
	t.mu.Lock()
	t.modal = Modal{Kind: ModalImport, Title: ImportModalTitle}
	t.mu.Unlock()
	return nil
}

// ---- selection ----

// Toggle flips the selection of the row with id and reports whether it is now
// selected.
func (t *Table) Toggle(id string) (bool, error) {
	if !t.cfg.Features.RowSelection {
		return false, ErrFeatureDisabled
	}
	t.mu.Lock()
	if t.indexLocked(id) < 0 {
		t.mu.Unlock()
		return false, ErrRowNotFound
	}
	now := !t.selected[id]
	if now {
		t.selected[id] = true
	} else {
		delete(t.selected, id)
	}
	sel := t.selectedLocked()
	t.mu.Unlock()

	t.notifySelection(sel)
	return now, nil
}

// SelectAll selects every row that has an identity.
func (t *Table) SelectAll() error {
	if !t.cfg.Features.RowSelection {
		return ErrFeatureDisabled
	}
	t.mu.Lock()
	for _, r := range t.rows {
		if id := r.IdentityKey(); id != "" {
			t.selected[id] = true
		}
	}
	sel := t.selectedLocked()
	t.mu.Unlock()

	t.notifySelection(sel)
	return nil
}

// ClearSelection deselects every row. It is always available.
func (t *Table) ClearSelection() {
	t.mu.Lock()
	had := len(t.selected) > 0
	t.selected = make(map[string]bool)
	t.mu.Unlock()

	if had {
		t.notifySelection(nil)
	}
}

// Selected returns the selected rows in collection order.
func (t *Table) Selected() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selectedLocked()
}

// IsSelected reports whether the row with id is selected.
func (t *Table) IsSelected(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected[id]
}

func (t *Table) selectedLocked() []Record {
	if len(t.selected) == 0 {
		return nil
	}
	out := make([]Record, 0, len(t.selected))
	for _, r := range t.rows {
		if t.selected[r.IdentityKey()] {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (t *Table) notifySelection(sel []Record) {
	if t.h.SelectionChange != nil {
		t.h.SelectionChange(sel)
	}
}

// ---- actions ----

// BulkActionsAvailable reports whether bulk delete and bulk actions are
// offered, which requires a non-empty selection.
func (t *Table) BulkActionsAvailable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.selected) > 0
}

// RunBulkAction runs the named bulk action over the selected rows and clears
// the selection when it succeeds.
func (t *Table) RunBulkAction(ctx context.Context, label string) error {
	action, ok := findAction(t.cfg.BulkActions, label)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotFound, label)
	}
	sel := t.Selected()
	if len(sel) == 0 {
		return ErrNoSelection
	}
	if action.Run != nil {
		if err := action.Run(ctx, sel); err != nil {
			return err
		}
	}
	t.ClearSelection()
	return nil
}

// RunRowAction runs the named custom action on one row.
func (t *Table) RunRowAction(ctx context.Context, label, id string) error {
	action, ok := findAction(t.cfg.CustomActions, label)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotFound, label)
	}
	row, ok := t.Row(id)
	if !ok {
		return ErrRowNotFound
	}
	if action.Run == nil {
		return nil
	}
	return action.Run(ctx, []Record{row})
}

func findAction(actions []Action, label string) (Action, bool) {
	for _, a := range actions {
		if a.Label == label {
			return a, true
		}
	}
	return Action{}, false
}

// ---- helpers ----

// begin moves every id from clean or rolled-back to pending. If any id is
// already pending, no state changes and ErrRowBusy is returned.
func (t *Table) begin(ids ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		if t.states[id] == RowPending {
			return fmt.Errorf("%w: %s", ErrRowBusy, id)
		}
	}
	for _, id := range ids {
		t.states[id] = RowPending
	}
	return nil
}

// keepOpen records a failed submit on the modal so it is shown again.
func (t *Table) keepOpen(m Modal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modal = m
}

func (t *Table) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range t.rows {
		if r.IdentityKey() == id {
			return i
		}
	}
	return -1
}

func cloneRows(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
