// Package provider binds registered tables to the backend. A Binding loads
// a table's rows through the shared query cache and supplies the mutation
// callbacks the table orchestrator invokes, wrapping each call with progress
// tracking, notifications, audit entries and cache invalidation.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/JonMunkholm/fastro/internal/backend"
	"github.com/JonMunkholm/fastro/internal/cache"
	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/logging"
)

// Store is the part of the backend client a Binding uses.
type Store interface {
	Fetch(ctx context.Context, table string, q backend.Query) (backend.Result, error)
	RPC(ctx context.Context, fn string, params map[string]any) ([]core.Record, error)
	Create(ctx context.Context, table string, row core.Record, returning ...string) (core.Record, error)
	Update(ctx context.Context, table string, id any, values core.Record, returning ...string) (core.Record, error)
	Delete(ctx context.Context, table string, id any) error
	BulkDelete(ctx context.Context, table string, filters []backend.Filter) (int64, error)
}

// Progress observes backend mutations. Start is called before the call and
// the returned func with its outcome.
type Progress interface {
	Start(table, op string) (done func(err error))
}

// Mutation names passed to Progress.
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpBulkDelete = "bulk_delete"
)

// Deps are the shared services a Binding uses. Store and Cache are required.
type Deps struct {
	Store    Store
	Cache    *cache.Cache
	Audit    core.AuditLogger
	Progress Progress
}

// State is the outcome of a load.
type State struct {
	Rows      []core.Record
	IsLoading bool
	IsError   bool
	Err       error
}

// Binding connects one table to the backend.
type Binding struct {
	table string
	label string
	deps  Deps

	returning    []string
	orderColumn  string
	rpc          string
	rpcParams    map[string]any
	perRowDelete bool
	prepare      func(core.Record) core.Record
	variants     core.VariantMap

	mu      sync.Mutex
	last    State
	loading int
}

// Option configures a Binding.
type Option func(*Binding)

// WithReturning limits the columns read back after queries and writes.
func WithReturning(columns ...string) Option {
	return func(b *Binding) { b.returning = columns }
}

// WithRPC loads rows from a server procedure instead of the table.
func WithRPC(fn string, params map[string]any) Option {
	return func(b *Binding) {
		b.rpc = fn
		b.rpcParams = params
	}
}

// WithPerRowDelete omits the bulk delete handler so bulk deletes run one
// Delete per row.
func WithPerRowDelete() Option {
	return func(b *Binding) { b.perRowDelete = true }
}

// WithPrepare cleans rows before they are written.
func WithPrepare(fn func(core.Record) core.Record) Option {
	return func(b *Binding) { b.prepare = fn }
}

// WithVariants shapes written values by column variant, see core.StorageValue.
func WithVariants(variants core.VariantMap) Option {
	return func(b *Binding) { b.variants = variants }
}

// WithOrder orders loaded rows newest-first by column.
func WithOrder(column string) Option {
	return func(b *Binding) { b.orderColumn = column }
}

// WithLabel sets the table name used in notifications.
func WithLabel(label string) Option {
	return func(b *Binding) { b.label = label }
}

// NewBinding creates a binding for table.
func NewBinding(table string, deps Deps, opts ...Option) *Binding {
	b := &Binding{
		table:       table,
		label:       table,
		deps:        deps,
		orderColumn: core.DefaultOrderColumn,
		last:        State{IsLoading: true},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ForDefinition creates a binding configured from a registered table.
func ForDefinition(def core.TableDefinition, deps Deps) *Binding {
	opts := []Option{WithLabel(def.Info.Label), WithReturning(def.Returning...), WithVariants(def.Variants())}
	if def.OrderColumn != "" {
		opts = append(opts, WithOrder(def.OrderColumn))
	}
	if def.RPC != "" {
		opts = append(opts, WithRPC(def.RPC, def.RPCParams))
	}
	if def.PerRowDelete {
		opts = append(opts, WithPerRowDelete())
	}
	if def.Prepare != nil {
		opts = append(opts, WithPrepare(def.Prepare))
	}
	return NewBinding(def.Info.Key, deps, opts...)
}

// Table returns the bound table name.
func (b *Binding) Table() string {
	return b.table
}

// CacheKey is the key of the binding's row query.
func (b *Binding) CacheKey() cache.Key {
	if b.rpc != "" {
		params, _ := json.Marshal(b.rpcParams)
		return cache.NewKey(b.table, "rpc", b.rpc, string(params))
	}
	return cache.NewKey(b.table, "rows", strings.Join(b.returning, ","), b.orderColumn)
}

// Load fetches the table's rows, newest first, through the query cache.
func (b *Binding) Load(ctx context.Context) State {
	b.mu.Lock()
	b.loading++
	b.mu.Unlock()

	rows, err := cache.Fetch(ctx, b.deps.Cache, b.CacheKey(), b.fetch)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading--
	if err != nil {
		logging.WithFields(ctx, "table", b.table).Error("load failed", "error", err)
		b.last = State{IsError: true, Err: err, Rows: []core.Record{}}
	} else {
		b.last = State{Rows: rows}
	}
	out := b.last
	out.IsLoading = b.loading > 0
	return out
}

// Snapshot returns the state of the latest completed load. IsLoading is set
// while a load is in flight or before the first one completes.
func (b *Binding) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.last
	out.IsLoading = out.IsLoading || b.loading > 0
	return out
}

func (b *Binding) fetch(ctx context.Context) ([]core.Record, error) {
	if b.rpc != "" {
		return b.deps.Store.RPC(ctx, b.rpc, b.rpcParams)
	}
	res, err := b.deps.Store.Fetch(ctx, b.table, backend.Query{
		Select: b.returning,
		Order:  []backend.Order{{Column: b.orderColumn, Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Create inserts row and returns the stored record.
func (b *Binding) Create(ctx context.Context, row core.Record) (core.Record, error) {
	row = b.clean(row)
	if id, ok := row.Get(core.IDField); ok && id == nil {
		row = row.Clone()
		row.Delete(core.IDField)
	}

	var created core.Record
	err := b.mutate(ctx, OpCreate, func(ctx context.Context) error {
		var err error
		created, err = b.deps.Store.Create(ctx, b.table, row, b.returning...)
		return err
	})
	if err != nil {
		b.fail(ctx, "Error creating "+b.label, err)
		return core.Record{}, err
	}

	b.audit(ctx, core.AuditLogParams{
		Action:       core.ActionRowCreate,
		RowKey:       created.IdentityKey(),
		RowData:      created.Map(),
		RowsAffected: 1,
	})
	Notify(ctx, Success(b.label+" created", "You have successfully created data."))
	return created, nil
}

// Update writes the columns of updated that differ from original over the
// row identified by original's id. Nothing is written when no column changed.
func (b *Binding) Update(ctx context.Context, updated, original core.Record) error {
	id, ok := original.ID()
	if !ok {
		return fmt.Errorf("update %s: %w", b.table, core.ErrRowNotFound)
	}
	values := changes(original, b.clean(updated))
	if values.Len() == 0 {
		return nil
	}

	err := b.mutate(ctx, OpUpdate, func(ctx context.Context) error {
		_, err := b.deps.Store.Update(ctx, b.table, id, values, b.returning...)
		return err
	})
	if err != nil {
		b.fail(ctx, "Error updating "+b.label, err)
		return err
	}

	params := core.AuditLogParams{
		Action:       core.ActionRowUpdate,
		RowKey:       original.IdentityKey(),
		RowData:      values.Map(),
		RowsAffected: 1,
	}
	if col, oldV, newV, ok := singleChange(original, values); ok {
		params.Action = core.ActionCellEdit
		params.ColumnName = col
		params.OldValue = oldV
		params.NewValue = newV
	}
	b.audit(ctx, params)
	Notify(ctx, Success(b.label+" updated", "You have successfully updated data."))
	return nil
}

// Delete removes row by its id.
func (b *Binding) Delete(ctx context.Context, row core.Record) error {
	id, ok := row.ID()
	if !ok {
		return fmt.Errorf("delete %s: %w", b.table, core.ErrRowNotFound)
	}

	err := b.mutate(ctx, OpDelete, func(ctx context.Context) error {
		return b.deps.Store.Delete(ctx, b.table, id)
	})
	if err != nil {
		b.fail(ctx, "Error deleting "+b.label, err)
		return err
	}

	b.audit(ctx, core.AuditLogParams{
		Action:       core.ActionRowDelete,
		RowKey:       row.IdentityKey(),
		RowData:      row.Map(),
		RowsAffected: 1,
	})
	Notify(ctx, Success(b.label+" deleted", "You have successfully deleted the data."))
	return nil
}

// BulkDelete removes rows in one backend call filtered by id in {ids}.
func (b *Binding) BulkDelete(ctx context.Context, rows []core.Record) error {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if id, ok := r.ID(); ok {
			ids = append(ids, core.IdentityString(id))
		}
	}
	if len(ids) == 0 {
		return core.ErrNoSelection
	}

	var deleted int64
	err := b.mutate(ctx, OpBulkDelete, func(ctx context.Context) error {
		var err error
		deleted, err = b.deps.Store.BulkDelete(ctx, b.table, []backend.Filter{backend.In(core.IDField, ids)})
		return err
	})
	if err != nil {
		b.fail(ctx, "Error bulk deleting "+b.label, err)
		return err
	}

	b.audit(ctx, core.AuditLogParams{
		Action:       core.ActionBulkDelete,
		RowKey:       strings.Join(ids, ","),
		RowsAffected: int(deleted),
	})
	Notify(ctx, Success("Bulk deletion of "+b.label+" successful", "You have successfully deleted multiple entries."))
	return nil
}

// Handlers returns the orchestrator callbacks. The bulk delete handler is
// omitted for per-row deletion.
func (b *Binding) Handlers() core.Handlers {
	h := core.Handlers{
		Create: b.Create,
		Update: b.Update,
		Delete: b.Delete,
	}
	if !b.perRowDelete {
		h.BulkDelete = b.BulkDelete
	}
	return h
}

// Invalidate drops every cached query of the table.
func (b *Binding) Invalidate() {
	b.deps.Cache.InvalidatePrefix(b.table)
}

func (b *Binding) mutate(ctx context.Context, op string, call func(context.Context) error) error {
	done := func(error) {}
	if b.deps.Progress != nil {
		done = b.deps.Progress.Start(b.table, op)
	}
	err := call(ctx)
	done(err)
	if err != nil {
		return err
	}
	b.Invalidate()
	return nil
}

func (b *Binding) clean(r core.Record) core.Record {
	if b.prepare != nil {
		r = b.prepare(r)
	}
	if len(b.variants) == 0 {
		return r
	}
	out := core.NewRecord()
	for _, p := range r.Pairs() {
		if v, ok := b.variants[p.Key]; ok {
			p.Value = core.StorageValue(v, p.Value)
		}
		out.Set(p.Key, p.Value)
	}
	return out
}

// changes returns the columns of values whose text differs from original.
// The id column is never written.
func changes(original, values core.Record) core.Record {
	out := core.NewRecord()
	for _, p := range values.Pairs() {
		if p.Key == core.IDField {
			continue
		}
		if o, ok := original.Get(p.Key); ok && core.ToText(o) == core.ToText(p.Value) {
			continue
		}
		out.Set(p.Key, p.Value)
	}
	return out
}

func (b *Binding) fail(ctx context.Context, title string, err error) {
	logger := logging.WithFields(ctx, "table", b.table)
	if errors.Is(err, context.Canceled) {
		logger.Warn(title, "error", err)
	} else {
		logger.Error(title, "error", err)
	}
	Notify(ctx, Failure(title, err))
}

func (b *Binding) audit(ctx context.Context, params core.AuditLogParams) {
	if b.deps.Audit == nil {
		return
	}
	params.TableKey = b.table
	if _, err := b.deps.Audit.LogAudit(ctx, core.AuditParamsFromContext(ctx, params)); err != nil {
		logging.WithFields(ctx, "table", b.table).Warn("audit log failed", "action", params.Action, "error", err)
	}
}

// singleChange reports the only column whose value differs between original
// and values.
func singleChange(original, values core.Record) (column, oldValue, newValue string, ok bool) {
	for _, p := range values.Pairs() {
		if p.Key == core.IDField {
			continue
		}
		o := core.ToText(original.Value(p.Key))
		n := core.ToText(p.Value)
		if o == n {
			continue
		}
		if ok {
			return "", "", "", false
		}
		column, oldValue, newValue, ok = p.Key, o, n, true
	}
	return column, oldValue, newValue, ok
}
