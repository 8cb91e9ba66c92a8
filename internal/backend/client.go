// Package backend is the Postgres-backed data layer: a generic client for
// table reads and writes, stored procedure calls, the audit log, object
// storage, the change feed and schema migrations.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

var (
	// ErrNotFound is returned when a single-row operation matches nothing.
	ErrNotFound = core.ErrRowNotFound

	ErrMultipleRows      = errors.New("query returned more than one row")
	ErrEmptyFilter       = errors.New("bulk operation refused: empty filter")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrNoValues          = errors.New("no values to write")
)

// Order is one ORDER BY term.
type Order struct {
	Column     string
	Desc       bool
	NullsFirst bool
}

// Query describes a table read.
type Query struct {
	Select  []string // Columns; all when empty
	Filters []Filter // ANDed
	Any     []Filter // One ORed group, ANDed with Filters
	Search  *Search  // Substring match across columns
	Order   []Order
	Limit   int
	Offset  int
	Count   bool // Also return the exact count of matching rows
	Head    bool // Return only the count
}

// Search is a case-insensitive substring match of Term against any of
// Columns.
type Search struct {
	Term    string
	Columns []string
}

// Result is the outcome of Fetch.
type Result struct {
	Rows  []core.Record
	Count int64
}

// InsertOptions controls conflict handling and the returned columns.
type InsertOptions struct {
	OnConflict       []string // Conflict target; id when empty
	Upsert           bool     // Update existing rows on conflict
	IgnoreDuplicates bool     // Skip conflicting rows
	Returning        []string // Columns read back; all when empty
}

// Client runs generic queries against any validated table.
type Client struct {
	db DBTX
}

// New creates a client over a pool, connection or transaction.
func New(db DBTX) *Client {
	return &Client{db: db}
}

// DB returns the underlying executor.
func (c *Client) DB() DBTX {
	return c.db
}

// Fetch runs q against table.
func (c *Client) Fetch(ctx context.Context, table string, q Query) (Result, error) {
	countSQL, sql, args, countArgs, err := buildSelect(table, q)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if q.Count || q.Head {
		if err := c.db.QueryRow(ctx, countSQL, countArgs...).Scan(&res.Count); err != nil {
			return Result{}, fmt.Errorf("count %s: %w", table, err)
		}
		if q.Head {
			return res, nil
		}
	}

	rows, err := c.db.Query(ctx, sql, args...)
	if err != nil {
		return Result{}, fmt.Errorf("select %s: %w", table, err)
	}
	res.Rows, err = collectRecords(rows)
	if err != nil {
		return Result{}, fmt.Errorf("select %s: %w", table, err)
	}
	return res, nil
}

// Single returns the only row matching q. It fails with ErrNotFound or
// ErrMultipleRows otherwise.
func (c *Client) Single(ctx context.Context, table string, q Query) (core.Record, error) {
	r, ok, err := c.MaybeSingle(ctx, table, q)
	if err != nil {
		return core.Record{}, err
	}
	if !ok {
		return core.Record{}, ErrNotFound
	}
	return r, nil
}

// MaybeSingle returns the row matching q, if any. More than one match fails
// with ErrMultipleRows.
func (c *Client) MaybeSingle(ctx context.Context, table string, q Query) (core.Record, bool, error) {
	q.Limit = 2
	q.Count, q.Head = false, false
	res, err := c.Fetch(ctx, table, q)
	if err != nil {
		return core.Record{}, false, err
	}
	switch len(res.Rows) {
	case 0:
		return core.Record{}, false, nil
	case 1:
		return res.Rows[0], true, nil
	default:
		return core.Record{}, false, ErrMultipleRows
	}
}

// FetchByID returns the row whose id equals id.
func (c *Client) FetchByID(ctx context.Context, table string, id any, columns ...string) (core.Record, error) {
	return c.Single(ctx, table, Query{Select: columns, Filters: []Filter{Eq(core.IDField, id)}})
}

// Insert writes rows and returns them as stored.
func (c *Client) Insert(ctx context.Context, table string, rows []core.Record, opts InsertOptions) ([]core.Record, error) {
	sql, args, err := buildInsert(table, rows, opts)
	if err != nil {
		return nil, err
	}
	res, err := c.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	out, err := collectRecords(res)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return out, nil
}

// Create inserts one row and returns it as stored.
func (c *Client) Create(ctx context.Context, table string, row core.Record, returning ...string) (core.Record, error) {
	out, err := c.Insert(ctx, table, []core.Record{row}, InsertOptions{Returning: returning})
	if err != nil {
		return core.Record{}, err
	}
	if len(out) == 0 {
		// ON CONFLICT DO NOTHING can return nothing
		return core.Record{}, nil
	}
	return out[0], nil
}

// Update writes values to the row with id and returns the updated row.
func (c *Client) Update(ctx context.Context, table string, id any, values core.Record, returning ...string) (core.Record, error) {
	values = withoutID(values)
	sql, args, err := buildUpdate(table, values, []Filter{Eq(core.IDField, id)}, returning, true)
	if err != nil {
		return core.Record{}, err
	}
	rows, err := c.db.Query(ctx, sql, args...)
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s: %w", table, err)
	}
	out, err := collectRecords(rows)
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s: %w", table, err)
	}
	if len(out) == 0 {
		return core.Record{}, ErrNotFound
	}
	return out[0], nil
}

// Delete removes the row with id.
func (c *Client) Delete(ctx context.Context, table string, id any) error {
	n, err := c.BulkDelete(ctx, table, []Filter{Eq(core.IDField, id)})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkUpdate writes values to every row matching filters and returns the
// number of rows changed. An empty filter set is refused.
func (c *Client) BulkUpdate(ctx context.Context, table string, values core.Record, filters []Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrEmptyFilter
	}
	sql, args, err := buildUpdate(table, withoutID(values), filters, nil, false)
	if err != nil {
		return 0, err
	}
	tag, err := c.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// BulkDelete removes every row matching filters and returns the number of
// rows deleted. An empty filter set is refused.
func (c *Client) BulkDelete(ctx context.Context, table string, filters []Filter) (int64, error) {
	sql, args, err := buildDelete(table, filters)
	if err != nil {
		return 0, err
	}
	tag, err := c.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// RPC calls a set-returning function with named arguments.
func (c *Client) RPC(ctx context.Context, fn string, params map[string]any) ([]core.Record, error) {
	sql, args, err := buildRPC(fn, params)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", fn, err)
	}
	out, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", fn, err)
	}
	return out, nil
}

// collectRecords reads all rows into records keyed and ordered by the
// result's field names.
func collectRecords(rows pgx.Rows) ([]core.Record, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]core.Record, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		var r core.Record
		for i, f := range fields {
			r.Set(f.Name, jsonValue(values[i]))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func withoutID(r core.Record) core.Record {
	if !r.Has(core.IDField) {
		return r
	}
	r = r.Clone()
	r.Delete(core.IDField)
	return r
}

// ---- SQL builders ----

func buildSelect(table string, q Query) (countSQL, sql string, args, countArgs []any, err error) {
	tbl, err := quoteIdent(table)
	if err != nil {
		return "", "", nil, nil, err
	}
	cols, err := selectList(q.Select)
	if err != nil {
		return "", "", nil, nil, err
	}

	wb := NewWhereBuilder()
	if err := wb.AddFilters(q.Filters); err != nil {
		return "", "", nil, nil, err
	}
	if err := wb.AddAny(q.Any); err != nil {
		return "", "", nil, nil, err
	}
	if q.Search != nil {
		if err := wb.AddSearch(q.Search.Term, q.Search.Columns); err != nil {
			return "", "", nil, nil, err
		}
	}
	where, whereArgs := wb.Build()
	countArgs = append([]any(nil), whereArgs...)
	countSQL = "SELECT COUNT(*) FROM " + tbl + where

	var b strings.Builder
	b.WriteString("SELECT " + cols + " FROM " + tbl + where)

	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			col, err := quoteIdent(o.Column)
			if err != nil {
				return "", "", nil, nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			nulls := "NULLS LAST"
			if o.NullsFirst {
				nulls = "NULLS FIRST"
			}
			parts[i] = col + " " + dir + " " + nulls
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + wb.Arg(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + wb.Arg(q.Offset))
	}
	_, args = wb.Build()
	return countSQL, b.String(), args, countArgs, nil
}

func buildInsert(table string, rows []core.Record, opts InsertOptions) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, ErrNoValues
	}
	tbl, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}

	// Column set is the union of row keys in first-seen order.
	var columns []string
	seen := make(map[string]bool)
	for _, r := range rows {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	if len(columns) == 0 {
		return "", nil, ErrNoValues
	}
	quoted, err := quoteIdents(columns)
	if err != nil {
		return "", nil, err
	}

	wb := NewWhereBuilder()
	tuples := make([]string, len(rows))
	for i, r := range rows {
		vals := make([]string, len(columns))
		for j, col := range columns {
			if v, ok := r.Get(col); ok {
				vals[j] = wb.Arg(dbValue(v))
			} else {
				vals[j] = "DEFAULT"
			}
		}
		tuples[i] = "(" + strings.Join(vals, ", ") + ")"
	}

	var b strings.Builder
	b.WriteString("INSERT INTO " + tbl + " (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(tuples, ", "))

	if opts.Upsert || opts.IgnoreDuplicates {
		target := opts.OnConflict
		if len(target) == 0 {
			target = []string{core.IDField}
		}
		qt, err := quoteIdents(target)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ON CONFLICT (" + strings.Join(qt, ", ") + ")")

		isTarget := make(map[string]bool, len(target))
		for _, t := range target {
			isTarget[t] = true
		}
		var sets []string
		for i, col := range columns {
			if !isTarget[col] {
				sets = append(sets, quoted[i]+" = EXCLUDED."+quoted[i])
			}
		}
		if opts.IgnoreDuplicates || len(sets) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
		}
	}

	ret, err := selectList(opts.Returning)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(" RETURNING " + ret)

	_, args := wb.Build()
	return b.String(), args, nil
}

func buildUpdate(table string, values core.Record, filters []Filter, returning []string, withReturning bool) (string, []any, error) {
	if values.Len() == 0 {
		return "", nil, ErrNoValues
	}
	tbl, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}

	wb := NewWhereBuilder()
	sets := make([]string, 0, values.Len())
	for _, p := range values.Pairs() {
		col, err := quoteIdent(p.Key)
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, col+" = "+wb.Arg(dbValue(p.Value)))
	}
	if err := wb.AddFilters(filters); err != nil {
		return "", nil, err
	}
	where, args := wb.Build()

	sql := "UPDATE " + tbl + " SET " + strings.Join(sets, ", ") + where
	if withReturning {
		ret, err := selectList(returning)
		if err != nil {
			return "", nil, err
		}
		sql += " RETURNING " + ret
	}
	return sql, args, nil
}

func buildDelete(table string, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, ErrEmptyFilter
	}
	tbl, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	wb := NewWhereBuilder()
	if err := wb.AddFilters(filters); err != nil {
		return "", nil, err
	}
	where, args := wb.Build()
	return "DELETE FROM " + tbl + where, args, nil
}

// buildRPC renders "SELECT * FROM fn(a => @a, ...)" with pgx named
// arguments, ordered by parameter name.
func buildRPC(fn string, params map[string]any) (string, pgx.NamedArgs, error) {
	name, err := quoteIdent(fn)
	if err != nil {
		return "", nil, err
	}
	filters := Match(params)
	parts := make([]string, len(filters))
	args := make(pgx.NamedArgs, len(params))
	for i, f := range filters {
		if !identRe.MatchString(f.Column) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, f.Column)
		}
		parts[i] = f.Column + " => @" + f.Column
		args[f.Column] = dbValue(f.Value)
	}
	return "SELECT * FROM " + name + "(" + strings.Join(parts, ", ") + ")", args, nil
}
