package backend

import (
	"context"
	"strconv"
	"testing"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	countSQL, sql, args, countArgs, err := buildSelect("posts", Query{
		Filters: []Filter{Eq("status", "active")},
		Order:   []Order{{Column: "created_at", Desc: true}},
		Limit:   10,
		Offset:  20,
		Count:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(*) FROM "posts" WHERE "status" = $1`, countSQL)
	assert.Equal(t, `SELECT * FROM "posts" WHERE "status" = $1 ORDER BY "created_at" DESC NULLS LAST LIMIT $2 OFFSET $3`, sql)
	if diff := cmp.Diff([]any{"active", 10, 20}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"active"}, countArgs); diff != "" {
		t.Errorf("count args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSelectColumnsAndSearch(t *testing.T) {
	_, sql, args, _, err := buildSelect("influencers", Query{
		Select:  []string{"id", "name"},
		Filters: []Filter{Eq("verified", true)},
		Any:     []Filter{ILike("name", "%ada%"), ILike("email", "%ada%")},
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT "id", "name" FROM "influencers" WHERE "verified" = $1 AND ("name" ILIKE $2 OR "email" ILIKE $3)`, sql)
	assert.Len(t, args, 3)
}

func TestBuildSelectSearch(t *testing.T) {
	_, sql, args, _, err := buildSelect("podcasts", Query{
		Search: &Search{Term: "gaming", Columns: []string{"title", "host"}},
		Limit:  20,
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "podcasts" WHERE ("title"::text ILIKE $1 OR "host"::text ILIKE $1) LIMIT $2`, sql)
	assert.Equal(t, []any{"%gaming%", 20}, args)
}

func TestBuildSelectRejectsBadIdentifiers(t *testing.T) {
	tests := []Query{
		{Select: []string{"name; drop"}},
		{Filters: []Filter{Eq("a b", 1)}},
		{Order: []Order{{Column: "x)--"}}},
	}
	for _, q := range tests {
		_, _, _, _, err := buildSelect("posts", q)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	}

	_, _, _, _, err := buildSelect("posts where 1=1", Query{})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestBuildInsert(t *testing.T) {
	rows := []core.Record{
		core.NewRecord(core.Pair{Key: "title", Value: "a"}),
		core.NewRecord(core.Pair{Key: "title", Value: "b"}, core.Pair{Key: "status", Value: "draft"}),
	}
	sql, args, err := buildInsert("posts", rows, InsertOptions{})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "posts" ("title", "status") VALUES ($1, DEFAULT), ($2, $3) RETURNING *`, sql)
	if diff := cmp.Diff([]any{"a", "b", "draft"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildInsertConflicts(t *testing.T) {
	row := core.NewRecord(core.Pair{Key: "invoice", Value: "INV-1"}, core.Pair{Key: "amount", Value: 10.0})

	sql, _, err := buildInsert("payments", []core.Record{row}, InsertOptions{
		Upsert:     true,
		OnConflict: []string{"invoice"},
		Returning:  []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "payments" ("invoice", "amount") VALUES ($1, $2) ON CONFLICT ("invoice") DO UPDATE SET "amount" = EXCLUDED."amount" RETURNING "id"`, sql)

	sql, _, err = buildInsert("payments", []core.Record{row}, InsertOptions{IgnoreDuplicates: true})
	require.NoError(t, err)
	assert.Contains(t, sql, `ON CONFLICT ("id") DO NOTHING`)

	_, _, err = buildInsert("payments", nil, InsertOptions{})
	assert.ErrorIs(t, err, ErrNoValues)
}

func TestBuildInsertStoresShapedValues(t *testing.T) {
	row := core.NewRecord(core.Pair{Key: "avatar", Value: core.Media{Src: "https://x/a.png", Name: "A"}})
	_, args, err := buildInsert("influencers", []core.Record{row}, InsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{"https://x/a.png"}, args)
}

func TestBuildUpdate(t *testing.T) {
	values := core.NewRecord(core.Pair{Key: "title", Value: "x"}, core.Pair{Key: "views", Value: 3})
	sql, args, err := buildUpdate("posts", values, []Filter{Eq("id", 5)}, nil, true)
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "posts" SET "title" = $1, "views" = $2 WHERE "id" = $3 RETURNING *`, sql)
	assert.Equal(t, []any{"x", 3, 5}, args)

	_, _, err = buildUpdate("posts", core.Record{}, []Filter{Eq("id", 5)}, nil, true)
	assert.ErrorIs(t, err, ErrNoValues)
}

func TestBuildDeleteByIDs(t *testing.T) {
	sql, args, err := buildDelete("posts", []Filter{In("id", []string{"3", "7", "9"})})
	require.NoError(t, err)

	assert.Equal(t, `DELETE FROM "posts" WHERE "id" = ANY($1)`, sql)
	assert.Equal(t, []any{[]string{"3", "7", "9"}}, args)
}

func TestBuildRPC(t *testing.T) {
	sql, args, err := buildRPC("recent_payments", map[string]any{"days": 90, "currency": "usd"})
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "recent_payments"(currency => @currency, days => @days)`, sql)
	assert.Equal(t, pgx.NamedArgs{"days": 90, "currency": "usd"}, args)

	_, _, err = buildRPC("recent_payments", map[string]any{"days; drop": 1})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	sql, _, err = buildRPC("refresh_stats", nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "refresh_stats"()`, sql)
}

// execRecorder is a DBTX that records Exec calls.
type execRecorder struct {
	sql      []string
	affected int64
}

func (e *execRecorder) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	e.sql = append(e.sql, sql)
	return pgconn.NewCommandTag("DELETE " + strconv.FormatInt(e.affected, 10)), nil
}

func (e *execRecorder) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	panic("unexpected Query")
}

func (e *execRecorder) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	panic("unexpected QueryRow")
}

func TestBulkOperationsRefuseEmptyFilters(t *testing.T) {
	db := &execRecorder{}
	c := New(db)

	_, err := c.BulkDelete(context.Background(), "posts", nil)
	assert.ErrorIs(t, err, ErrEmptyFilter)

	_, err = c.BulkUpdate(context.Background(), "posts", core.NewRecord(core.Pair{Key: "a", Value: 1}), nil)
	assert.ErrorIs(t, err, ErrEmptyFilter)

	assert.Empty(t, db.sql, "nothing reaches the database")
}

func TestBulkDeleteSingleStatement(t *testing.T) {
	db := &execRecorder{affected: 3}
	n, err := New(db).BulkDelete(context.Background(), "posts", []Filter{In("id", []string{"3", "7", "9"})})
	require.NoError(t, err)

	assert.Equal(t, int64(3), n)
	assert.Len(t, db.sql, 1)
}

func TestDeleteMissingRow(t *testing.T) {
	err := New(&execRecorder{}).Delete(context.Background(), "posts", 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
