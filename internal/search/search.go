// Package search implements rich search: a debounced, case-insensitive
// substring search across a table's text columns. Every issued query carries
// a monotonic request id and only the latest request's results are
// delivered.
package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/fastro/internal/backend"
	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/logging"
)

// DefaultDelay is the debounce delay between the last keystroke and the query.
const DefaultDelay = 400 * time.Millisecond

// DefaultLimit caps the number of results.
const DefaultLimit = 10

// Sequencer issues monotonic request ids.
type Sequencer struct {
	last atomic.Uint64
}

// Next returns a new id, greater than every id issued before.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// IsLatest reports whether id is the most recently issued id.
func (s *Sequencer) IsLatest(id uint64) bool {
	return s.last.Load() == id
}

// Fetcher runs table queries.
type Fetcher interface {
	Fetch(ctx context.Context, table string, q backend.Query) (backend.Result, error)
}

// Result is the outcome of one search request.
type Result struct {
	ID    uint64
	Table string
	Term  string
	Rows  []core.Record
	Err   error
}

// Observer is told about every completed request and whether its result was
// discarded as stale.
type Observer func(table string, stale bool)

// Searcher searches one table.
type Searcher struct {
	fetcher Fetcher
	table   string
	columns []string
	delay   time.Duration
	limit   int
	observe Observer

	seq Sequencer

	mu      sync.Mutex
	timer   *time.Timer
	pending context.CancelFunc
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(s *Searcher) { s.delay = d }
}

// WithLimit sets the result cap.
func WithLimit(n int) Option {
	return func(s *Searcher) { s.limit = n }
}

// WithObserver sets a completion observer.
func WithObserver(fn Observer) Option {
	return func(s *Searcher) { s.observe = fn }
}

// New creates a searcher over columns of table.
func New(fetcher Fetcher, table string, columns []string, opts ...Option) *Searcher {
	s := &Searcher{
		fetcher: fetcher,
		table:   table,
		columns: columns,
		delay:   DefaultDelay,
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search issues a request for term immediately. The boolean is false when a
// newer request was issued before this one completed; its result must then be
// ignored. A blank term returns no rows without querying.
func (s *Searcher) Search(ctx context.Context, term string) (Result, bool) {
	id := s.seq.Next()
	res := Result{ID: id, Table: s.table, Term: term}

	term = strings.TrimSpace(term)
	if term == "" {
		res.Rows = []core.Record{}
		return res, s.seq.IsLatest(id)
	}

	out, err := s.fetcher.Fetch(ctx, s.table, backend.Query{
		Search: &backend.Search{Term: term, Columns: s.columns},
		Limit:  s.limit,
	})
	if err != nil {
		res.Err = err
	} else {
		res.Rows = out.Rows
	}

	latest := s.seq.IsLatest(id)
	if s.observe != nil {
		s.observe(s.table, !latest)
	}
	if !latest {
		logging.WithFields(ctx, "table", s.table).Debug("discarded stale search", "request_id", id)
	}
	return res, latest
}

// Debounce schedules a search for term after the delay, replacing any
// scheduled or running search. deliver is called only with the result of the
// latest request.
func (s *Searcher) Debounce(ctx context.Context, term string, deliver func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	if s.pending != nil {
		s.pending()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.pending = cancel
	s.timer = time.AfterFunc(s.delay, func() {
		res, latest := s.Search(runCtx, term)
		if latest && runCtx.Err() == nil {
			deliver(res)
		}
	})
}

// Stop cancels any scheduled or running search.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
}
