package core

import (
	"sort"
	"strings"
	"time"
)

// GridState is the sort, filter and pagination state of a grid view.
type GridState struct {
	Page     int // 1-based
	PageSize int
	Sorts    []SortSpec
	Filters  []ColumnFilter
	Global   string // Case-insensitive match against every column
}

// PageView is one page of a table.
type PageView struct {
	Columns    []ColumnDef
	Rows       []Record
	Page       int
	PageSize   int
	TotalRows  int
	TotalPages int
	Empty      bool
	EmptyState string
}

// HasPrev reports whether a previous page exists.
func (p PageView) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p PageView) HasNext() bool { return p.Page < p.TotalPages }

// Page returns page n (1-based) of the unfiltered collection.
func (t *Table) Page(n int) PageView {
	return t.View(GridState{Page: n})
}

// View applies filters and sorts to the collection and returns the requested
// page. Pagination is skipped when the table disables it.
func (t *Table) View(state GridState) PageView {
	cols := t.Columns()
	rows := t.Rows()

	if t.cfg.Features.Filtering {
		rows = filterRows(rows, state.Filters, state.Global, cols)
	}
	sortRows(rows, state.Sorts)

	size := state.PageSize
	if size <= 0 {
		size = t.cfg.PageSize
	}
	view := PageView{
		Columns:    cols,
		PageSize:   size,
		TotalRows:  len(rows),
		Empty:      len(rows) == 0,
		EmptyState: t.cfg.EmptyState,
	}

	if !t.cfg.Features.Pagination {
		view.Rows, view.Page, view.TotalPages = rows, 1, 1
		return view
	}

	view.TotalPages = max(1, (len(rows)+size-1)/size)
	view.Page = min(max(1, state.Page), view.TotalPages)
	start := (view.Page - 1) * size
	end := min(start+size, len(rows))
	view.Rows = rows[start:end]
	return view
}

func filterRows(rows []Record, filters []ColumnFilter, global string, cols []ColumnDef) []Record {
	global = strings.ToLower(strings.TrimSpace(global))
	if len(filters) == 0 && global == "" {
		return rows
	}

	out := rows[:0]
	for _, r := range rows {
		if matchesAll(r, filters) && matchesGlobal(r, global, cols) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r Record, filters []ColumnFilter) bool {
	for _, f := range filters {
		if !matchFilter(r.Value(f.Column), f) {
			return false
		}
	}
	return true
}

func matchesGlobal(r Record, global string, cols []ColumnDef) bool {
	if global == "" {
		return true
	}
	for _, c := range cols {
		if strings.Contains(strings.ToLower(c.Cell(r).Text), global) {
			return true
		}
		if strings.Contains(strings.ToLower(ToText(r.Value(c.Key))), global) {
			return true
		}
	}
	return false
}

// matchFilter applies one filter to a cell value. Ordered operators compare
// numerically when both sides are numbers, by date when both are dates, and
// as case-insensitive text otherwise. Empty cells never satisfy an ordered
// operator.
func matchFilter(value any, f ColumnFilter) bool {
	text := strings.ToLower(ToText(value))
	want := strings.ToLower(strings.TrimSpace(f.Value))

	switch f.Operator {
	case OpContains:
		return strings.Contains(text, want)
	case OpEquals:
		if c, ok := compareValues(value, f.Value); ok {
			return c == 0
		}
		return text == want
	case OpStartsWith:
		return strings.HasPrefix(text, want)
	case OpEndsWith:
		return strings.HasSuffix(text, want)
	case OpIn:
		for _, v := range strings.Split(want, ",") {
			if strings.TrimSpace(v) == text {
				return true
			}
		}
		return false
	case OpGreater, OpGreaterEq, OpLess, OpLessEq:
		if value == nil {
			return false
		}
		c, ok := compareValues(value, f.Value)
		if !ok {
			c = strings.Compare(text, want)
		}
		switch f.Operator {
		case OpGreater:
			return c > 0
		case OpGreaterEq:
			return c >= 0
		case OpLess:
			return c < 0
		default:
			return c <= 0
		}
	default:
		return true
	}
}

// compareValues compares a cell value with a filter or another cell value.
func compareValues(a, b any) (int, bool) {
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	ta, oka := asTime(a)
	tb, okb := asTime(b)
	if oka && okb {
		return ta.Compare(tb), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return ParseDate(t)
	default:
		return time.Time{}, false
	}
}

// sortRows sorts stably by each spec in order. Nil values sort last.
func sortRows(rows []Record, sorts []SortSpec) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range sorts {
			a, b := rows[i].Value(s.Column), rows[j].Value(s.Column)
			if a == nil || b == nil {
				if (a == nil) == (b == nil) {
					continue
				}
				return b == nil
			}
			c, ok := compareValues(a, b)
			if !ok {
				c = strings.Compare(strings.ToLower(ToText(a)), strings.ToLower(ToText(b)))
			}
			if c == 0 {
				continue
			}
			if strings.EqualFold(s.Dir, "desc") {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
