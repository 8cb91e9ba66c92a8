package backend

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates SQL conditions and their positional arguments.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Arg binds v and returns its placeholder.
func (wb *WhereBuilder) Arg(v any) string {
	p := fmt.Sprintf("$%d", wb.argIndex)
	wb.args = append(wb.args, v)
	wb.argIndex++
	return p
}

// Add appends "column = $n" for a trusted column name. Empty strings and nil
// values are skipped.
func (wb *WhereBuilder) Add(column string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
	}
	wb.conditions = append(wb.conditions, column+" = "+wb.Arg(value))
}

// AddTimestampRange appends an inclusive range on a trusted column.
func (wb *WhereBuilder) AddTimestampRange(column string, start, end any) {
	wb.conditions = append(wb.conditions, column+" >= "+wb.Arg(start))
	wb.conditions = append(wb.conditions, column+" <= "+wb.Arg(end))
}

// AddFilters appends each filter, ANDed.
func (wb *WhereBuilder) AddFilters(filters []Filter) error {
	for _, f := range filters {
		cond, err := f.condition(wb)
		if err != nil {
			return err
		}
		wb.conditions = append(wb.conditions, cond)
	}
	return nil
}

// AddAny appends the filters as one ORed group.
func (wb *WhereBuilder) AddAny(filters []Filter) error {
	if len(filters) == 0 {
		return nil
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		cond, err := f.condition(wb)
		if err != nil {
			return err
		}
		parts[i] = cond
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	return nil
}

// AddSearch appends a case-insensitive substring match of term across
// columns, sharing one bound argument. Blank terms are skipped.
func (wb *WhereBuilder) AddSearch(term string, columns []string) error {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return nil
	}
	quoted, err := quoteIdents(columns)
	if err != nil {
		return err
	}
	p := wb.Arg(ContainsPattern(term))
	parts := make([]string, len(quoted))
	for i, c := range quoted {
		parts[i] = c + "::text ILIKE " + p
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	return nil
}

// Len returns the number of conditions.
func (wb *WhereBuilder) Len() int {
	return len(wb.conditions)
}

// Build returns the WHERE clause (with a leading space) and every bound
// argument. Without conditions the clause is empty.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", wb.args
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex returns the placeholder index the next argument will take.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}
