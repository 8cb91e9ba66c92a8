package backend

import (
	"fmt"
	"sort"
	"strings"
)

// Op is a filter operator.
type Op string

const (
	OpEq          Op = "eq"
	OpNeq         Op = "neq"
	OpGt          Op = "gt"
	OpGte         Op = "gte"
	OpLt          Op = "lt"
	OpLte         Op = "lte"
	OpLike        Op = "like"
	OpILike       Op = "ilike"
	OpIn          Op = "in"
	OpContains    Op = "contains"
	OpContainedBy Op = "containedBy"
	OpRangeGt     Op = "rangeGt"
	OpRangeGte    Op = "rangeGte"
	OpRangeLt     Op = "rangeLt"
	OpRangeLte    Op = "rangeLte"
	OpTextSearch  Op = "textSearch"
)

// Filter is one column condition.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(col string, v any) Filter          { return Filter{col, OpEq, v} }
func Neq(col string, v any) Filter         { return Filter{col, OpNeq, v} }
func Gt(col string, v any) Filter          { return Filter{col, OpGt, v} }
func Gte(col string, v any) Filter         { return Filter{col, OpGte, v} }
func Lt(col string, v any) Filter          { return Filter{col, OpLt, v} }
func Lte(col string, v any) Filter         { return Filter{col, OpLte, v} }
func Like(col, pattern string) Filter      { return Filter{col, OpLike, pattern} }
func ILike(col, pattern string) Filter     { return Filter{col, OpILike, pattern} }
func In(col string, values any) Filter     { return Filter{col, OpIn, values} }
func Contains(col string, v any) Filter    { return Filter{col, OpContains, v} }
func ContainedBy(col string, v any) Filter { return Filter{col, OpContainedBy, v} }
func RangeGt(col string, v any) Filter     { return Filter{col, OpRangeGt, v} }
func RangeGte(col string, v any) Filter    { return Filter{col, OpRangeGte, v} }
func RangeLt(col string, v any) Filter     { return Filter{col, OpRangeLt, v} }
func RangeLte(col string, v any) Filter    { return Filter{col, OpRangeLte, v} }
func TextSearch(col, q string) Filter      { return Filter{col, OpTextSearch, q} }

// Match returns one equality filter per entry, ordered by column.
func Match(m map[string]any) []Filter {
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	out := make([]Filter, len(cols))
	for i, c := range cols {
		out[i] = Eq(c, m[c])
	}
	return out
}

// condition renders f with its value bound through wb.
func (f Filter) condition(wb *WhereBuilder) (string, error) {
	col, err := quoteIdent(f.Column)
	if err != nil {
		return "", err
	}

	switch f.Op {
	case OpEq:
		if f.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + wb.Arg(dbValue(f.Value)), nil
	case OpNeq:
		if f.Value == nil {
			return col + " IS NOT NULL", nil
		}
		return col + " <> " + wb.Arg(dbValue(f.Value)), nil
	case OpGt:
		return col + " > " + wb.Arg(dbValue(f.Value)), nil
	case OpGte:
		return col + " >= " + wb.Arg(dbValue(f.Value)), nil
	case OpLt:
		return col + " < " + wb.Arg(dbValue(f.Value)), nil
	case OpLte:
		return col + " <= " + wb.Arg(dbValue(f.Value)), nil
	case OpLike:
		return col + " LIKE " + wb.Arg(f.Value), nil
	case OpILike:
		return col + " ILIKE " + wb.Arg(f.Value), nil
	case OpIn:
		return col + " = ANY(" + wb.Arg(f.Value) + ")", nil
	case OpContains:
		return col + " @> " + wb.Arg(f.Value), nil
	case OpContainedBy:
		return col + " <@ " + wb.Arg(f.Value), nil
	case OpRangeGt:
		return col + " >> " + wb.Arg(f.Value), nil
	case OpRangeGte:
		return col + " &> " + wb.Arg(f.Value), nil
	case OpRangeLt:
		return col + " << " + wb.Arg(f.Value), nil
	case OpRangeLte:
		return col + " &< " + wb.Arg(f.Value), nil
	case OpTextSearch:
		return "to_tsvector(" + col + "::text) @@ websearch_to_tsquery(" + wb.Arg(f.Value) + ")", nil
	default:
		return "", fmt.Errorf("unknown filter operator %q", f.Op)
	}
}

// ContainsPattern wraps s for a substring LIKE/ILIKE match, escaping the
// pattern metacharacters it contains.
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
