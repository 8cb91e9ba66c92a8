package backend

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdent reports whether name is a plain or schema-qualified identifier.
func validIdent(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if !identRe.MatchString(part) {
			return false
		}
	}
	return true
}

// quoteIdent validates and quotes a table, column or function name.
func quoteIdent(name string) (string, error) {
	if !validIdent(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return pgx.Identifier(strings.Split(name, ".")).Sanitize(), nil
}

// quoteIdents quotes each name, failing on the first invalid one.
func quoteIdents(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, err := quoteIdent(n)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// selectList renders a column list, "*" when columns is empty.
func selectList(columns []string) (string, error) {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return "*", nil
	}
	q, err := quoteIdents(columns)
	if err != nil {
		return "", err
	}
	return strings.Join(q, ", "), nil
}
