package storage

import (
	"strings"
)

// Conditions accumulates WHERE clauses and their arguments.
type Conditions struct {
	clauses []string
	args    []any
}

// Eq adds "column = ?" when value is non-empty.
func (c *Conditions) Eq(column, value string) {
	if value == "" {
		return
	}
	c.clauses = append(c.clauses, column+" = ?")
	c.args = append(c.args, value)
}

// Add appends a raw clause with its arguments.
func (c *Conditions) Add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

// Search adds a case-insensitive substring match over columns when term is
// non-empty. Folding is Unicode-aware on both sides.
func (c *Conditions) Search(term string, columns ...string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || len(columns) == 0 {
		return
	}
	pattern := "%" + escapeLike(term) + "%"
	ors := make([]string, len(columns))
	for i, col := range columns {
		ors[i] = FoldFunc + "(" + col + ") LIKE ? ESCAPE '\\'"
		c.args = append(c.args, pattern)
	}
	c.clauses = append(c.clauses, "("+strings.Join(ors, " OR ")+")")
}

// Where renders " WHERE a AND b", or "" when empty.
func (c *Conditions) Where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// Args returns the accumulated arguments in clause order.
func (c *Conditions) Args() []any {
	return c.args
}

// OrderBy renders an ORDER BY clause for a whitelisted sort key.
// Unknown keys fall back to fallback, which must be a trusted SQL fragment.
func OrderBy(sortKey, dir string, columns map[string]string, fallback string) string {
	col, ok := columns[sortKey]
	if !ok {
		return " ORDER BY " + fallback
	}
	if strings.EqualFold(dir, "desc") {
		return " ORDER BY " + col + " DESC"
	}
	return " ORDER BY " + col + " ASC"
}

// Page renders LIMIT/OFFSET when limit is positive.
func Page(limit, offset int) (string, []any) {
	if limit <= 0 {
		return "", nil
	}
	if offset < 0 {
		offset = 0
	}
	return " LIMIT ? OFFSET ?", []any{limit, offset}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
