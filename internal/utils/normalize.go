package utils

import "strings"

// NormalizeName lowercases a name and strips whitespace, hyphens and
// underscores.  Sibling boards, columns and tasks are considered duplicates
// when their normalized names collide.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeSQL is the SQL expression mirroring NormalizeName for the given
// column, so duplicate checks can run inside the database.
func NormalizeSQL(column string) string {
	return "REPLACE(REPLACE(REPLACE(LOWER(" + column + "), ' ', ''), '-', ''), '_', '')"
}
