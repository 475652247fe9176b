package sqlite

import "strings"

// placeholder returns a placeholder for SQLite (uses ?).
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// buildMatchQuery turns free text into an FTS5 MATCH expression. Each token
// is quoted so user input cannot inject FTS5 operators, and tokens are OR'd
// so any matching term contributes to the bm25 score.
func buildMatchQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		terms = append(terms, `"`+strings.ReplaceAll(field, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}
