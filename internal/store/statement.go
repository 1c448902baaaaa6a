package store

import (
	"context"
	"strings"
)

// checkSingleStatement fails with ErrMultipleStatements when query holds
// more than one statement. Candidate boundaries are the semicolons outside
// literals and comments; the first prefix that SQLite prepares cleanly is
// the first statement, so semicolons inside a trigger body are not
// mistaken for one. Nothing is executed here.
func (c *Conn) checkSingleStatement(ctx context.Context, query string) error {
	for _, end := range statementEnds(query) {
		stmt, err := c.db.PrepareContext(ctx, query[:end])
		if err != nil {
			continue
		}
		stmt.Close()
		if !isTrivia(query[end:]) {
			return ErrMultipleStatements
		}
		return nil
	}
	// nothing prepares: running the query reports the error
	return nil
}

// statementEnds returns the offset just past every semicolon outside
// string literals, quoted identifiers and comments, followed by len(query).
func statementEnds(query string) []int {
	var ends []int
	for i := 0; i < len(query); i++ {
		switch ch := query[i]; {
		case ch == '\'' || ch == '"' || ch == '`':
			i = skipUntil(query, i+1, string(ch))
		case ch == '[':
			i = skipUntil(query, i+1, "]")
		case strings.HasPrefix(query[i:], "--"):
			i = skipUntil(query, i+2, "\n")
		case strings.HasPrefix(query[i:], "/*"):
			i = skipUntil(query, i+2, "*/")
		case ch == ';':
			ends = append(ends, i+1)
		}
	}
	if len(ends) == 0 || ends[len(ends)-1] != len(query) {
		ends = append(ends, len(query))
	}
	return ends
}

// skipUntil returns the index of the last byte of the first closer at or
// after from, or the last index of s when the closer is missing.
func skipUntil(s string, from int, closer string) int {
	if from > len(s) {
		return len(s) - 1
	}
	idx := strings.Index(s[from:], closer)
	if idx < 0 {
		return len(s) - 1
	}
	return from + idx + len(closer) - 1
}

// isTrivia reports whether s holds only whitespace, semicolons and comments
func isTrivia(s string) bool {
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == ';':
		case strings.HasPrefix(s[i:], "--"):
			i = skipUntil(s, i+2, "\n")
		case strings.HasPrefix(s[i:], "/*"):
			i = skipUntil(s, i+2, "*/")
		default:
			return false
		}
	}
	return true
}
