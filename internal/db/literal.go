package db

import "strings"

// EscapeLiteral doubles single quotes so s can sit inside a SQL string literal.
// It is not idempotent: call it exactly once per value.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
