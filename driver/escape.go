package driver

import "strings"

var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"\x1a", "\\Z",
	"'", "\\'",
	"\"", "\\\"",
)

// EscapeMySQL quotes value as a MySQL string literal.
func EscapeMySQL(value string) string {
	return "'" + mysqlEscaper.Replace(value) + "'"
}

// EscapeStandard quotes value as an ANSI string literal.
func EscapeStandard(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
