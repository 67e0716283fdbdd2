package driver

import (
	"strconv"
	"strings"
)

// Placeholder is a bind parameter style.
type Placeholder int

const (
	Question Placeholder = iota // ?
	Dollar                      // $1
	AtP                         // @p1
)

// Rebind rewrites ? placeholders outside quoted text into style.
func Rebind(style Placeholder, query string) string {
	if style == Question || !strings.Contains(query, "?") {
		return query
	}
	var out strings.Builder
	out.Grow(len(query) + 8)
	var quote rune
	n := 0
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			n++
			if style == Dollar {
				out.WriteString("$" + strconv.Itoa(n))
			} else {
				out.WriteString("@p" + strconv.Itoa(n))
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
