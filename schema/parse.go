package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var columnTypePattern = regexp.MustCompile(`^\s*([A-Za-z]+)\s*(?:\((.*)\))?`)

// ParseColumnType builds a column from a reported type such as
// "int(10) unsigned", "decimal(8,2)" or "enum('a','b')".
func ParseColumnType(name, raw string) (*Column, error) {
	m := columnTypePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("column %s: unrecognised type %q", name, raw)
	}
	typ := strings.ToLower(m[1])
	params := m[2]
	col := NewColumn(name, typ)

	switch typ {
	case Enum, Set:
		values, err := splitQuoted(params)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		col.Values(values...)
	case Decimal:
		if params != "" {
			parts := strings.Split(params, ",")
			length := make([]int, 0, len(parts))
			for _, p := range parts {
				n, err := strconv.Atoi(strings.TrimSpace(p))
				if err != nil {
					return nil, fmt.Errorf("column %s: decimal length %q: %w", name, params, err)
				}
				length = append(length, n)
			}
			col.Length(length...)
		}
	default:
		if params != "" {
			first := strings.TrimSpace(strings.SplitN(params, ",", 2)[0])
			n, err := strconv.Atoi(first)
			if err != nil {
				return nil, fmt.Errorf("column %s: length %q: %w", name, params, err)
			}
			col.Length(n)
		}
	}

	if strings.Contains(strings.ToLower(raw), "unsigned") {
		col.Unsigned()
	}
	return col, nil
}

// splitQuoted splits a list of single-quoted SQL strings. Doubled quotes
// and backslash escapes inside a value are unescaped.
func splitQuoted(s string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote && ch == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case inQuote && ch == '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				cur.WriteByte('\'')
				i++
				continue
			}
			inQuote = false
			out = append(out, cur.String())
			cur.Reset()
		case inQuote:
			cur.WriteByte(ch)
		case ch == '\'':
			inQuote = true
		case ch == ',' || ch == ' ':
		default:
			return nil, fmt.Errorf("unexpected %q in value list %q", ch, s)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated value list %q", s)
	}
	return out, nil
}
