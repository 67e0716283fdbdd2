package types

import "strings"

// operators is the vocabulary accepted in the middle position of a
// where or having clause.
var operators = map[string]struct{}{
	"=": {}, "<": {}, ">": {}, "<=": {}, ">=": {}, "<>": {}, "!=": {}, "<=>": {},
	"is": {}, "is not": {},
	"like": {}, "like binary": {}, "not like": {}, "ilike": {},
	"&": {}, "|": {}, "^": {}, "<<": {}, ">>": {},
	"rlike": {}, "not rlike": {}, "regexp": {}, "not regexp": {},
	"~": {}, "~*": {}, "!~": {}, "!~*": {}, "similar to": {}, "not similar to": {},
	"not ilike": {}, "~~*": {}, "!~~*": {},
	"in": {}, "not in": {}, "between": {}, "not between": {},
}

// IsOperator reports whether op belongs to the operator vocabulary.
func IsOperator(op string) bool {
	_, ok := operators[strings.ToLower(strings.TrimSpace(op))]
	return ok
}
