package types

// Value is a condition or assignment operand: either a Literal that is
// bound as a parameter or an Expression that is emitted verbatim.
type Value interface {
	isValue()
}

// Expression is raw SQL text inserted into a statement without binding.
type Expression struct {
	SQL string
}

func (Expression) isValue() {}

// String returns the raw SQL text.
func (e Expression) String() string { return e.SQL }

// Literal wraps a value that is bound through a placeholder.
type Literal struct {
	V any
}

func (Literal) isValue() {}

// Raw creates an Expression.
func Raw(sql string) Expression {
	return Expression{SQL: sql}
}

// ValueOf classifies v as an Expression or a Literal.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case Expression:
		return x
	case *Expression:
		if x != nil {
			return *x
		}
		return Literal{}
	case Literal:
		return x
	}
	return Literal{V: v}
}

// Unwrap returns the underlying Go value of a Literal, or v itself.
func Unwrap(v any) any {
	if l, ok := v.(Literal); ok {
		return l.V
	}
	return v
}

// IsExpression reports whether v is an Expression.
func IsExpression(v any) bool {
	switch x := v.(type) {
	case Expression:
		return true
	case *Expression:
		return x != nil
	}
	return false
}
