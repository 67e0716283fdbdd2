package types

// WhereKind identifies the shape of a condition node.
type WhereKind int

const (
	WhereBasic WhereKind = iota
	WhereColumn
	WhereNull
	WhereIn
	WhereInSub
	WhereBetween
	WhereRaw
	WhereNested
	WhereExists
)

// Boolean connectors between condition nodes.
const (
	And = "and"
	Or  = "or"
)

// WhereNode is one condition in a where or having list.
type WhereNode struct {
	Kind     WhereKind
	Boolean  string
	Column   string
	Operator string
	Value    Value   // WhereBasic
	Second   string  // WhereColumn
	Values   []Value // WhereIn, WhereBetween
	Negated  bool    // WhereNull, WhereIn, WhereInSub, WhereBetween, WhereExists
	SQL      string  // WhereRaw
	Query    *Query  // WhereNested, WhereInSub, WhereExists
}

// SelectItem is one entry of the select list.
type SelectItem struct {
	Expr  string
	Alias string
	Sub   *Query
}

// FromItem is one source of the from clause.
type FromItem struct {
	Table string
	Alias string
	Sub   *Query
}

// Join is a compiled join clause. On carries ? placeholders whose values
// live in the join bucket.
type Join struct {
	Type  string
	Table string
	On    string
}

// Union attaches another select to the query.
type Union struct {
	Query *Query
	SQL   string
	All   bool
}

// LockMode selects a row locking clause.
type LockMode int

const (
	LockNone LockMode = iota
	LockForUpdate
	LockShared
)

// Query is the structured form of a statement under construction. Raw,
// when set, replaces the compiled select; it carries raw SQL sub-selects.
type Query struct {
	Raw       string
	Prefix    string
	Table     string
	Distinct  bool
	Selects   []SelectItem
	From      []FromItem
	Joins     []Join
	Wheres    []WhereNode
	Groups    []string
	Havings   []WhereNode
	Orders    []string
	Unions    []Union
	Limit     *int
	Offset    *int
	LimitPair bool
	Lock      LockMode
	UniqueBy  []string
	Empty     bool
	Bindings  *Bindings
}

// NewQuery returns an empty query with its own binding store.
func NewQuery(prefix string) *Query {
	return &Query{Prefix: prefix, Bindings: NewBindings()}
}

// Clone returns a deep copy of q. Sub-queries are shared: attaching one
// stores a private copy that nothing mutates afterwards.
func (q *Query) Clone() *Query {
	c := *q
	c.Selects = append([]SelectItem(nil), q.Selects...)
	c.From = append([]FromItem(nil), q.From...)
	c.Joins = append([]Join(nil), q.Joins...)
	c.Wheres = append([]WhereNode(nil), q.Wheres...)
	c.Groups = append([]string(nil), q.Groups...)
	c.Havings = append([]WhereNode(nil), q.Havings...)
	c.Orders = append([]string(nil), q.Orders...)
	c.Unions = append([]Union(nil), q.Unions...)
	c.UniqueBy = append([]string(nil), q.UniqueBy...)
	if q.Limit != nil {
		n := *q.Limit
		c.Limit = &n
	}
	if q.Offset != nil {
		n := *q.Offset
		c.Offset = &n
	}
	c.Bindings = q.Bindings.Clone()
	return &c
}

// InsertRow is one row of an insert: values aligned with column names.
type InsertRow struct {
	Columns []string
	Values  []any
}

// Assignment is one SET pair of an update.
type Assignment struct {
	Column string
	Value  any
	Raw    string
}

// Statement is compiled SQL and its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}
