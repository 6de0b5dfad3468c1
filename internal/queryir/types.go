package queryir

import "github.com/roach88/dataprovider/internal/record"

// Statement is a single relational operation against one table.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode()
}

// Predicate is a row filter.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Fragment: caller- or system-supplied SQL text with '?' placeholders
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Select reads rows from Table.
//
//	SELECT [DISTINCT] <columns> FROM <table> [WHERE <filter>] ORDER BY <order>
//
// Empty Columns selects every column. Empty OrderBy uses the compiler's
// default ordering; the compiler always appends a deterministic tiebreaker.
type Select struct {
	Table    string
	Columns  []string
	Distinct bool
	Filter   Predicate // nil = whole table
	OrderBy  []OrderTerm
}

func (Select) statementNode() {}

// Insert adds one row to Table.
//
// An empty Values list inserts a row of column defaults.
type Insert struct {
	Table  string
	Values []Assignment
}

func (Insert) statementNode() {}

// Update modifies every row of Table matching Filter.
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate // nil = whole table
}

func (Update) statementNode() {}

// Delete removes every row of Table matching Filter.
type Delete struct {
	Table  string
	Filter Predicate // nil = whole table
}

func (Delete) statementNode() {}

// Assignment binds a column to a value in INSERT or UPDATE.
type Assignment struct {
	Column string
	Value  record.Value
}

// OrderTerm is one ORDER BY key.
type OrderTerm struct {
	Column     string
	Descending bool
}

// Fragment is a SQL boolean expression with positional placeholders.
//
// Example:
//
//	Fragment{SQL: "title LIKE ? AND width > ?", Args: []record.Value{
//	  record.String("cat%"), record.Int(100),
//	}}
//
// Args bind to the '?' placeholders in order. The compiler wraps SQL in
// parentheses before joining it with other fragments.
type Fragment struct {
	SQL  string
	Args []record.Value
}

func (Fragment) predicateNode() {}

// And is a conjunction of predicates. Empty Predicates means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Equals returns the fragment "<column> = ?" bound to v.
//
// column must be a valid identifier; it is not validated here.
func Equals(column string, v record.Value) Fragment {
	return Fragment{SQL: column + " = ?", Args: []record.Value{v}}
}
