// Package queryir provides the statement intermediate representation (IR)
// between the predicate builder and the SQL backend.
//
// ARCHITECTURE:
//
//	[predicate.Builder] → [Statement IR] → [querysql.Compiler] → SQLite
//
// The builder never concatenates SQL itself. It accumulates predicates and
// hands a Statement to the compiler, which owns clause assembly, parameter
// ordering and the mandatory ORDER BY.
//
// SEALED INTERFACES:
//
// Statement and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch s := stmt.(type) {
//	case Select:
//	case Insert:
//	case Update:
//	case Delete:
//	}
//
// FRAGMENTS:
//
// Caller predicates arrive as SQL text with positional '?' placeholders.
// Fragments are validated lexically (Validate) before compilation: the
// placeholder count outside string literals must equal the argument count,
// parentheses must balance, string literals must terminate, and statement
// separators or comments outside literals are rejected. A fragment that
// passes cannot escape the parentheses the compiler wraps it in, so a caller
// fragment can only narrow the system-owned scope.
//
// Values are always parameterized, never interpolated.
package queryir
