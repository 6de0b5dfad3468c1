// Package querysql compiles queryir statements to parameterized SQLite SQL.
//
// Every SELECT carries an ORDER BY ending in a deterministic tiebreaker, so
// identical stores always return rows in identical order. Every value is
// bound through a '?' placeholder.
package querysql
