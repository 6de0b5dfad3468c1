// Package predicate builds constrained relational operations.
//
// A Builder accumulates predicate fragments for one table and finishes with
// exactly one terminal operation (Read, Update or Delete). Fragments are
// ANDed in call order and each is parenthesized, so adding a fragment can
// only narrow the affected row set. The mediator adds the system-owned scope
// (for example image_id = <key>) first and the caller's selection second.
//
//	n, err := predicate.New().
//		Table("images").
//		Where("image_id = ?", record.String(key)).
//		Where(selection, args...).
//		Delete(ctx, db)
//
// Malformed fragments are recorded by Where and reported by the terminal, so
// chains never need intermediate error checks.
package predicate
