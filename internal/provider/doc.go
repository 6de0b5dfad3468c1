// Package provider implements the data mediator: the uniform
// address-based interface over the image catalog and history log.
//
// Every public operation is one resolve → build → execute → notify
// pipeline:
//
//  1. the Router resolves the address to a route Kind
//  2. item routes seed the predicate builder with the key-equality scope,
//     and the caller's selection is ANDed after it
//  3. the statement runs on the readable or writable storage handle
//  4. mutations publish a change through the notification Gate
//
// Deleting the whole-store (root) address is the one exception: it resets
// storage instead of deleting rows and always reports one affected row.
//
// # Handle lifecycle
//
// The provider owns a two-state lifecycle, Active and ResetPending. Normal
// operations hold the read side of a lifecycle lock; reset holds the write
// side, so no operation observes a half torn-down handle. A failed reset
// leaves the provider ResetPending and every operation except another
// whole-store delete fails with STORE_UNAVAILABLE.
//
// Cursors returned by Query keep a storage connection until closed. Close
// them before deleting the whole store.
package provider
