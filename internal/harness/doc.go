// Package harness runs YAML scenarios against a fresh provider and checks
// the results.
//
// # Scenario Format
//
//	name: image_round_trip
//	description: "Insert an image and read it back by key"
//	authority: la.il.sample      # optional
//	steps:
//	  - op: insert
//	    address: images
//	    values: { image_id: "k1", title: "first" }
//	    expect:
//	      address: images/k1
//	  - op: query
//	    address: images/k1
//	    columns: [image_id, title]
//	    expect:
//	      count: 1
//	      rows:
//	        - { image_id: "k1", title: "first" }
//	assertions:
//	  - type: notified
//	    address: images/k1
//	  - type: final_state
//	    address: images
//	    count: 1
//
// Addresses may be authority-relative ("images/k1", "/" for the whole
// store) or full content:// addresses.
//
// # Step Operations
//
//   - query: columns, selection, args, sort, distinct, caller
//   - insert: values
//   - update: values, selection, args
//   - delete: selection, args
//   - type
//
// A step whose expect names an error code passes only if the operation
// failed with that code. A step without an expected error fails the
// scenario if the operation errs.
//
// # Assertion Types
//
//   - notified: at least one change was published for address
//   - not_notified: no change was published for address
//   - notification_count: exactly count changes, optionally for address
//   - final_state: a read of address (narrowed by selection) returns count
//     rows and/or rows matching the listed subsets in order
//
// # Deterministic Testing
//
// Every run uses an in-memory store, testutil.DeterministicClock for change
// sequence numbers and testutil.SequentialIDs for change ids, so the same
// scenario always yields a byte-identical Snapshot for golden comparison.
package harness
