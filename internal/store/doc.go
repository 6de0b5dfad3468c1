// Package store provides the SQLite storage engine behind the mediator.
//
// A Store owns two handles onto one database file:
//   - Writable: a single-connection pool (SQLite permits one writer)
//   - Readable: a read-only pool that can run concurrently with the writer
//
// In-memory stores use a uniquely named shared-cache database so the two
// handles are separate pools there too. Their read connections use
// uncommitted reads, so an open cursor never blocks the writer.
//
// # Schema
//
//   - images: keyed image catalog, UNIQUE(image_id)
//   - history: append-only view log, keyed by storage row id
//
// The schema is embedded (schema.sql) and applied idempotently on open;
// incremental changes are tracked with PRAGMA user_version.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout: wait for locks (default 5 seconds)
//   - foreign_keys=ON
//
// # Reset
//
// Reset closes both handles, deletes the database (and its WAL/SHM files),
// and reopens it with a fresh schema. The caller must ensure no operation
// is in flight and no rows are open: closing a pool does not wait for
// busy connections, so rows left open keep reading the old database. The
// mediator guards both with its lifecycle lock and cursor count.
package store
