// Package contract defines the public surface shared by every dataprovider
// component: the default authority, table and column names, content types,
// recognized address options, and the error taxonomy.
//
// # Addresses
//
//	content://<authority>/images            image collection
//	content://<authority>/images/<imageId>  single image
//	content://<authority>/history           history collection
//	content://<authority>/history/<rowId>   single history entry
//	content://<authority>                   whole store (administrative)
//
// # Options
//
// Two boolean query options are recognized on any address:
//   - distinct: SELECT DISTINCT on reads; ignored by mutations
//   - caller_is_sync_agent: suppresses change notifications for mutations
//
// # Errors
//
// Every failure surfaced to callers is a *Error carrying one ErrorCode.
// Errors are terminal for the operation; nothing is retried.
package contract
