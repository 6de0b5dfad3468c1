// Package record defines the column values exchanged between callers and
// storage, and their canonical JSON encoding.
//
// A Record is a flat row: column name to Value. Value is sealed to Null,
// String, Int and Bool so every record has exactly one deterministic
// encoding. Floats are rejected at every boundary (JSON input, SQL scan,
// canonical output).
//
// MarshalCanonical implements RFC 8785 (sorted keys by UTF-16 code units,
// NFC-normalized strings, no HTML escaping). Trace snapshots and CLI output
// are rendered through it so golden files are byte-stable.
package record
