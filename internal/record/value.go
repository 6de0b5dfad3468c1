package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing a single column value.
// Only Null, String, Int and Bool implement it.
// There is no Float: floats break deterministic encoding and are rejected.
type Value interface {
	columnValue() // Sealed - only these types implement it
}

// Null represents SQL NULL.
type Null struct{}

func (Null) columnValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a TEXT value.
type String string

func (String) columnValue() {}

// Int represents an INTEGER value.
// Always int64, never float64.
type Int int64

func (Int) columnValue() {}

// Bool represents a boolean value. SQLite stores it as INTEGER 0/1.
type Bool bool

func (Bool) columnValue() {}

// Record maps column names to values.
// Use SortedKeys() for deterministic iteration.
type Record map[string]Value

// Pair is a column/value pair for typed Record construction.
type Pair struct {
	Column string
	Value  Value
}

// P is a shorthand for Pair.
// Example: New(P("image_id", String("x")), P("width", Int(640)))
func P(column string, value Value) Pair {
	return Pair{Column: column, Value: value}
}

// New creates a Record from typed pairs.
func New(pairs ...Pair) Record {
	rec := make(Record, len(pairs))
	for _, p := range pairs {
		rec[p.Column] = p.Value
	}
	return rec
}

// SortedKeys returns column names in RFC 8785 canonical order (UTF-16 code units).
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Text returns the textual form of a column, and whether it is present and non-null.
// Integers and booleans are formatted in base 10 ("1"/"0" for booleans, matching storage).
func (r Record) Text(column string) (string, bool) {
	v, ok := r[column]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case String:
		return string(val), true
	case Int:
		return strconv.FormatInt(int64(val), 10), true
	case Bool:
		if val {
			return "1", true
		}
		return "0", true
	default:
		return "", false
	}
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Equal reports whether r and other hold the same columns and values.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Subset returns the columns of r named in columns. Missing columns are skipped.
func (r Record) Subset(columns ...string) Record {
	out := make(Record, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler for Record.
// Nested arrays and objects are rejected: a record is a flat row.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	rec, err := FromMap(raw)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// MarshalJSON implements json.Marshaler for Record with canonical key order.
func (r Record) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(r)
}

// FromMap converts a decoded JSON/YAML object into a Record.
func FromMap(m map[string]any) (Record, error) {
	rec := make(Record, len(m))
	for k, v := range m {
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		rec[k] = val
	}
	return rec, nil
}

// FromAny converts a Go value to a Value.
// Accepts nil, string, bool, signed integers, json.Number (integral only) and
// Value itself. Floats, arrays and objects are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not allowed: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are not allowed: %v", val)
	default:
		return nil, fmt.Errorf("unsupported column value type: %T", v)
	}
}
