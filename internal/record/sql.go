package record

import "fmt"

// FromSQL converts a value scanned into *any from database/sql to a Value.
//
// SQLite returns int64, string, []byte, float64 or nil. TEXT values may
// arrive as []byte and are converted to String. REAL values are rejected.
func FromSQL(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case int64:
		return Int(val), nil
	case string:
		return String(val), nil
	case []byte:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return nil, fmt.Errorf("REAL column values are not supported: %v", val)
	default:
		return nil, fmt.Errorf("unsupported SQL value type: %T", v)
	}
}

// ToParam converts a Value to a database/sql parameter.
func ToParam(v Value) (any, error) {
	switch val := v.(type) {
	case Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported column value type: %T", v)
	}
}
