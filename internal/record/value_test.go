package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Text(t *testing.T) {
	rec := New(
		P("s", String("k1")),
		P("i", Int(42)),
		P("t", Bool(true)),
		P("f", Bool(false)),
		P("n", Null{}),
	)

	tests := []struct {
		column string
		want   string
		ok     bool
	}{
		{"s", "k1", true},
		{"i", "42", true},
		{"t", "1", true},
		{"f", "0", true},
		{"n", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := rec.Text(tt.column)
		assert.Equal(t, tt.want, got, tt.column)
		assert.Equal(t, tt.ok, ok, tt.column)
	}
}

func TestRecord_CloneEqualSubset(t *testing.T) {
	rec := New(P("a", Int(1)), P("b", String("x")))

	clone := rec.Clone()
	assert.True(t, rec.Equal(clone))

	clone["a"] = Int(2)
	assert.False(t, rec.Equal(clone))
	assert.Equal(t, Int(1), rec["a"], "clone must not alias")

	assert.Equal(t, Record{"b": String("x")}, rec.Subset("b", "missing"))
	assert.False(t, rec.Equal(Record{"a": Int(1)}))
}

func TestRecord_SortedKeys(t *testing.T) {
	rec := Record{"width": Int(1), "_id": Int(2), "image_id": Int(3)}
	assert.Equal(t, []string{"_id", "image_id", "width"}, rec.SortedKeys())
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal(
		[]byte(`{"image_id":"k1","width":640,"hidden":true,"title":null}`), &rec))

	assert.Equal(t, New(
		P("image_id", String("k1")),
		P("width", Int(640)),
		P("hidden", Bool(true)),
		P("title", Null{}),
	), rec)
}

func TestRecord_UnmarshalJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"float", `{"width":1.5}`},
		{"exponent", `{"width":1e3}`},
		{"nested object", `{"a":{"b":1}}`},
		{"array", `{"a":[1]}`},
		{"out of range", `{"a":99999999999999999999}`},
		{"not an object", `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			assert.Error(t, json.Unmarshal([]byte(tt.json), &rec))
		})
	}
}

func TestRecord_MarshalJSONIsCanonical(t *testing.T) {
	data, err := json.Marshal(Record{"b": Int(1), "a": String("k1")})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"k1","b":1}`, string(data))
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null{}},
		{"x", String("x")},
		{true, Bool(true)},
		{7, Int(7)},
		{int64(-3), Int(-3)},
		{json.Number("12"), Int(12)},
		{Int(5), Int(5)},
	}
	for _, tt := range tests {
		got, err := FromAny(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := FromAny(2.5)
	assert.Error(t, err)
	_, err = FromAny([]any{1})
	assert.Error(t, err)
}

func TestFromMap(t *testing.T) {
	rec, err := FromMap(map[string]any{"image_id": "k1", "width": 10})
	require.NoError(t, err)
	assert.Equal(t, New(P("image_id", String("k1")), P("width", Int(10))), rec)

	_, err = FromMap(map[string]any{"bad": 0.5})
	assert.ErrorContains(t, err, `column "bad"`)
}
