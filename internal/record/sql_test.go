package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSQL(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null{}},
		{int64(9), Int(9)},
		{"k1", String("k1")},
		{[]byte("k2"), String("k2")},
		{true, Bool(true)},
	}
	for _, tt := range tests {
		got, err := FromSQL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := FromSQL(1.25)
	assert.ErrorContains(t, err, "REAL")
}

func TestToParam(t *testing.T) {
	tests := []struct {
		in   Value
		want any
	}{
		{Null{}, nil},
		{String("x"), "x"},
		{Int(3), int64(3)},
		{Bool(false), false},
	}
	for _, tt := range tests {
		got, err := ToParam(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ToParam(nil)
	assert.Error(t, err)
}
