package notify

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequencer issues strictly increasing sequence numbers.
type Sequencer interface {
	Next() int64
}

// IDGenerator issues unique event ids.
type IDGenerator interface {
	Generate() string
}

// Clock is a monotonic logical clock for change ordering.
//
// Changes are stamped with a strictly increasing seq from this clock, never
// with wall time, so traces compare byte for byte.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// UUIDv7Generator generates time-sortable UUIDv7 event ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
