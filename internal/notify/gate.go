package notify

import (
	"github.com/roach88/dataprovider/internal/route"
)

// Change is a single change notification. Ephemeral: it lives for one
// publish call and is never persisted.
type Change struct {
	// Seq orders published changes. Zero for suppressed changes.
	Seq int64

	// ID is a unique event id. Empty for suppressed changes.
	ID string

	// Address is the changed resource, without options.
	Address route.Address

	// Suppressed is true when the sync-agent marker withheld publication.
	Suppressed bool
}

// Sink receives published changes and read-interest registrations.
type Sink interface {
	// Notify delivers a published change. It must not block.
	Notify(c Change)

	// RegisterInterest records that caller has read addr and wants to hear
	// about later changes to it.
	RegisterInterest(addr route.Address, caller string)
}

// Gate applies the publication policy in front of a Sink.
type Gate struct {
	sink  Sink
	clock Sequencer
	ids   IDGenerator
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithSequencer replaces the default logical clock.
func WithSequencer(s Sequencer) GateOption {
	return func(g *Gate) { g.clock = s }
}

// WithIDGenerator replaces the default UUIDv7 generator.
func WithIDGenerator(ids IDGenerator) GateOption {
	return func(g *Gate) { g.ids = ids }
}

// NewGate creates a Gate publishing to sink.
func NewGate(sink Sink, opts ...GateOption) *Gate {
	g := &Gate{sink: sink, clock: NewClock(), ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldNotify reports whether a mutation of addr is published.
func (g *Gate) ShouldNotify(addr route.Address) bool {
	return !addr.SyncAgent()
}

// Publish stamps and delivers a change for addr unconditionally.
func (g *Gate) Publish(addr route.Address) Change {
	c := Change{
		Seq:     g.clock.Next(),
		ID:      g.ids.Generate(),
		Address: addr.WithoutQuery(),
	}
	g.sink.Notify(c)
	return c
}

// Changed applies the policy to a completed mutation: it publishes a change
// for target unless requested carries the sync-agent marker, in which case
// it returns a suppressed change without delivering anything. target is
// usually requested itself; inserts publish the new item's address.
func (g *Gate) Changed(requested, target route.Address) Change {
	if !g.ShouldNotify(requested) {
		return Change{Address: target.WithoutQuery(), Suppressed: true}
	}
	return g.Publish(target)
}

// RegisterInterest forwards a read registration to the sink.
func (g *Gate) RegisterInterest(addr route.Address, caller string) {
	if caller == "" {
		return
	}
	g.sink.RegisterInterest(addr.WithoutQuery(), caller)
}
