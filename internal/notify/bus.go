package notify

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/roach88/dataprovider/internal/route"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrSubscriberNotFound is returned for an unknown subscriber id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")

	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("bus is closed")

	// ErrNilChannel is returned when Subscribe is called with a nil channel.
	ErrNilChannel = errors.New("subscriber channel cannot be nil")
)

// BusStats contains global and per-subscriber metrics.
type BusStats struct {
	// TotalPublished is the number of Notify calls
	TotalPublished uint64

	// TotalSent is the sum of changes sent to all subscribers
	TotalSent uint64

	// TotalDropped is the sum of changes dropped across all subscribers
	TotalDropped uint64

	// Subscribers contains per-subscriber breakdown
	Subscribers map[string]SubscriberStats
}

// SubscriberStats tracks metrics for a single subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
	Watches int
}

type watch struct {
	addr        route.Address
	descendants bool
}

// matches reports whether a change at changed concerns this watch.
func (w watch) matches(changed route.Address) bool {
	switch {
	case w.addr.Equal(changed):
		return true
	case changed.Contains(w.addr):
		return true
	case w.descendants && w.addr.Contains(changed):
		return true
	}
	return false
}

type subscriber struct {
	ch      chan<- Change
	watches []watch
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus is an in-process observer registry and Sink.
//
// All methods are safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool

	// Global counter (atomic - no lock needed in Notify)
	totalPublished atomic.Uint64
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers a channel to receive changes for the addresses the
// subscriber later watches.
func (b *Bus) Subscribe(id string, ch chan<- Change) error {
	if ch == nil {
		return ErrNilChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	b.subscribers[id] = &subscriber{ch: ch}
	return nil
}

// Unsubscribe removes a subscriber and all of its watches.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}

	delete(b.subscribers, id)
	return nil
}

// Watch adds addr to the subscriber's interests. With descendants, changes
// anywhere below addr are delivered too. Watching the same address twice
// keeps one watch; descendants is sticky.
func (b *Bus) Watch(id string, addr route.Address, descendants bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	sub, ok := b.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}

	addr = addr.WithoutQuery()
	for i := range sub.watches {
		if sub.watches[i].addr.Equal(addr) {
			sub.watches[i].descendants = sub.watches[i].descendants || descendants
			return nil
		}
	}
	sub.watches = append(sub.watches, watch{addr: addr, descendants: descendants})
	return nil
}

// RegisterInterest implements Sink. Reads register with descendants, so an
// observer of a collection also hears about item changes. Unknown callers
// are ignored: a caller must Subscribe before its reads are observable.
func (b *Bus) RegisterInterest(addr route.Address, caller string) {
	_ = b.Watch(caller, addr, true)
}

// Notify implements Sink. It sends c to every matching subscriber without
// blocking; full channels count as drops. Each subscriber receives c at most
// once however many of its watches match. Notify on a closed bus is a no-op.
func (b *Bus) Notify(c Change) {
	b.totalPublished.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if !sub.wants(c.Address) {
			continue
		}
		select {
		case sub.ch <- c:
			sub.sent.Add(1)
		default:
			sub.dropped.Add(1)
		}
	}
}

func (s *subscriber) wants(addr route.Address) bool {
	for _, w := range s.watches {
		if w.matches(addr) {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := BusStats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}

	for id, sub := range b.subscribers {
		s := SubscriberStats{
			Sent:    sub.sent.Load(),
			Dropped: sub.dropped.Load(),
			Watches: len(sub.watches),
		}
		result.TotalSent += s.Sent
		result.TotalDropped += s.Dropped
		result.Subscribers[id] = s
	}

	return result
}

// Close stops the bus. Subscriber channels are not closed; they belong to
// the subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.closed = true
	b.subscribers = make(map[string]*subscriber)
	return nil
}
