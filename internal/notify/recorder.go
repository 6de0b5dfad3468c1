package notify

import (
	"sync"

	"github.com/roach88/dataprovider/internal/route"
)

// Interest is a recorded read registration.
type Interest struct {
	Address route.Address
	Caller  string
}

// Recorder is a Sink that keeps every change and interest in order.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	changes   []Change
	interests []Interest
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements Sink.
func (r *Recorder) Notify(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

// RegisterInterest implements Sink.
func (r *Recorder) RegisterInterest(addr route.Address, caller string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interests = append(r.interests, Interest{Address: addr, Caller: caller})
}

// Changes returns a copy of the recorded changes.
func (r *Recorder) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// Interests returns a copy of the recorded interests.
func (r *Recorder) Interests() []Interest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Interest(nil), r.interests...)
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = nil
	r.interests = nil
}

// Tee returns a Sink that forwards to every sink in order.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Notify(c Change) {
	for _, s := range t {
		s.Notify(c)
	}
}

func (t tee) RegisterInterest(addr route.Address, caller string) {
	for _, s := range t {
		s.RegisterInterest(addr, caller)
	}
}
