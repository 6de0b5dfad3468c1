package provider

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/dataprovider/internal/notify"
	"github.com/roach88/dataprovider/internal/route"
)

// Storage is the storage handle pair the provider runs on.
// *store.Store satisfies it.
type Storage interface {
	Readable() *sql.DB
	Writable() *sql.DB
	Reset(ctx context.Context) error
}

// State is the storage handle lifecycle state.
type State int

const (
	StateActive State = iota
	StateResetPending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateResetPending:
		return "RESET_PENDING"
	default:
		return "UNKNOWN"
	}
}

// Provider is the data mediator. Safe for concurrent use.
type Provider struct {
	router  *route.Router
	storage Storage
	gate    *notify.Gate
	logger  *slog.Logger

	mu    sync.RWMutex
	state State

	// cursors counts query cursors not yet closed.
	cursors atomic.Int64
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the operation logger. Operations log at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Provider over storage.
func New(router *route.Router, storage Storage, gate *notify.Gate, opts ...Option) *Provider {
	p := &Provider{
		router:  router,
		storage: storage,
		gate:    gate,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:   StateActive,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authority returns the authority the provider serves.
func (p *Provider) Authority() string {
	return p.router.Authority()
}

// OpenCursors returns the number of cursors returned by Query that have not
// been closed. A whole-store reset is refused while it is non-zero.
func (p *Provider) OpenCursors() int64 {
	return p.cursors.Load()
}

// State returns the current lifecycle state.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

type callerKey struct{}

// WithCaller returns a context identifying the calling observer. Reads made
// with it register interest in their address for that caller.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller set by WithCaller.
func CallerFrom(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey{}).(string)
	return caller, ok && caller != ""
}
