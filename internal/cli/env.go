package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/dataprovider/internal/config"
	"github.com/roach88/dataprovider/internal/notify"
	"github.com/roach88/dataprovider/internal/provider"
	"github.com/roach88/dataprovider/internal/record"
	"github.com/roach88/dataprovider/internal/route"
	"github.com/roach88/dataprovider/internal/store"
)

// env is a provider opened from config, with a bus subscriber that
// collects the changes each request publishes.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	bus      *notify.Bus
	provider *provider.Provider

	watcher string
	changes chan notify.Change
}

const cliSubscriber = "cli"

// open loads config, applies flag overrides and opens the provider.
func (o *RootOptions) open(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.Authority != "" {
		cfg.Authority = o.Authority
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger := cfg.Logger(cmd.ErrOrStderr(), o.Verbose)

	st, err := store.Open(cfg.Database.Path, store.Options{
		BusyTimeout: cfg.BusyTimeout(),
		Logger:      logger,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	bus := notify.NewBus()
	router := route.NewRouter(cfg.Authority, route.DefaultBindings()...)

	e := &env{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		bus:      bus,
		provider: provider.New(router, st, notify.NewGate(bus), provider.WithLogger(logger)),
		watcher:  cliSubscriber,
		changes:  make(chan notify.Change, cfg.Notify.Buffer),
	}

	if err := bus.Subscribe(e.watcher, e.changes); err != nil {
		_ = e.Close()
		return nil, WrapExitError(ExitCommandError, "failed to subscribe", err)
	}
	return e, nil
}

// Close stops the bus and closes the store.
func (e *env) Close() error {
	_ = e.bus.Close()
	return e.store.Close()
}

// address parses s relative to the configured authority.
func (e *env) address(s string) (route.Address, error) {
	addr, err := route.ParseRelative(e.cfg.Authority, s)
	if err != nil {
		return route.Address{}, WrapExitError(ExitCommandError, "invalid address", err)
	}
	return addr, nil
}

// watch subscribes the CLI to changes at addr and, with descendants,
// everything below it.
func (e *env) watch(addr route.Address, descendants bool) error {
	return e.bus.Watch(e.watcher, addr, descendants)
}

// drain returns the changes delivered so far without blocking.
func (e *env) drain() []notification {
	var out []notification
	for {
		select {
		case c := <-e.changes:
			out = append(out, notification{Seq: c.Seq, ID: c.ID, Address: c.Address.String()})
		default:
			return out
		}
	}
}

// Request operations.
const (
	opQuery  = "query"
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
	opType   = "type"
)

// request is one provider call, as given by flags or a session line.
type request struct {
	Op        string        `json:"op"`
	Address   string        `json:"address"`
	Values    record.Record `json:"values,omitempty"`
	Selection string        `json:"selection,omitempty"`
	Args      []string      `json:"args,omitempty"`
	Columns   []string      `json:"columns,omitempty"`
	Sort      string        `json:"sort,omitempty"`
	Distinct  bool          `json:"distinct,omitempty"`
}

// response is the outcome of a request.
type response struct {
	Op            string          `json:"op"`
	Address       string          `json:"address"`
	Columns       []string        `json:"columns,omitempty"`
	Rows          []record.Record `json:"rows,omitempty"`
	Count         *int64          `json:"count,omitempty"`
	Item          string          `json:"item,omitempty"`
	Type          string          `json:"type,omitempty"`
	Notifications []notification  `json:"notifications,omitempty"`
}

type notification struct {
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	Address string `json:"address"`
}

// do executes req. Errors from the provider are returned unwrapped so the
// caller can report their contract code.
func (e *env) do(ctx context.Context, req request) (*response, error) {
	addr, err := e.address(req.Address)
	if err != nil {
		return nil, err
	}

	resp := &response{Op: req.Op, Address: addr.String()}

	switch req.Op {
	case opQuery:
		cur, err := e.provider.Query(ctx, addr, provider.QueryOptions{
			Columns:   req.Columns,
			Selection: req.Selection,
			Args:      req.Args,
			SortOrder: req.Sort,
			Distinct:  req.Distinct,
		})
		if err != nil {
			return nil, err
		}
		resp.Columns = cur.Columns()
		rows, err := cur.All()
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []record.Record{}
		}
		resp.Rows = rows
		resp.Count = count(int64(len(rows)))

	case opInsert:
		item, err := e.provider.Insert(ctx, addr, req.Values)
		if err != nil {
			return nil, err
		}
		resp.Item = item.String()

	case opUpdate:
		n, err := e.provider.Update(ctx, addr, req.Values, req.Selection, req.Args)
		if err != nil {
			return nil, err
		}
		resp.Count = count(n)

	case opDelete:
		n, err := e.provider.Delete(ctx, addr, req.Selection, req.Args)
		if err != nil {
			return nil, err
		}
		resp.Count = count(n)

	case opType:
		typ, err := e.provider.Type(addr)
		if err != nil {
			return nil, err
		}
		resp.Type = typ

	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown op %q", req.Op))
	}

	resp.Notifications = e.drain()
	return resp, nil
}

func count(n int64) *int64 {
	return &n
}
