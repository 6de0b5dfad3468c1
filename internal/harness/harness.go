package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/dataprovider/internal/contract"
	"github.com/roach88/dataprovider/internal/notify"
	"github.com/roach88/dataprovider/internal/provider"
	"github.com/roach88/dataprovider/internal/record"
	"github.com/roach88/dataprovider/internal/route"
	"github.com/roach88/dataprovider/internal/store"
	"github.com/roach88/dataprovider/internal/testutil"
)

// Harness executes one scenario against its own provider.
type Harness struct {
	authority string
	store     *store.Store
	provider  *provider.Provider
	recorder  *notify.Recorder
}

// Run executes scenario and returns its result.
//
// Each run gets a fresh in-memory store. Failed expectations are reported
// in Result.Errors; the returned error is reserved for scenarios that
// cannot run at all (an unparseable address or values).
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.OpenMemory(store.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	authority := scenario.Authority
	if authority == "" {
		authority = contract.DefaultAuthority
	}

	recorder := notify.NewRecorder()
	gate := notify.NewGate(recorder,
		notify.WithSequencer(testutil.NewDeterministicClock()),
		notify.WithIDGenerator(testutil.NewSequentialIDs("evt")))

	h := &Harness{
		authority: authority,
		store:     st,
		provider: provider.New(
			route.NewRouter(authority, route.DefaultBindings()...),
			st, gate, provider.WithLogger(logger)),
		recorder: recorder,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		before := len(recorder.Changes())

		event, err := h.execute(ctx, i, step)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, event)

		for _, c := range recorder.Changes()[before:] {
			result.addNotification(i, c)
		}

		for _, msg := range checkExpect(i, step, event, h.authority) {
			result.AddError(msg)
		}
	}
	result.Changes = recorder.Changes()

	for _, msg := range h.evaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step. Operation errors are recorded on the event by
// code; only setup problems are returned.
func (h *Harness) execute(ctx context.Context, i int, step Step) (TraceEvent, error) {
	addr, err := route.ParseRelative(h.authority, step.Address)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("steps[%d]: %w", i, err)
	}

	event := TraceEvent{
		Type:    EventStep,
		Step:    i,
		Op:      step.Op,
		Address: addr.String(),
	}

	var opErr error
	switch step.Op {
	case OpQuery:
		if step.Caller != "" {
			ctx = provider.WithCaller(ctx, step.Caller)
		}
		var rows []record.Record
		rows, opErr = h.query(ctx, addr, provider.QueryOptions{
			Columns:   step.Columns,
			Selection: step.Selection,
			Args:      step.Args,
			SortOrder: step.Sort,
			Distinct:  step.Distinct,
		})
		if opErr == nil {
			if rows == nil {
				rows = []record.Record{}
			}
			event.Rows = rows
			event.Count = count(int64(len(rows)))
		}

	case OpInsert:
		values, err := record.FromMap(step.Values)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("steps[%d]: values: %w", i, err)
		}
		var item route.Address
		item, opErr = h.provider.Insert(ctx, addr, values)
		if opErr == nil {
			event.Result = item.String()
		}

	case OpUpdate:
		values, err := record.FromMap(step.Values)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("steps[%d]: values: %w", i, err)
		}
		var n int64
		n, opErr = h.provider.Update(ctx, addr, values, step.Selection, step.Args)
		if opErr == nil {
			event.Count = count(n)
		}

	case OpDelete:
		var n int64
		n, opErr = h.provider.Delete(ctx, addr, step.Selection, step.Args)
		if opErr == nil {
			event.Count = count(n)
		}

	case OpType:
		event.Result, opErr = h.provider.Type(addr)

	default:
		return TraceEvent{}, fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if opErr != nil {
		event.Error = errorCode(opErr)
	}
	return event, nil
}

func (h *Harness) query(ctx context.Context, addr route.Address, opts provider.QueryOptions) ([]record.Record, error) {
	cur, err := h.provider.Query(ctx, addr, opts)
	if err != nil {
		return nil, err
	}
	return cur.All()
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(i int, step Step, event TraceEvent, authority string) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("steps[%d] %s %s: ", i, step.Op, event.Address)+fmt.Sprintf(format, args...))
	}

	expect := step.Expect
	if expect == nil {
		expect = &Expect{}
	}

	if event.Error != expect.Error {
		switch {
		case expect.Error == "":
			fail("unexpected error %s", event.Error)
		case event.Error == "":
			fail("expected error %s, got success", expect.Error)
		default:
			fail("expected error %s, got %s", expect.Error, event.Error)
		}
		return errs
	}
	if event.Error != "" {
		return errs
	}

	if expect.Count != nil {
		switch {
		case event.Count == nil:
			fail("expected count %d, got none", *expect.Count)
		case *event.Count != *expect.Count:
			fail("expected count %d, got %d", *expect.Count, *event.Count)
		}
	}

	if expect.Rows != nil {
		if msg := matchRows(expect.Rows, event.Rows); msg != "" {
			fail("%s", msg)
		}
	}

	if expect.Address != "" {
		want, err := route.ParseRelative(authority, expect.Address)
		switch {
		case err != nil:
			fail("expect.address: %v", err)
		case want.String() != event.Result:
			fail("expected address %s, got %s", want, event.Result)
		}
	}

	if expect.Type != "" && expect.Type != event.Result {
		fail("expected type %s, got %s", expect.Type, event.Result)
	}
	return errs
}

// matchRows reports the first difference between expected row subsets and
// actual rows, or "" when they match.
func matchRows(expected []map[string]any, actual []record.Record) string {
	if len(expected) != len(actual) {
		return fmt.Sprintf("expected %d row(s), got %d", len(expected), len(actual))
	}
	for i, want := range expected {
		rec, err := record.FromMap(want)
		if err != nil {
			return fmt.Sprintf("rows[%d]: %v", i, err)
		}
		for _, col := range rec.SortedKeys() {
			got, ok := actual[i][col]
			if !ok {
				return fmt.Sprintf("rows[%d]: column %q missing", i, col)
			}
			if got != rec[col] {
				return fmt.Sprintf("rows[%d].%s: expected %v, got %v", i, col, rec[col], got)
			}
		}
	}
	return ""
}

func errorCode(err error) string {
	if code := contract.CodeOf(err); code != "" {
		return string(code)
	}
	return "INTERNAL"
}

func count(n int64) *int64 {
	return &n
}
