package harness

import (
	"github.com/roach88/dataprovider/internal/notify"
	"github.com/roach88/dataprovider/internal/record"
)

// Trace event types.
const (
	EventStep         = "step"
	EventNotification = "notification"
)

// TraceEvent is one entry in a scenario trace: a step outcome, or a change
// published while that step ran.
type TraceEvent struct {
	Type string `json:"type"`
	Step int    `json:"step"`

	// Step events.
	Op      string          `json:"op,omitempty"`
	Address string          `json:"address"`
	Count   *int64          `json:"count,omitempty"`
	Rows    []record.Record `json:"rows,omitempty"`
	Result  string          `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Notification events.
	Seq int64  `json:"seq,omitempty"`
	ID  string `json:"id,omitempty"`
}

// canonical converts e into the map form accepted by record.MarshalCanonical.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"type":    e.Type,
		"step":    e.Step,
		"address": e.Address,
	}
	if e.Op != "" {
		m["op"] = e.Op
	}
	if e.Count != nil {
		m["count"] = *e.Count
	}
	if e.Rows != nil {
		m["rows"] = e.Rows
	}
	if e.Result != "" {
		m["result"] = e.Result
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	if e.Type == EventNotification {
		m["seq"] = e.Seq
		m["id"] = e.ID
	}
	return m
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds step outcomes and notifications in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Changes are the published changes in seq order.
	Changes []notify.Change `json:"-"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addNotification(step int, c notify.Change) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventNotification,
		Step:    step,
		Address: c.Address.String(),
		Seq:     c.Seq,
		ID:      c.ID,
	})
}

// Notifications returns the notification events of the trace.
func (r *Result) Notifications() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventNotification {
			out = append(out, e)
		}
	}
	return out
}
