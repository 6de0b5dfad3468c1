package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/dataprovider/internal/provider"
	"github.com/roach88/dataprovider/internal/route"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string

	// Notifications are included so a failure shows what was published.
	Notifications []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Notifications) > 0 {
		fmt.Fprintf(&buf, "\nNotifications:\n")
		for _, n := range e.Notifications {
			fmt.Fprintf(&buf, "  [seq %d] step %d %s\n", n.Seq, n.Step, n.Address)
		}
	}

	return buf.String()
}

// evaluateAssertions returns one message per failed assertion.
func (h *Harness) evaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertNotified:
			err = h.assertNotified(result, a, true)
		case AssertNotNotified:
			err = h.assertNotified(result, a, false)
		case AssertNotificationCount:
			err = h.assertNotificationCount(result, a)
		case AssertFinalState:
			err = h.assertFinalState(ctx, a)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// notificationsFor returns the notifications whose address equals addr.
func notificationsFor(result *Result, addr route.Address) []TraceEvent {
	var out []TraceEvent
	for _, n := range result.Notifications() {
		if n.Address == addr.WithoutQuery().String() {
			out = append(out, n)
		}
	}
	return out
}

func (h *Harness) assertNotified(result *Result, a Assertion, want bool) error {
	addr, err := route.ParseRelative(h.authority, a.Address)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Type, err)
	}

	got := len(notificationsFor(result, addr)) > 0
	if got == want {
		return nil
	}

	expected := "a notification for " + addr.String()
	actual := "none published"
	if !want {
		expected = "no notification for " + addr.String()
		actual = "notification published"
	}
	return &AssertionError{
		Type:          a.Type,
		Expected:      expected,
		Actual:        actual,
		Notifications: result.Notifications(),
	}
}

func (h *Harness) assertNotificationCount(result *Result, a Assertion) error {
	matched := result.Notifications()
	scope := "in total"

	if a.Address != "" {
		addr, err := route.ParseRelative(h.authority, a.Address)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
		matched = notificationsFor(result, addr)
		scope = "for " + addr.String()
	}

	if len(matched) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:          a.Type,
		Expected:      fmt.Sprintf("%d notification(s) %s", *a.Count, scope),
		Actual:        fmt.Sprintf("%d notification(s)", len(matched)),
		Notifications: result.Notifications(),
	}
}

// assertFinalState reads through the provider, so the check sees exactly
// what a caller would.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	addr, err := route.ParseRelative(h.authority, a.Address)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Type, err)
	}

	rows, err := h.query(ctx, addr, provider.QueryOptions{
		Selection: a.Selection,
		Args:      a.Args,
	})
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: "read " + addr.String(),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if a.Count != nil && len(rows) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d row(s) at %s", *a.Count, addr),
			Actual:   fmt.Sprintf("%d row(s)", len(rows)),
		}
	}

	if a.Rows != nil {
		if msg := matchRows(a.Rows, rows); msg != "" {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("rows at %s to match", addr),
				Actual:   msg,
			}
		}
	}
	return nil
}
