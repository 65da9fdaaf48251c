// Package testutil provides helpers shared by the integration suites.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

// EventRecorder is a shared.EventHandler that keeps every event it receives
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
}

// NewEventRecorder creates a recorder subscribed to eventTypes
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes returns the event types this recorder subscribes to
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle records event
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return nil
}

// Events returns the recorded events of type eventType, or all events when
// eventType is empty
func (r *EventRecorder) Events(eventType string) []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, 0, len(r.handled))
	for _, e := range r.handled {
		if eventType == "" || e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of eventType were recorded
func (r *EventRecorder) Count(eventType string) int {
	return len(r.Events(eventType))
}

// RequireEventually polls condition until it holds or timeout elapses
func RequireEventually(t *testing.T, condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}

// WaitForEvents waits until recorder holds at least n events of eventType
func WaitForEvents(t *testing.T, recorder *EventRecorder, eventType string, n int, timeout time.Duration) {
	t.Helper()
	RequireEventually(t, func() bool {
		return recorder.Count(eventType) >= n
	}, timeout, "waiting for %d %s events", n, eventType)
}
