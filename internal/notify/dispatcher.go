// Package notify implements the fire-and-forget notification dispatcher:
// an explicit submit-and-forget queue decoupled from the request/response
// lifecycle of order creation. Delivery failures are logged per event and
// never reach the order flow.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gemstack/commerce/internal/core/ports"
)

// Event is one queued notification.
type Event struct {
	Name    string
	Payload map[string]any
}

// Sink delivers a single event: email sender, admin webhook, etc.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// Dispatcher is a buffered queue with a single worker goroutine. Notify
// never blocks the caller: when the queue is full the event is dropped and
// logged, which is acceptable for operationally non-critical notifications.
type Dispatcher struct {
	sinks  []Sink
	events chan Event
	wg     sync.WaitGroup
}

var _ ports.NotificationDispatcher = (*Dispatcher)(nil)

// NewDispatcher starts the worker. Call Close on shutdown to drain the queue.
func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		sinks:  sinks,
		events: make(chan Event, buffer),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, event string, payload map[string]any) {
	select {
	case d.events <- Event{Name: event, Payload: payload}:
	default:
		slog.WarnContext(ctx, "notification queue full, dropping event", "event", event)
	}
}

// Close stops accepting events and waits for the worker to drain the queue.
func (d *Dispatcher) Close() {
	close(d.events)
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	// The worker owns its own context: deliveries must not be cancelled
	// when the originating request finishes.
	ctx := context.Background()
	for e := range d.events {
		for _, sink := range d.sinks {
			if err := sink.Deliver(ctx, e); err != nil {
				slog.Error("notification delivery failed", "event", e.Name, "error", err)
			}
		}
	}
}

// LogSink writes events to the structured log. Stands in for the email and
// admin-alert integrations in development.
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, e Event) error {
	slog.InfoContext(ctx, "notification", "event", e.Name, "payload", e.Payload)
	return nil
}
