package redisx

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/gemstack/commerce/internal/core/ports"
)

const (
	analyticsStream = "analytics:events"

	// analyticsMaxLen caps the stream so an idle consumer cannot grow it
	// without bound. Approximate trimming (~) is cheap in Redis.
	analyticsMaxLen = 100_000
)

// AnalyticsRecorder appends business events to a capped Redis stream that a
// downstream consumer aggregates. Fire-and-forget: failures are logged and
// swallowed, never surfaced to the order flow.
type AnalyticsRecorder struct {
	client *redis.Client
}

var _ ports.AnalyticsRecorder = (*AnalyticsRecorder)(nil)

func NewAnalyticsRecorder(client *redis.Client) *AnalyticsRecorder {
	return &AnalyticsRecorder{client: client}
}

func (r *AnalyticsRecorder) Record(ctx context.Context, event string, payload map[string]any) {
	values := map[string]any{"event": event}
	for k, v := range payload {
		values[k] = v
	}

	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: analyticsStream,
		MaxLen: analyticsMaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		slog.ErrorContext(ctx, "failed to record analytics event", "event", event, "error", err)
	}
}
