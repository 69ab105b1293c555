package orderlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo reads the active OpenTelemetry span from ctx and returns
// its trace_id and span_id as hex strings. If the context carries no active
// span (e.g. in unit tests), both fields are empty strings.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds an Entry with the trace info automatically extracted
// from ctx.
func NewEntry(ctx context.Context, orderID string, stage Stage, status, detail string) *Entry {
	ti := ExtractTraceInfo(ctx)
	return &Entry{
		OrderID: orderID,
		Stage:   stage,
		Status:  status,
		Detail:  detail,
		TraceID: ti.TraceID,
		SpanID:  ti.SpanID,
		At:      time.Now().UTC(),
	}
}
