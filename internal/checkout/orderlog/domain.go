// Package orderlog defines the domain types for the order audit log.
//
// The log is a durable, append-only trail of every transition an order goes
// through. It serves two purposes:
//
//  1. Observability: operators can see exactly where an order is (or was)
//     and correlate it with a distributed trace via the trace_id field.
//
//  2. Reconciliation: deliberate inconsistencies — a cancelled order whose
//     refund call failed, a post-payment step that was skipped — are
//     surfaced here rather than silently dropped.
package orderlog

import "time"

// Stage names the lifecycle event an entry records.
type Stage string

const (
	StageCreated           Stage = "ORDER_CREATED"
	StagePaymentCaptured   Stage = "PAYMENT_CAPTURED"
	StagePaymentFailed     Stage = "PAYMENT_FAILED"
	StageInventoryAdjusted Stage = "INVENTORY_ADJUSTED"
	StageInventoryRestored Stage = "INVENTORY_RESTORED"
	StageCouponRedeemed    Stage = "COUPON_REDEEMED"
	StageCartClosed        Stage = "CART_CLOSED"
	StageNotified          Stage = "NOTIFIED"
	StageEffectFailed      Stage = "EFFECT_FAILED"
	StageRefundFailed      Stage = "REFUND_FAILED"
	StageCancelled         Stage = "ORDER_CANCELLED"
	StageStatusChanged     Stage = "STATUS_CHANGED"
)

// Entry is a single row in the order_logs table: a point-in-time snapshot
// of an order's progress through the checkout flow.
type Entry struct {
	// OrderID joins the entry with the business order record.
	OrderID string

	// Stage is the lifecycle event being recorded.
	Stage Stage

	// Status is the order status at the time the entry was written.
	Status string

	// Detail carries human-readable context, typically an error message for
	// failure stages. Empty for routine entries.
	Detail string

	// TraceID is the W3C trace ID extracted from the active OpenTelemetry
	// span, so an operator can jump from a log row to the full trace.
	TraceID string

	// SpanID pinpoints the exact span within the trace.
	SpanID string

	// At is the wall-clock time of this entry.
	At time.Time
}
