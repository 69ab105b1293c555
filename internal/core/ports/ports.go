// Package ports declares the interfaces the checkout core depends on.
// The core depends on these abstractions, not on SQLite or Redis directly,
// so implementations can be swapped for in-memory fakes in tests.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/core/domain"
)

// ProductRepository reads catalog records and applies the two inventory
// mutations the checkout core is allowed to make. Both mutations must be
// atomic at the storage layer: decrement-if-available, never read-then-write.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)

	// DecrementInventory removes qty units and bumps the sold counter in one
	// indivisible step. Returns InsufficientStockError when fewer than qty
	// units are available, so the second of two racing checkouts fails
	// cleanly instead of overselling. Products that do not track quantity
	// only get their sold counter bumped.
	DecrementInventory(ctx context.Context, id string, qty int) error

	// RestoreInventory reverses a previous decrement on cancellation.
	RestoreInventory(ctx context.Context, id string, qty int) error
}

// CouponRepository resolves discount rules and appends redemption records.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// CountUserUsage returns how many times the customer has redeemed the coupon.
	CountUserUsage(ctx context.Context, code, customerID string) (int, error)

	// RecordUsage appends a usage record, re-checking global and per-user
	// limits atomically so two concurrent checkouts cannot both slip under
	// the limit. Returns CouponUsageExceededError when the re-check fails.
	RecordUsage(ctx context.Context, code, customerID, orderID string) error
}

// OrderRepository persists orders. Create assigns the structurally unique
// order number. Status writes go through the ledger only.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Order, error)

	MarkPaid(ctx context.Context, id, transactionID string) error
	MarkCancelled(ctx context.Context, id, reason string, payment domain.PaymentStatus) error
	SetStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber, notes string) error
	SetPaymentStatus(ctx context.Context, id string, payment domain.PaymentStatus) error
}

// ChargeRequest carries everything the gateway needs to take a payment.
type ChargeRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Method      string
	CustomerID  string
	BillingName string
}

// ChargeResult is a successful charge. Declines and transport failures are
// returned as PaymentFailedError / PaymentGatewayError instead.
type ChargeResult struct {
	TransactionID string
}

// PaymentGateway is the external processor behind an adapter. Calls are
// synchronous with a bounded timeout; a timeout is treated as failure.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error
}

// NotificationDispatcher delivers order events to customers and
// administrators. Fire-and-forget: failures are logged by the
// implementation and never surfaced to the order flow.
type NotificationDispatcher interface {
	Notify(ctx context.Context, event string, payload map[string]any)
}

// AnalyticsRecorder records business events with revenue attribution.
// Fire-and-forget, same contract as NotificationDispatcher.
type AnalyticsRecorder interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// CartStore soft-closes the customer's active cart after a successful order.
type CartStore interface {
	Deactivate(ctx context.Context, customerID string) error
}
