// Package checkout implements the order-placement core: the pricing
// calculator, the order ledger with its status state machine, and the
// post-payment side-effect sequence.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/checkout/orderlog"
	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// DefaultChargeTimeout bounds the synchronous gateway call. A charge that
// cannot be confirmed within this window is treated as not paid.
const DefaultChargeTimeout = 15 * time.Second

// PlaceOrderRequest is the validated input to PlaceOrder. The HTTP layer is
// responsible for populating it from the request body.
type PlaceOrderRequest struct {
	CustomerID      string
	Items           []ItemRequest
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	PaymentMethod   string
	CouponCode      string
	// ShippingCost is the explicit shipping-method cost, nil when the
	// default shipping policy applies.
	ShippingCost *decimal.Decimal
	Notes        string
}

// Ledger owns the Order record: it creates orders and is the only component
// that transitions their status and payment fields.
type Ledger struct {
	calc      *Calculator
	orders    ports.OrderRepository
	products  ports.ProductRepository
	coupons   ports.CouponRepository
	gateway   ports.PaymentGateway
	carts     ports.CartStore
	notifier  ports.NotificationDispatcher
	analytics ports.AnalyticsRecorder

	// log may be nil: lifecycle auditing is then skipped.
	log orderlog.Repository

	chargeTimeout time.Duration
	now           func() time.Time
}

// LedgerDeps collects the collaborators a Ledger needs. Log may be nil.
type LedgerDeps struct {
	Orders    ports.OrderRepository
	Products  ports.ProductRepository
	Coupons   ports.CouponRepository
	Gateway   ports.PaymentGateway
	Carts     ports.CartStore
	Notifier  ports.NotificationDispatcher
	Analytics ports.AnalyticsRecorder
	Log       orderlog.Repository

	// ChargeTimeout defaults to DefaultChargeTimeout when zero.
	ChargeTimeout time.Duration
}

func NewLedger(d LedgerDeps) *Ledger {
	timeout := d.ChargeTimeout
	if timeout <= 0 {
		timeout = DefaultChargeTimeout
	}
	return &Ledger{
		calc:          NewCalculator(d.Products, d.Coupons),
		orders:        d.Orders,
		products:      d.Products,
		coupons:       d.Coupons,
		gateway:       d.Gateway,
		carts:         d.Carts,
		notifier:      d.Notifier,
		analytics:     d.Analytics,
		log:           d.Log,
		chargeTimeout: timeout,
		now:           time.Now,
	}
}

// Calculator exposes the pricing calculator for read-only quotes.
func (l *Ledger) Calculator() *Calculator { return l.calc }

// PlaceOrder prices the request, persists a pending order, charges the
// gateway and reconciles the result.
//
// On a successful charge the order is marked paid and the post-payment
// side effects run best-effort: the order is paid even if, say, the
// confirmation email fails. On a decline or a gateway transport error the
// order is cancelled before the error is returned, so no pending order is
// ever left dangling.
func (l *Ledger) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	draft, err := l.calc.Price(ctx, req.CustomerID, req.Items, req.CouponCode, req.ShippingCost)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      req.CustomerID,
		Items:           draft.Items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Subtotal:        draft.Subtotal,
		Discount:        draft.Discount,
		Shipping:        draft.Shipping,
		Tax:             draft.Tax,
		Total:           draft.Total,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   domain.PaymentPending,
		Status:          domain.StatusPending,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if draft.Coupon != nil {
		order.CouponCode = draft.Coupon.Code
	}

	if err := l.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	l.appendLog(ctx, order.ID, orderlog.StageCreated, string(order.Status), order.OrderNumber)

	result, chargeErr := l.charge(ctx, order)
	if chargeErr != nil {
		if err := l.orders.MarkCancelled(ctx, order.ID, chargeErr.Error(), domain.PaymentFailed); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to cancel order after payment failure",
				"order_id", order.ID, "payment_error", chargeErr, "cancel_error", err)
		}
		l.appendLog(ctx, order.ID, orderlog.StagePaymentFailed, string(domain.StatusCancelled), chargeErr.Error())
		return nil, chargeErr
	}

	if err := l.orders.MarkPaid(ctx, order.ID, result.TransactionID); err != nil {
		// Money has been taken but the paid state could not be persisted.
		// Surface loudly; the audit log plus the gateway transaction id are
		// what the operator needs to reconcile.
		slog.ErrorContext(ctx, "CRITICAL: charge succeeded but order could not be marked paid",
			"order_id", order.ID, "transaction_id", result.TransactionID, "error", err)
		l.appendLog(ctx, order.ID, orderlog.StageEffectFailed, string(order.Status),
			fmt.Sprintf("mark paid: %v (transaction %s)", err, result.TransactionID))
		return nil, fmt.Errorf("order %s charged but not marked paid: %w", order.OrderNumber, err)
	}

	order.Status = domain.StatusPaid
	order.PaymentStatus = domain.PaymentPaid
	order.TransactionID = result.TransactionID
	l.appendLog(ctx, order.ID, orderlog.StagePaymentCaptured, string(order.Status), result.TransactionID)

	// Detach from the request context so the sequence is not cancelled when
	// the client goes away, while keeping tracing metadata.
	l.runPostPaymentEffects(context.WithoutCancel(ctx), order)

	return order, nil
}

// charge invokes the gateway with a bounded timeout. Anything that is not
// an explicit decline or transport error is wrapped as a gateway error:
// an ambiguous result is treated as not paid.
func (l *Ledger) charge(ctx context.Context, o *domain.Order) (*ports.ChargeResult, error) {
	chargeCtx, cancel := context.WithTimeout(ctx, l.chargeTimeout)
	defer cancel()

	result, err := l.gateway.Charge(chargeCtx, ports.ChargeRequest{
		OrderNumber: o.OrderNumber,
		Amount:      o.Total,
		Currency:    DefaultCurrency,
		Method:      o.PaymentMethod,
		CustomerID:  o.CustomerID,
		BillingName: o.BillingAddress.FullName,
	})
	if err != nil {
		var declined *domain.PaymentFailedError
		var transport *domain.PaymentGatewayError
		if errors.As(err, &declined) || errors.As(err, &transport) {
			return nil, err
		}
		return nil, &domain.PaymentGatewayError{Err: err}
	}
	return result, nil
}

// CancelOrder cancels an order from pending, paid or processing.
//
// For paid orders it restores inventory for every line item and attempts a
// refund. A refund failure does not block the cancellation: the order still
// becomes cancelled, payment status stays paid, and the inconsistency is
// written to the audit log for operators instead of being retried here.
func (l *Ledger) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	order, err := l.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, &domain.InvalidStateTransitionError{From: order.Status, To: domain.StatusCancelled}
	}

	payment := order.PaymentStatus
	if order.PaymentStatus == domain.PaymentPaid {
		l.restoreInventory(ctx, order)

		if err := l.refund(ctx, order); err != nil {
			slog.ErrorContext(ctx, "refund failed during cancellation",
				"order_id", order.ID, "transaction_id", order.TransactionID, "error", err)
			l.appendLog(ctx, order.ID, orderlog.StageRefundFailed, string(order.Status), err.Error())
		} else {
			payment = domain.PaymentRefunded
		}
	}

	if err := l.orders.MarkCancelled(ctx, order.ID, reason, payment); err != nil {
		return nil, fmt.Errorf("mark cancelled: %w", err)
	}
	order.Status = domain.StatusCancelled
	order.PaymentStatus = payment
	order.CancelReason = reason
	l.appendLog(ctx, order.ID, orderlog.StageCancelled, string(order.Status), reason)

	return order, nil
}

// restoreInventory increments quantity and decrements the sold counter for
// every line item. Failures are logged per line and never block the
// cancellation.
func (l *Ledger) restoreInventory(ctx context.Context, o *domain.Order) {
	for _, it := range o.Items {
		if err := l.products.RestoreInventory(ctx, it.ProductID, it.Quantity); err != nil {
			slog.ErrorContext(ctx, "inventory restore failed",
				"order_id", o.ID, "product_id", it.ProductID, "error", err)
			l.appendLog(ctx, o.ID, orderlog.StageEffectFailed, string(o.Status),
				fmt.Sprintf("restore %s: %v", it.ProductID, err))
			continue
		}
	}
	l.appendLog(ctx, o.ID, orderlog.StageInventoryRestored, string(o.Status), "")
}

func (l *Ledger) refund(ctx context.Context, o *domain.Order) error {
	refundCtx, cancel := context.WithTimeout(ctx, l.chargeTimeout)
	defer cancel()
	return l.gateway.Refund(refundCtx, o.TransactionID, o.Total)
}

// UpdateStatus is the administrative transition: it validates the move
// against the legal-transition table and persists it. Cancellation requests
// are routed through CancelOrder so inventory and refunds are reconciled.
func (l *Ledger) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus, trackingNumber, notes string) (*domain.Order, error) {
	if next == domain.StatusCancelled {
		// The admin's notes become the cancellation reason; tracking numbers
		// make no sense on a cancelled order.
		reason := "cancelled by administrator"
		if notes != "" {
			reason = notes
		}
		return l.CancelOrder(ctx, orderID, reason)
	}

	order, err := l.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, &domain.InvalidStateTransitionError{From: order.Status, To: next}
	}

	if next == domain.StatusRefunded && order.PaymentStatus == domain.PaymentPaid {
		if err := l.refund(ctx, order); err != nil {
			slog.ErrorContext(ctx, "refund failed during admin refund",
				"order_id", order.ID, "transaction_id", order.TransactionID, "error", err)
			l.appendLog(ctx, order.ID, orderlog.StageRefundFailed, string(order.Status), err.Error())
		} else {
			if err := l.orders.SetPaymentStatus(ctx, order.ID, domain.PaymentRefunded); err != nil {
				slog.ErrorContext(ctx, "failed to persist refunded payment status",
					"order_id", order.ID, "error", err)
			} else {
				order.PaymentStatus = domain.PaymentRefunded
			}
		}
	}

	if err := l.orders.SetStatus(ctx, order.ID, next, trackingNumber, notes); err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	order.Status = next
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	if notes != "" {
		order.Notes = notes
	}
	l.appendLog(ctx, order.ID, orderlog.StageStatusChanged, string(next), "")

	return order, nil
}

// GetOrder looks up a single order.
func (l *Ledger) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return l.orders.FindByID(ctx, orderID)
}

// ListOrders returns a customer's orders, newest first.
func (l *Ledger) ListOrders(ctx context.Context, customerID string, limit int) ([]*domain.Order, error) {
	return l.orders.ListByCustomer(ctx, customerID, limit)
}

// OrderHistory returns the audit trail for an order, oldest first. The order
// is looked up first so a missing id yields OrderNotFoundError rather than
// an empty trail.
func (l *Ledger) OrderHistory(ctx context.Context, orderID string) ([]*orderlog.Entry, error) {
	if _, err := l.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	if l.log == nil {
		return nil, nil
	}
	return l.log.ListByOrder(ctx, orderID)
}

// appendLog is nil-safe: auditing is optional and never fails the flow.
func (l *Ledger) appendLog(ctx context.Context, orderID string, stage orderlog.Stage, status, detail string) {
	if l.log == nil {
		return
	}
	if err := l.log.Append(ctx, orderlog.NewEntry(ctx, orderID, stage, status, detail)); err != nil {
		slog.ErrorContext(ctx, "failed to append order log entry",
			"order_id", orderID, "stage", stage, "error", err)
	}
}
