package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gemstack/commerce/internal/checkout/orderlog"
	"github.com/gemstack/commerce/internal/core/domain"
)

// effectStep is one unit of the post-payment sequence. Unlike a saga step it
// has no compensation: by the time these run, the order is already paid and
// committed, so a failing step is logged and skipped, never rolled back.
type effectStep struct {
	name  string
	stage orderlog.Stage
	run   func(ctx context.Context) error
}

// runPostPaymentEffects executes the side-effect sequence for a freshly paid
// order. The ordering is deliberate: the financially load-bearing mutations
// (inventory, coupon usage) come before the best-effort notifications, so a
// crash mid-sequence leaves the most important state already durable.
func (l *Ledger) runPostPaymentEffects(ctx context.Context, o *domain.Order) {
	steps := []effectStep{
		{
			name:  "adjust_inventory",
			stage: orderlog.StageInventoryAdjusted,
			run:   func(ctx context.Context) error { return l.adjustInventory(ctx, o) },
		},
		{
			name:  "record_coupon_usage",
			stage: orderlog.StageCouponRedeemed,
			run:   func(ctx context.Context) error { return l.recordCouponUsage(ctx, o) },
		},
		{
			name:  "deactivate_cart",
			stage: orderlog.StageCartClosed,
			run:   func(ctx context.Context) error { return l.carts.Deactivate(ctx, o.CustomerID) },
		},
		{
			name:  "notify_customer",
			stage: orderlog.StageNotified,
			run: func(ctx context.Context) error {
				l.notifier.Notify(ctx, "order.confirmed", orderEventPayload(o))
				return nil
			},
		},
		{
			name:  "notify_admins",
			stage: orderlog.StageNotified,
			run: func(ctx context.Context) error {
				l.notifier.Notify(ctx, "order.admin_alert", orderEventPayload(o))
				return nil
			},
		},
		{
			name:  "record_purchase",
			stage: orderlog.StageNotified,
			run: func(ctx context.Context) error {
				l.analytics.Record(ctx, "purchase", orderEventPayload(o))
				return nil
			},
		},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			slog.ErrorContext(ctx, "post-payment step failed",
				"order_id", o.ID, "step", step.name, "error", err)
			l.appendLog(ctx, o.ID, orderlog.StageEffectFailed, string(o.Status),
				fmt.Sprintf("%s: %v", step.name, err))
			continue
		}
		l.appendLog(ctx, o.ID, step.stage, string(o.Status), step.name)
	}
}

// adjustInventory decrements stock and bumps the sold counter for every
// line. A failing line is logged and the rest still run; stock for the
// other lines must not be held hostage by one bad product row.
func (l *Ledger) adjustInventory(ctx context.Context, o *domain.Order) error {
	var firstErr error
	for _, it := range o.Items {
		if err := l.products.DecrementInventory(ctx, it.ProductID, it.Quantity); err != nil {
			slog.ErrorContext(ctx, "inventory decrement failed",
				"order_id", o.ID, "product_id", it.ProductID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (l *Ledger) recordCouponUsage(ctx context.Context, o *domain.Order) error {
	if o.CouponCode == "" {
		return nil
	}
	return l.coupons.RecordUsage(ctx, o.CouponCode, o.CustomerID, o.ID)
}

func orderEventPayload(o *domain.Order) map[string]any {
	return map[string]any{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"customer_id":  o.CustomerID,
		"total":        o.Total.StringFixed(2),
		"currency":     DefaultCurrency,
		"items":        len(o.Items),
	}
}
