package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductNotFoundError is returned when an ordered product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// ProductInactiveError is returned when an ordered product is deactivated.
type ProductInactiveError struct {
	ProductID string
}

func (e *ProductInactiveError) Error() string {
	return fmt.Sprintf("product is not available: %s", e.ProductID)
}

// InsufficientStockError reports how many units were actually available.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// CouponNotFoundError covers both missing and inactive coupons; the caller
// cannot distinguish the two, by choice.
type CouponNotFoundError struct {
	Code string
}

func (e *CouponNotFoundError) Error() string {
	return fmt.Sprintf("coupon not found: %s", e.Code)
}

// CouponExpiredError is returned outside the coupon's validity window.
type CouponExpiredError struct {
	Code string
}

func (e *CouponExpiredError) Error() string {
	return fmt.Sprintf("coupon expired: %s", e.Code)
}

// CouponUsageExceededError is returned when the global or per-user
// redemption limit is reached.
type CouponUsageExceededError struct {
	Code string
}

func (e *CouponUsageExceededError) Error() string {
	return fmt.Sprintf("coupon usage limit reached: %s", e.Code)
}

// CouponMinimumNotMetError reports the order threshold the coupon requires.
type CouponMinimumNotMetError struct {
	Code    string
	Minimum decimal.Decimal
}

func (e *CouponMinimumNotMetError) Error() string {
	return fmt.Sprintf("coupon %s requires a minimum order of %s", e.Code, e.Minimum.StringFixed(2))
}

// PaymentFailedError is a decline reported by the gateway.
type PaymentFailedError struct {
	Detail string
}

func (e *PaymentFailedError) Error() string {
	if e.Detail == "" {
		return "payment failed"
	}
	return "payment failed: " + e.Detail
}

// PaymentGatewayError is a transport failure or timeout talking to the
// gateway. Treated as not-paid by the ledger.
type PaymentGatewayError struct {
	Err error
}

func (e *PaymentGatewayError) Error() string {
	return fmt.Sprintf("payment gateway error: %v", e.Err)
}

func (e *PaymentGatewayError) Unwrap() error { return e.Err }

// InvalidStateTransitionError is returned for illegal status moves.
type InvalidStateTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// OrderNotFoundError is returned when an order lookup misses.
type OrderNotFoundError struct {
	OrderID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: %s", e.OrderID)
}
