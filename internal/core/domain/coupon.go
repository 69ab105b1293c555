package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CouponType selects the discount math applied at checkout.
type CouponType string

const (
	CouponPercentage   CouponType = "PERCENTAGE"
	CouponFixed        CouponType = "FIXED"
	CouponFreeShipping CouponType = "FREE_SHIPPING"
)

func (t CouponType) IsValid() bool {
	switch t {
	case CouponPercentage, CouponFixed, CouponFreeShipping:
		return true
	}
	return false
}

// Coupon is a discount rule. Usage records are owned by the coupon and are
// append-only to preserve audit history.
type Coupon struct {
	Code          string
	Type          CouponType
	Value         decimal.Decimal
	MinimumAmount decimal.Decimal
	// MaxDiscount caps percentage discounts when positive; zero means no cap.
	MaxDiscount decimal.Decimal
	// UsageLimit is the global redemption cap; zero means unlimited.
	UsageLimit int
	// PerUserLimit caps redemptions per customer; zero means unlimited.
	PerUserLimit int
	StartsAt     time.Time
	EndsAt       time.Time
	Active       bool
	UsageCount   int
}

// CouponUsage is one redemption record: which customer used the coupon on
// which order.
type CouponUsage struct {
	Code       string
	CustomerID string
	OrderID    string
	UsedAt     time.Time
}

// NormalizeCouponCode maps a user-supplied code to its canonical form.
// Codes are case-insensitive.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Usable checks window and usage limits for a redemption attempt by a
// customer who has already used this coupon userUsed times.
func (c *Coupon) Usable(now time.Time, userUsed int) error {
	if !c.Active {
		return &CouponNotFoundError{Code: c.Code}
	}
	if now.Before(c.StartsAt) || now.After(c.EndsAt) {
		return &CouponExpiredError{Code: c.Code}
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return &CouponUsageExceededError{Code: c.Code}
	}
	if c.PerUserLimit > 0 && userUsed >= c.PerUserLimit {
		return &CouponUsageExceededError{Code: c.Code}
	}
	return nil
}

// DiscountFor computes the monetary discount against a subtotal. The result
// never exceeds the subtotal and is never negative. Free-shipping coupons
// contribute no monetary discount; the pricing calculator zeroes shipping
// for them instead.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case CouponPercentage:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
		if c.MaxDiscount.IsPositive() && d.GreaterThan(c.MaxDiscount) {
			d = c.MaxDiscount
		}
	case CouponFixed:
		d = c.Value
	case CouponFreeShipping:
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.RoundBank(2)
}
