package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCoupon(typ CouponType, value string) *Coupon {
	return &Coupon{
		Code:     "SAVE10",
		Type:     typ,
		Value:    decimal.RequireFromString(value),
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
		Active:   true,
	}
}

func TestDiscountForPercentage(t *testing.T) {
	c := validCoupon(CouponPercentage, "10")
	got := c.DiscountFor(decimal.NewFromInt(100))
	assert.True(t, got.Equal(decimal.NewFromInt(10)), "got %s", got)
}

func TestDiscountForPercentageCap(t *testing.T) {
	c := validCoupon(CouponPercentage, "50")
	c.MaxDiscount = decimal.NewFromInt(30)
	got := c.DiscountFor(decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(30)), "got %s", got)
}

func TestDiscountForFixedClampedToSubtotal(t *testing.T) {
	c := validCoupon(CouponFixed, "80")
	got := c.DiscountFor(decimal.NewFromInt(50))
	assert.True(t, got.Equal(decimal.NewFromInt(50)), "discount must never exceed subtotal, got %s", got)
}

func TestDiscountForFreeShippingIsZero(t *testing.T) {
	c := validCoupon(CouponFreeShipping, "0")
	assert.True(t, c.DiscountFor(decimal.NewFromInt(500)).IsZero())
}

func TestUsableWindow(t *testing.T) {
	c := validCoupon(CouponPercentage, "10")
	now := time.Now()

	require.NoError(t, c.Usable(now, 0))

	var expired *CouponExpiredError
	assert.ErrorAs(t, c.Usable(c.EndsAt.Add(time.Minute), 0), &expired)
	assert.ErrorAs(t, c.Usable(c.StartsAt.Add(-time.Minute), 0), &expired)
}

func TestUsableLimits(t *testing.T) {
	c := validCoupon(CouponPercentage, "10")
	c.UsageLimit = 5
	c.UsageCount = 5

	var exceeded *CouponUsageExceededError
	assert.ErrorAs(t, c.Usable(time.Now(), 0), &exceeded)

	c.UsageCount = 4
	c.PerUserLimit = 1
	require.NoError(t, c.Usable(time.Now(), 0))
	assert.ErrorAs(t, c.Usable(time.Now(), 1), &exceeded)
}

func TestUsableInactive(t *testing.T) {
	c := validCoupon(CouponPercentage, "10")
	c.Active = false

	var notFound *CouponNotFoundError
	assert.ErrorAs(t, c.Usable(time.Now(), 0), &notFound)
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCouponCode("  save10 "))
}
