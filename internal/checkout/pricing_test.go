package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemstack/commerce/internal/adapters/memory"
	"github.com/gemstack/commerce/internal/core/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCatalog() *memory.ProductRepository {
	products := memory.NewProductRepository()
	products.Put(&domain.Product{
		ID: "ring-01", Name: "Solitaire Ring", Price: dec("50.00"),
		Quantity: 10, TrackQuantity: true, Active: true,
	})
	products.Put(&domain.Product{
		ID: "necklace-01", Name: "Pearl Necklace", Price: dec("220.00"),
		Quantity: 3, TrackQuantity: true, Active: true,
	})
	products.Put(&domain.Product{
		ID: "giftwrap", Name: "Gift Wrapping", Price: dec("5.00"),
		Quantity: 0, TrackQuantity: false, Active: true,
	})
	products.Put(&domain.Product{
		ID: "discontinued", Name: "Old Bracelet", Price: dec("75.00"),
		Quantity: 5, TrackQuantity: true, Active: false,
	})
	products.Put(&domain.Product{
		ID: "soldout", Name: "Emerald Brooch", Price: dec("310.00"),
		Quantity: 0, TrackQuantity: true, Active: true,
	})
	return products
}

func testCoupons() *memory.CouponRepository {
	coupons := memory.NewCouponRepository()
	coupons.Put(&domain.Coupon{
		Code: "SAVE10", Type: domain.CouponPercentage, Value: dec("10"),
		StartsAt: time.Now().Add(-24 * time.Hour), EndsAt: time.Now().Add(24 * time.Hour),
		Active: true,
	})
	coupons.Put(&domain.Coupon{
		Code: "HALFOFF", Type: domain.CouponPercentage, Value: dec("50"),
		MaxDiscount: dec("30"),
		StartsAt:    time.Now().Add(-24 * time.Hour), EndsAt: time.Now().Add(24 * time.Hour),
		Active: true,
	})
	coupons.Put(&domain.Coupon{
		Code: "FLAT80", Type: domain.CouponFixed, Value: dec("80"),
		StartsAt: time.Now().Add(-24 * time.Hour), EndsAt: time.Now().Add(24 * time.Hour),
		Active: true,
	})
	coupons.Put(&domain.Coupon{
		Code: "FREESHIP", Type: domain.CouponFreeShipping, Value: dec("0"),
		StartsAt: time.Now().Add(-24 * time.Hour), EndsAt: time.Now().Add(24 * time.Hour),
		Active: true,
	})
	coupons.Put(&domain.Coupon{
		Code: "EXPIRED", Type: domain.CouponPercentage, Value: dec("10"),
		StartsAt: time.Now().Add(-48 * time.Hour), EndsAt: time.Now().Add(-24 * time.Hour),
		Active: true,
	})
	coupons.Put(&domain.Coupon{
		Code: "BIGSPENDER", Type: domain.CouponPercentage, Value: dec("20"),
		MinimumAmount: dec("500"),
		StartsAt:      time.Now().Add(-24 * time.Hour), EndsAt: time.Now().Add(24 * time.Hour),
		Active: true,
	})
	return coupons
}

func newTestCalculator() *Calculator {
	return NewCalculator(testCatalog(), testCoupons())
}

func assertEq(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "%s: want %s, got %s", field, want, got)
}

func TestPriceNoCoupon(t *testing.T) {
	calc := newTestCalculator()

	// 2 x 50.00 = 100.00: at the free-shipping threshold, so shipping is 0
	// and tax is 8% of the subtotal.
	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 2},
	}, "", nil)
	require.NoError(t, err)

	assertEq(t, "100.00", draft.Subtotal, "subtotal")
	assertEq(t, "0", draft.Discount, "discount")
	assertEq(t, "0", draft.Shipping, "shipping")
	assertEq(t, "8.00", draft.Tax, "tax")
	assertEq(t, "108.00", draft.Total, "total")
	assert.True(t, draft.Total.Equal(draft.Subtotal.Add(draft.Shipping).Add(draft.Tax)))
}

func TestPricePercentageCouponScenario(t *testing.T) {
	calc := newTestCalculator()

	// The canonical worked example: $50 x2, SAVE10 at 10%.
	// subtotal 100, discount 10, 90 < 100 so shipping 10,
	// tax = 8% of 90 = 7.20, total 107.20.
	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 2},
	}, "SAVE10", nil)
	require.NoError(t, err)

	assertEq(t, "100.00", draft.Subtotal, "subtotal")
	assertEq(t, "10.00", draft.Discount, "discount")
	assertEq(t, "10", draft.Shipping, "shipping")
	assertEq(t, "7.20", draft.Tax, "tax")
	assertEq(t, "107.20", draft.Total, "total")
}

func TestPricePercentageCouponCap(t *testing.T) {
	calc := newTestCalculator()

	// 220.00 at 50% would be 110, capped at 30.
	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "necklace-01", Quantity: 1},
	}, "HALFOFF", nil)
	require.NoError(t, err)

	assertEq(t, "30.00", draft.Discount, "discount")
}

func TestPriceFixedCouponNeverNegative(t *testing.T) {
	calc := newTestCalculator()

	// Fixed 80 against a 50.00 subtotal clamps to the subtotal; the total
	// is then shipping plus zero tax, never negative.
	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 1},
	}, "FLAT80", nil)
	require.NoError(t, err)

	assertEq(t, "50.00", draft.Discount, "discount")
	assertEq(t, "10", draft.Shipping, "shipping")
	assertEq(t, "0", draft.Tax, "tax")
	assertEq(t, "10.00", draft.Total, "total")
	assert.False(t, draft.Total.IsNegative())
}

func TestPriceFreeShippingCoupon(t *testing.T) {
	calc := newTestCalculator()

	// 50.00 is under the threshold, but the coupon forces shipping to zero
	// and contributes no monetary discount.
	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 1},
	}, "FREESHIP", nil)
	require.NoError(t, err)

	assertEq(t, "0", draft.Discount, "discount")
	assertEq(t, "0", draft.Shipping, "shipping")
}

func TestPriceExplicitShippingMethod(t *testing.T) {
	calc := newTestCalculator()

	cost := dec("25.00")
	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "necklace-01", Quantity: 1},
	}, "", &cost)
	require.NoError(t, err)

	// Explicit method cost wins even above the free-shipping threshold.
	assertEq(t, "25.00", draft.Shipping, "shipping")
}

func TestPriceExpiredCoupon(t *testing.T) {
	calc := newTestCalculator()

	_, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 2},
	}, "EXPIRED", nil)

	var expired *domain.CouponExpiredError
	require.ErrorAs(t, err, &expired)
}

func TestPriceCouponMinimumNotMet(t *testing.T) {
	calc := newTestCalculator()

	_, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 2},
	}, "BIGSPENDER", nil)

	var minimum *domain.CouponMinimumNotMetError
	require.ErrorAs(t, err, &minimum)
	assert.True(t, minimum.Minimum.Equal(dec("500")))
}

func TestPriceUnknownCoupon(t *testing.T) {
	calc := newTestCalculator()

	_, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 1},
	}, "NOPE", nil)

	var notFound *domain.CouponNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestPriceCouponCodeIsCaseInsensitive(t *testing.T) {
	calc := newTestCalculator()

	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 2},
	}, "save10", nil)
	require.NoError(t, err)
	assertEq(t, "10.00", draft.Discount, "discount")
}

func TestPriceProductNotFound(t *testing.T) {
	calc := newTestCalculator()

	_, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "missing", Quantity: 1},
	}, "", nil)

	var notFound *domain.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.ProductID)
}

func TestPriceProductInactive(t *testing.T) {
	calc := newTestCalculator()

	_, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "discontinued", Quantity: 1},
	}, "", nil)

	var inactive *domain.ProductInactiveError
	require.ErrorAs(t, err, &inactive)
}

func TestPriceInsufficientStock(t *testing.T) {
	calc := newTestCalculator()

	_, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "soldout", Quantity: 1},
	}, "", nil)

	var outOfStock *domain.InsufficientStockError
	require.ErrorAs(t, err, &outOfStock)
	assert.Equal(t, 0, outOfStock.Available)
	assert.Equal(t, 1, outOfStock.Requested)
}

func TestPriceUntrackedProductIgnoresQuantity(t *testing.T) {
	calc := newTestCalculator()

	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "giftwrap", Quantity: 3},
	}, "", nil)
	require.NoError(t, err)
	assertEq(t, "15.00", draft.Subtotal, "subtotal")
}

func TestPriceSnapshotsCurrentPrice(t *testing.T) {
	products := testCatalog()
	calc := NewCalculator(products, testCoupons())

	draft, err := calc.Price(context.Background(), "cust-1", []ItemRequest{
		{ProductID: "ring-01", Quantity: 1},
	}, "", nil)
	require.NoError(t, err)

	// A later catalog price change must not affect the priced draft.
	products.Put(&domain.Product{
		ID: "ring-01", Name: "Solitaire Ring", Price: dec("999.00"),
		Quantity: 10, TrackQuantity: true, Active: true,
	})
	assertEq(t, "50.00", draft.Items[0].UnitPrice, "unit price")
}
