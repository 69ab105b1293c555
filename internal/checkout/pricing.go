package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// DefaultCurrency is the store currency. Multi-currency pricing is out of
// scope; every amount in the system is in this currency.
const DefaultCurrency = "USD"

var (
	// freeShippingThreshold: orders at or above this amount (after discount)
	// ship free under the default policy.
	freeShippingThreshold = decimal.NewFromInt(100)

	// flatShippingFee applies below the threshold when the client supplied
	// no explicit shipping method.
	flatShippingFee = decimal.NewFromInt(10)

	// taxRate is a flat 8% applied to (subtotal - discount).
	taxRate = decimal.New(8, -2)
)

// ItemRequest is one requested line of a checkout: what the customer wants,
// before any pricing has happened.
type ItemRequest struct {
	ProductID string
	Quantity  int
	Variant   string
}

// Draft is a fully priced, not-yet-persisted order: the calculator's output.
// All monetary fields are rounded to cents, each exactly once.
type Draft struct {
	Items    []domain.LineItem
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	// Coupon is the resolved coupon when a code was supplied, nil otherwise.
	Coupon *domain.Coupon
}

// Calculator prices a set of requested items into a Draft. It is strictly
// read-only: it resolves products and coupons but mutates nothing, so a
// pricing failure leaves no partial state behind.
type Calculator struct {
	products ports.ProductRepository
	coupons  ports.CouponRepository
	now      func() time.Time
}

func NewCalculator(products ports.ProductRepository, coupons ports.CouponRepository) *Calculator {
	return &Calculator{
		products: products,
		coupons:  coupons,
		now:      time.Now,
	}
}

// Price resolves and validates every item, applies the optional coupon and
// computes subtotal, discount, shipping, tax and total. shippingCost, when
// non-nil, overrides the default shipping policy (an explicit shipping
// method was chosen). The first failure is returned as-is; nothing is
// partially applied.
func (c *Calculator) Price(
	ctx context.Context,
	customerID string,
	items []ItemRequest,
	couponCode string,
	shippingCost *decimal.Decimal,
) (*Draft, error) {
	draft := &Draft{Items: make([]domain.LineItem, 0, len(items))}

	subtotal := decimal.Zero
	for _, it := range items {
		p, err := c.products.FindByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, &domain.ProductInactiveError{ProductID: p.ID}
		}
		if !p.Available(it.Quantity) {
			return nil, &domain.InsufficientStockError{
				ProductID: p.ID,
				Requested: it.Quantity,
				Available: p.Quantity,
			}
		}

		// Snapshot the current catalog price; the order will carry this
		// price forever regardless of later catalog changes.
		unit := p.Price.RoundBank(2)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(it.Quantity))).RoundBank(2)
		draft.Items = append(draft.Items, domain.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	draft.Subtotal = subtotal

	freeShipping := false
	if couponCode != "" {
		coupon, err := c.resolveCoupon(ctx, customerID, couponCode, subtotal)
		if err != nil {
			return nil, err
		}
		draft.Coupon = coupon
		draft.Discount = coupon.DiscountFor(subtotal)
		freeShipping = coupon.Type == domain.CouponFreeShipping
	} else {
		draft.Discount = decimal.Zero
	}

	draft.Shipping = c.shippingFor(subtotal.Sub(draft.Discount), shippingCost, freeShipping)
	draft.Tax = c.taxFor(subtotal.Sub(draft.Discount))
	draft.Total = subtotal.Sub(draft.Discount).Add(draft.Shipping).Add(draft.Tax)

	return draft, nil
}

func (c *Calculator) resolveCoupon(ctx context.Context, customerID, code string, subtotal decimal.Decimal) (*domain.Coupon, error) {
	code = domain.NormalizeCouponCode(code)

	coupon, err := c.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	userUsed, err := c.coupons.CountUserUsage(ctx, code, customerID)
	if err != nil {
		return nil, err
	}
	if err := coupon.Usable(c.now(), userUsed); err != nil {
		return nil, err
	}
	if subtotal.LessThan(coupon.MinimumAmount) {
		return nil, &domain.CouponMinimumNotMetError{Code: code, Minimum: coupon.MinimumAmount}
	}
	return coupon, nil
}

// shippingFor: an explicit method cost wins, then the free-shipping coupon,
// then the default policy (free at or above the threshold, flat fee below).
func (c *Calculator) shippingFor(discounted decimal.Decimal, explicit *decimal.Decimal, freeShipping bool) decimal.Decimal {
	if freeShipping {
		return decimal.Zero
	}
	if explicit != nil {
		return explicit.RoundBank(2)
	}
	if discounted.GreaterThanOrEqual(freeShippingThreshold) {
		return decimal.Zero
	}
	return flatShippingFee
}

func (c *Calculator) taxFor(discounted decimal.Decimal) decimal.Decimal {
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted.Mul(taxRate).RoundBank(2)
}
