package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// CouponRepository is the SQLite implementation of ports.CouponRepository.
type CouponRepository struct {
	db *sql.DB
}

var _ ports.CouponRepository = (*CouponRepository)(nil)

func NewCouponRepository(s *Store) *CouponRepository {
	return &CouponRepository{db: s.db}
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	code = domain.NormalizeCouponCode(code)
	const q = `
		SELECT code, type, value, minimum_cents, max_discount_cents,
		       usage_limit, per_user_limit, starts_at, ends_at, active,
		       (SELECT COUNT(*) FROM coupon_usages u WHERE u.code = coupons.code)
		FROM   coupons
		WHERE  code = ?`

	var c domain.Coupon
	var value, startsAt, endsAt string
	var minCents, maxCents int64
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&c.Code, (*string)(&c.Type), &value, &minCents, &maxCents,
		&c.UsageLimit, &c.PerUserLimit, &startsAt, &endsAt, &c.Active,
		&c.UsageCount,
	)
	if err == sql.ErrNoRows {
		return nil, &domain.CouponNotFoundError{Code: code}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find coupon %q: %w", code, err)
	}

	if c.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("sqlite: coupon %q has bad value %q: %w", code, value, err)
	}
	c.MinimumAmount = fromCents(minCents)
	c.MaxDiscount = fromCents(maxCents)
	if c.StartsAt, err = parseTime(startsAt); err != nil {
		return nil, err
	}
	if c.EndsAt, err = parseTime(endsAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CouponRepository) CountUserUsage(ctx context.Context, code, customerID string) (int, error) {
	const q = `SELECT COUNT(*) FROM coupon_usages WHERE code = ? AND customer_id = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, domain.NormalizeCouponCode(code), customerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count coupon usage for %q: %w", code, err)
	}
	return n, nil
}

// RecordUsage appends a redemption record after re-checking the global and
// per-user limits inside one transaction. The earlier validation read is
// not enough on its own: two concurrent checkouts could both pass it before
// either records usage, so the limits are enforced again here at the point
// of the append.
func (r *CouponRepository) RecordUsage(ctx context.Context, code, customerID, orderID string) error {
	code = domain.NormalizeCouponCode(code)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: record usage for %q: %w", code, err)
	}
	defer func() { _ = tx.Rollback() }()

	var usageLimit, perUserLimit int
	err = tx.QueryRowContext(ctx,
		`SELECT usage_limit, per_user_limit FROM coupons WHERE code = ?`, code,
	).Scan(&usageLimit, &perUserLimit)
	if err == sql.ErrNoRows {
		return &domain.CouponNotFoundError{Code: code}
	}
	if err != nil {
		return fmt.Errorf("sqlite: record usage for %q: %w", code, err)
	}

	var total, byUser int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(CASE WHEN customer_id = ? THEN 1 END)
		 FROM coupon_usages WHERE code = ?`, customerID, code,
	).Scan(&total, &byUser)
	if err != nil {
		return fmt.Errorf("sqlite: record usage for %q: %w", code, err)
	}

	if usageLimit > 0 && total >= usageLimit {
		return &domain.CouponUsageExceededError{Code: code}
	}
	if perUserLimit > 0 && byUser >= perUserLimit {
		return &domain.CouponUsageExceededError{Code: code}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO coupon_usages (code, customer_id, order_id, used_at) VALUES (?, ?, ?, ?)`,
		code, customerID, orderID, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record usage for %q: %w", code, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: record usage for %q: %w", code, err)
	}
	return nil
}

// Insert adds a coupon. Used by seeding and tests.
func (r *CouponRepository) Insert(ctx context.Context, c *domain.Coupon) error {
	const q = `
		INSERT INTO coupons
			(code, type, value, minimum_cents, max_discount_cents,
			 usage_limit, per_user_limit, starts_at, ends_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		domain.NormalizeCouponCode(c.Code), string(c.Type), c.Value.String(),
		cents(c.MinimumAmount), cents(c.MaxDiscount),
		c.UsageLimit, c.PerUserLimit,
		formatTime(c.StartsAt), formatTime(c.EndsAt), c.Active,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert coupon %q: %w", c.Code, err)
	}
	return nil
}
