package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// ProductRepository is the SQLite implementation of ports.ProductRepository.
type ProductRepository struct {
	db *sql.DB
}

var _ ports.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(s *Store) *ProductRepository {
	return &ProductRepository{db: s.db}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
		SELECT id, name, price_cents, quantity, sold, track_quantity, active
		FROM   products
		WHERE  id = ?`

	var p domain.Product
	var priceCents int64
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &priceCents, &p.Quantity, &p.Sold, &p.TrackQuantity, &p.Active,
	)
	if err == sql.ErrNoRows {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find product %q: %w", id, err)
	}
	p.Price = fromCents(priceCents)
	return &p, nil
}

// DecrementInventory removes qty units in a single conditional UPDATE:
// check and mutation happen in one indivisible step, so the second of two
// racing checkouts for the last unit observes insufficient stock instead of
// driving the count negative. Products with tracking off only get their
// sold counter bumped.
func (r *ProductRepository) DecrementInventory(ctx context.Context, id string, qty int) error {
	const q = `
		UPDATE products
		SET    quantity = CASE WHEN track_quantity = 1 THEN quantity - ? ELSE quantity END,
		       sold     = sold + ?
		WHERE  id = ?
		AND    (track_quantity = 0 OR quantity >= ?)`

	res, err := r.db.ExecContext(ctx, q, qty, qty, id, qty)
	if err != nil {
		return fmt.Errorf("sqlite: decrement inventory for %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: decrement inventory for %q: %w", id, err)
	}
	if n == 0 {
		// Distinguish oversell from a missing product row.
		p, findErr := r.FindByID(ctx, id)
		if findErr != nil {
			return findErr
		}
		return &domain.InsufficientStockError{ProductID: id, Requested: qty, Available: p.Quantity}
	}
	return nil
}

// RestoreInventory reverses a decrement on cancellation. The sold counter
// is floored at zero rather than trusted blindly.
func (r *ProductRepository) RestoreInventory(ctx context.Context, id string, qty int) error {
	const q = `
		UPDATE products
		SET    quantity = CASE WHEN track_quantity = 1 THEN quantity + ? ELSE quantity END,
		       sold     = MAX(sold - ?, 0)
		WHERE  id = ?`

	res, err := r.db.ExecContext(ctx, q, qty, qty, id)
	if err != nil {
		return fmt.Errorf("sqlite: restore inventory for %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: restore inventory for %q: %w", id, err)
	}
	if n == 0 {
		return &domain.ProductNotFoundError{ProductID: id}
	}
	return nil
}

// Insert adds a catalog record. Used by seeding and tests; the checkout
// core itself never creates products.
func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	const q = `
		INSERT INTO products (id, name, price_cents, quantity, sold, track_quantity, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.Name, cents(p.Price), p.Quantity, p.Sold, p.TrackQuantity, p.Active,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert product %q: %w", p.ID, err)
	}
	return nil
}
