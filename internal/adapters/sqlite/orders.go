package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// OrderRepository is the SQLite implementation of ports.OrderRepository.
type OrderRepository struct {
	db *sql.DB
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{db: s.db}
}

// Create persists the order and its line items in one transaction, and
// assigns the customer-facing order number from a per-day sequence bumped
// inside the same transaction. Two concurrent creates can therefore never
// draw the same number — uniqueness is structural, not probabilistic.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: create order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	day := o.CreatedAt.UTC().Format("20060102")
	var seq int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO order_counters (day, seq) VALUES (?, 1)
		 ON CONFLICT(day) DO UPDATE SET seq = seq + 1
		 RETURNING seq`, day,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("sqlite: next order number: %w", err)
	}
	o.OrderNumber = fmt.Sprintf("ORD-%s-%06d", day, seq)

	shipAddr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("sqlite: marshal shipping address: %w", err)
	}
	billAddr, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("sqlite: marshal billing address: %w", err)
	}

	const insertOrder = `
		INSERT INTO orders
			(id, order_number, customer_id, status, payment_status, payment_method,
			 coupon_code, transaction_id, cancel_reason, tracking_number, notes,
			 subtotal_cents, discount_cents, shipping_cents, tax_cents, total_cents,
			 shipping_address, billing_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, insertOrder,
		o.ID, o.OrderNumber, o.CustomerID, string(o.Status), string(o.PaymentStatus), o.PaymentMethod,
		o.CouponCode, o.TransactionID, o.CancelReason, o.TrackingNumber, o.Notes,
		cents(o.Subtotal), cents(o.Discount), cents(o.Shipping), cents(o.Tax), cents(o.Total),
		string(shipAddr), string(billAddr), formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert order %q: %w", o.ID, err)
	}

	const insertItem = `
		INSERT INTO order_items
			(order_id, product_id, name, variant, quantity, unit_price_cents, line_total_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, it := range o.Items {
		if _, err := tx.ExecContext(ctx, insertItem,
			o.ID, it.ProductID, it.Name, it.Variant, it.Quantity,
			cents(it.UnitPrice), cents(it.LineTotal),
		); err != nil {
			return fmt.Errorf("sqlite: insert order item for %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: create order %q: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
		SELECT id, order_number, customer_id, status, payment_status, payment_method,
		       coupon_code, transaction_id, cancel_reason, tracking_number, notes,
		       subtotal_cents, discount_cents, shipping_cents, tax_cents, total_cents,
		       shipping_address, billing_address, created_at, updated_at
		FROM   orders
		WHERE  id = ?`

	o, err := r.scanOrder(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, &domain.OrderNotFoundError{OrderID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find order %q: %w", id, err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, order_number, customer_id, status, payment_status, payment_method,
		       coupon_code, transaction_id, cancel_reason, tracking_number, notes,
		       subtotal_cents, discount_cents, shipping_cents, tax_cents, total_cents,
		       shipping_address, billing_address, created_at, updated_at
		FROM   orders
		WHERE  customer_id = ?
		ORDER  BY created_at DESC
		LIMIT  ?`

	rows, err := r.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders for %q: %w", customerID, err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list orders for %q: %w", customerID, err)
		}
		if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id, transactionID string) error {
	const q = `
		UPDATE orders
		SET    status = ?, payment_status = ?, transaction_id = ?, updated_at = ?
		WHERE  id = ?`
	return r.exec(ctx, id, q,
		string(domain.StatusPaid), string(domain.PaymentPaid), transactionID, formatTime(time.Now()), id)
}

func (r *OrderRepository) MarkCancelled(ctx context.Context, id, reason string, payment domain.PaymentStatus) error {
	const q = `
		UPDATE orders
		SET    status = ?, payment_status = ?, cancel_reason = ?, updated_at = ?
		WHERE  id = ?`
	return r.exec(ctx, id, q,
		string(domain.StatusCancelled), string(payment), reason, formatTime(time.Now()), id)
}

func (r *OrderRepository) SetStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber, notes string) error {
	const q = `
		UPDATE orders
		SET    status = ?,
		       tracking_number = CASE WHEN ? != '' THEN ? ELSE tracking_number END,
		       notes           = CASE WHEN ? != '' THEN ? ELSE notes END,
		       updated_at = ?
		WHERE  id = ?`
	return r.exec(ctx, id, q,
		string(status), trackingNumber, trackingNumber, notes, notes, formatTime(time.Now()), id)
}

func (r *OrderRepository) SetPaymentStatus(ctx context.Context, id string, payment domain.PaymentStatus) error {
	const q = `UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?`
	return r.exec(ctx, id, q, string(payment), formatTime(time.Now()), id)
}

func (r *OrderRepository) exec(ctx context.Context, id, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("sqlite: update order %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update order %q: %w", id, err)
	}
	if n == 0 {
		return &domain.OrderNotFoundError{OrderID: id}
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *OrderRepository) scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var subtotal, discount, shipping, tax, total int64
	var shipAddr, billAddr, createdAt, updatedAt string

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, (*string)(&o.Status), (*string)(&o.PaymentStatus), &o.PaymentMethod,
		&o.CouponCode, &o.TransactionID, &o.CancelReason, &o.TrackingNumber, &o.Notes,
		&subtotal, &discount, &shipping, &tax, &total,
		&shipAddr, &billAddr, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Subtotal = fromCents(subtotal)
	o.Discount = fromCents(discount)
	o.Shipping = fromCents(shipping)
	o.Tax = fromCents(tax)
	o.Total = fromCents(total)

	if err := json.Unmarshal([]byte(shipAddr), &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal([]byte(billAddr), &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	const q = `
		SELECT product_id, name, variant, quantity, unit_price_cents, line_total_cents
		FROM   order_items
		WHERE  order_id = ?
		ORDER  BY id`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load items for %q: %w", orderID, err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		var unit, line int64
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Variant, &it.Quantity, &unit, &line); err != nil {
			return nil, fmt.Errorf("sqlite: load items for %q: %w", orderID, err)
		}
		it.UnitPrice = fromCents(unit)
		it.LineTotal = fromCents(line)
		items = append(items, it)
	}
	return items, rows.Err()
}
