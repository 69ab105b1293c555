// Package memory provides in-memory implementations of the checkout ports,
// intended for local development and tests only. They honor the same
// atomicity contracts as the SQLite adapters (mutex-guarded
// check-and-mutate), so concurrency tests exercise the real invariants.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gemstack/commerce/internal/checkout/orderlog"
	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// ProductRepository keeps products in a mutex-guarded map.
type ProductRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

var _ ports.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*domain.Product)}
}

func (r *ProductRepository) Put(p *domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepository) DecrementInventory(ctx context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return &domain.ProductNotFoundError{ProductID: id}
	}
	if p.TrackQuantity {
		if p.Quantity < qty {
			return &domain.InsufficientStockError{ProductID: id, Requested: qty, Available: p.Quantity}
		}
		p.Quantity -= qty
	}
	p.Sold += qty
	return nil
}

func (r *ProductRepository) RestoreInventory(ctx context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return &domain.ProductNotFoundError{ProductID: id}
	}
	if p.TrackQuantity {
		p.Quantity += qty
	}
	if p.Sold -= qty; p.Sold < 0 {
		p.Sold = 0
	}
	return nil
}

// CouponRepository keeps coupons and their usage records in memory.
type CouponRepository struct {
	mu      sync.Mutex
	coupons map[string]*domain.Coupon
	usages  []domain.CouponUsage
}

var _ ports.CouponRepository = (*CouponRepository)(nil)

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{coupons: make(map[string]*domain.Coupon)}
}

func (r *CouponRepository) Put(c *domain.Coupon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.Code = domain.NormalizeCouponCode(c.Code)
	r.coupons[cp.Code] = &cp
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = domain.NormalizeCouponCode(code)
	c, ok := r.coupons[code]
	if !ok {
		return nil, &domain.CouponNotFoundError{Code: code}
	}
	cp := *c
	cp.UsageCount = r.countLocked(code, "")
	return &cp, nil
}

func (r *CouponRepository) CountUserUsage(ctx context.Context, code, customerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked(domain.NormalizeCouponCode(code), customerID), nil
}

func (r *CouponRepository) RecordUsage(ctx context.Context, code, customerID, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = domain.NormalizeCouponCode(code)
	c, ok := r.coupons[code]
	if !ok {
		return &domain.CouponNotFoundError{Code: code}
	}
	if c.UsageLimit > 0 && r.countLocked(code, "") >= c.UsageLimit {
		return &domain.CouponUsageExceededError{Code: code}
	}
	if c.PerUserLimit > 0 && r.countLocked(code, customerID) >= c.PerUserLimit {
		return &domain.CouponUsageExceededError{Code: code}
	}
	r.usages = append(r.usages, domain.CouponUsage{
		Code:       code,
		CustomerID: customerID,
		OrderID:    orderID,
		UsedAt:     time.Now().UTC(),
	})
	return nil
}

// countLocked counts usages for a code; customerID filters when non-empty.
func (r *CouponRepository) countLocked(code, customerID string) int {
	n := 0
	for _, u := range r.usages {
		if u.Code == code && (customerID == "" || u.CustomerID == customerID) {
			n++
		}
	}
	return n
}

// OrderRepository keeps orders in memory with a monotonic order number.
type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	seq    int
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.OrderNumber = fmt.Sprintf("ORD-%s-%06d", o.CreatedAt.UTC().Format("20060102"), r.seq)
	cp := cloneOrder(o)
	r.orders[o.ID] = cp
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, &domain.OrderNotFoundError{OrderID: id}
	}
	return cloneOrder(o), nil
}

// ListByCustomer returns the customer's orders newest first, matching the
// SQLite adapter's contract.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id, transactionID string) error {
	return r.update(id, func(o *domain.Order) {
		o.Status = domain.StatusPaid
		o.PaymentStatus = domain.PaymentPaid
		o.TransactionID = transactionID
	})
}

func (r *OrderRepository) MarkCancelled(ctx context.Context, id, reason string, payment domain.PaymentStatus) error {
	return r.update(id, func(o *domain.Order) {
		o.Status = domain.StatusCancelled
		o.PaymentStatus = payment
		o.CancelReason = reason
	})
}

func (r *OrderRepository) SetStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber, notes string) error {
	return r.update(id, func(o *domain.Order) {
		o.Status = status
		if trackingNumber != "" {
			o.TrackingNumber = trackingNumber
		}
		if notes != "" {
			o.Notes = notes
		}
	})
}

func (r *OrderRepository) SetPaymentStatus(ctx context.Context, id string, payment domain.PaymentStatus) error {
	return r.update(id, func(o *domain.Order) {
		o.PaymentStatus = payment
	})
}

func (r *OrderRepository) update(id string, fn func(*domain.Order)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return &domain.OrderNotFoundError{OrderID: id}
	}
	fn(o)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	return &cp
}

// OrderLog keeps audit entries in memory, in append order.
type OrderLog struct {
	mu      sync.Mutex
	entries []*orderlog.Entry
}

var _ orderlog.Repository = (*OrderLog)(nil)

func NewOrderLog() *OrderLog {
	return &OrderLog{}
}

func (l *OrderLog) Append(ctx context.Context, entry *orderlog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *entry
	l.entries = append(l.entries, &cp)
	return nil
}

func (l *OrderLog) ListByOrder(ctx context.Context, orderID string) ([]*orderlog.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*orderlog.Entry
	for _, e := range l.entries {
		if e.OrderID == orderID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// CartStore records deactivations; Deactivated reports whether a customer's
// cart has been closed.
type CartStore struct {
	mu     sync.Mutex
	closed map[string]bool
}

var _ ports.CartStore = (*CartStore)(nil)

func NewCartStore() *CartStore {
	return &CartStore{closed: make(map[string]bool)}
}

func (s *CartStore) Deactivate(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[customerID] = true
	return nil
}

func (s *CartStore) Deactivated(customerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed[customerID]
}
