package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusPaid       OrderStatus = "PAID"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

// PaymentStatus is a coarser, parallel flag set by gateway and refund
// outcomes. It can legitimately diverge from OrderStatus: a cancelled order
// whose refund call failed keeps PaymentPaid until an operator resolves it.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// transitions is the legal-move table for order statuses.
// Cancelled, delivered and refunded are terminal. No backward moves.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusCancelled, StatusRefunded},
	StatusPaid:       {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a legal move.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0 && s.IsValid()
}

// Cancellable statuses: pending, paid, processing. Shipped orders go through
// the return flow instead, which is outside this core.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing:
		return true
	}
	return false
}

// Address is a postal address attached to an order.
type Address struct {
	FullName   string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

// LineItem is one product entry within an order. UnitPrice and LineTotal are
// snapshotted at order-creation time and never recomputed from the live
// catalog: an order's historical total must not change because catalog
// prices change later.
type LineItem struct {
	ProductID string
	Name      string
	Variant   string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Order is the persisted record of a placed order. Once created it is
// mutated only by the ledger; no other component writes to it.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerID      string
	Items           []LineItem
	ShippingAddress Address
	BillingAddress  Address

	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	PaymentMethod  string
	PaymentStatus  PaymentStatus
	Status         OrderStatus
	CouponCode     string
	TransactionID  string
	CancelReason   string
	TrackingNumber string
	Notes          string

	CreatedAt time.Time
	UpdatedAt time.Time
}
