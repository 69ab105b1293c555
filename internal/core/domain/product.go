package domain

import "github.com/shopspring/decimal"

// Product is a catalog record as seen by the checkout core: read-only here.
// Inventory is decremented only by confirmed orders and restored only by
// cancellations, always through the repository's atomic operations.
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	Quantity      int
	Sold          int
	TrackQuantity bool
	Active        bool
}

// Available reports whether the requested quantity can be fulfilled.
// Products that do not track quantity are always available.
func (p *Product) Available(qty int) bool {
	if !p.TrackQuantity {
		return true
	}
	return p.Quantity >= qty
}
