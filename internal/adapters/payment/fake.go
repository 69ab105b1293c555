// Package payment provides adapters for the external payment processor.
package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// FakeGateway is an in-memory gateway for local development and tests only.
// It approves every charge up to a configurable limit and declines above
// it, mirroring how a processor decline surfaces to the ledger.
type FakeGateway struct {
	mu      sync.Mutex
	limit   decimal.Decimal
	charges map[string]decimal.Decimal
}

var _ ports.PaymentGateway = (*FakeGateway)(nil)

// NewFakeGateway returns a gateway that declines charges above limit.
// A zero limit approves everything.
func NewFakeGateway(limit decimal.Decimal) *FakeGateway {
	return &FakeGateway{
		limit:   limit,
		charges: make(map[string]decimal.Decimal),
	}
}

func (g *FakeGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limit.IsPositive() && req.Amount.GreaterThan(g.limit) {
		return nil, &domain.PaymentFailedError{Detail: "amount exceeds card limit"}
	}

	txn := "txn_" + uuid.NewString()
	g.charges[txn] = req.Amount
	return &ports.ChargeResult{TransactionID: txn}, nil
}

func (g *FakeGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.charges[transactionID]; !ok {
		return &domain.PaymentGatewayError{Err: &domain.PaymentFailedError{Detail: "unknown transaction " + transactionID}}
	}
	delete(g.charges, transactionID)
	return nil
}
