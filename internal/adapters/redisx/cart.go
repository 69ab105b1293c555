// Package redisx holds the Redis-backed adapters: the cart store and the
// purchase analytics stream.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gemstack/commerce/internal/core/ports"
)

// closedCartTTL keeps closed carts around briefly for support lookups
// before Redis evicts them.
const closedCartTTL = 72 * time.Hour

// CartStore keeps active carts as Redis hashes under cart:<customer_id>.
// The checkout core only ever soft-closes them.
type CartStore struct {
	client *redis.Client
}

var _ ports.CartStore = (*CartStore)(nil)

func NewCartStore(client *redis.Client) *CartStore {
	return &CartStore{client: client}
}

// Deactivate marks the customer's active cart closed and lets it expire.
// A missing cart is not an error: the customer may have checked out from a
// direct "buy now" flow with no cart at all.
func (s *CartStore) Deactivate(ctx context.Context, customerID string) error {
	key := cartKey(customerID)

	if err := s.client.HSet(ctx, key, "status", "closed", "closed_at", time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return fmt.Errorf("redis: close cart %s: %w", key, err)
	}
	if err := s.client.Expire(ctx, key, closedCartTTL).Err(); err != nil {
		return fmt.Errorf("redis: expire cart %s: %w", key, err)
	}
	return nil
}

func cartKey(customerID string) string {
	return "cart:" + customerID
}
