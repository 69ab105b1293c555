package orderlog

import "context"

// Repository is the port for persisting order log entries. The ledger
// depends on this abstraction, not on SQLite directly, so the
// implementation can be swapped for in-memory (tests), Postgres, etc.
type Repository interface {
	// Append persists a new entry. The log is append-only; entries are
	// never updated or removed.
	Append(ctx context.Context, entry *Entry) error

	// ListByOrder returns the full trail for one order, oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]*Entry, error)
}
