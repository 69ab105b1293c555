package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gemstack/commerce/internal/checkout/orderlog"
)

// OrderLogRepository is the SQLite implementation of orderlog.Repository.
type OrderLogRepository struct {
	db *sql.DB
}

var _ orderlog.Repository = (*OrderLogRepository)(nil)

func NewOrderLogRepository(s *Store) *OrderLogRepository {
	return &OrderLogRepository{db: s.db}
}

// Append inserts a new log entry. Each call appends a row; the table is an
// append-only audit trail, not an upsert.
func (r *OrderLogRepository) Append(ctx context.Context, entry *orderlog.Entry) error {
	const q = `
		INSERT INTO order_logs (order_id, stage, status, detail, trace_id, span_id, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderID, string(entry.Stage), entry.Status, entry.Detail,
		entry.TraceID, entry.SpanID, formatTime(entry.At),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append order log for %q: %w", entry.OrderID, err)
	}
	return nil
}

// ListByOrder returns the full trail for one order, oldest first. Backs a
// status/history endpoint and operator reconciliation.
func (r *OrderLogRepository) ListByOrder(ctx context.Context, orderID string) ([]*orderlog.Entry, error) {
	const q = `
		SELECT order_id, stage, status, detail, trace_id, span_id, at
		FROM   order_logs
		WHERE  order_id = ?
		ORDER  BY at, id`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list order log for %q: %w", orderID, err)
	}
	defer rows.Close()

	var entries []*orderlog.Entry
	for rows.Next() {
		var e orderlog.Entry
		var at string
		if err := rows.Scan(&e.OrderID, (*string)(&e.Stage), &e.Status, &e.Detail, &e.TraceID, &e.SpanID, &at); err != nil {
			return nil, fmt.Errorf("sqlite: list order log for %q: %w", orderID, err)
		}
		if e.At, err = parseTime(at); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
