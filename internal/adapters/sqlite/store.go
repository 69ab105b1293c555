// Package sqlite provides the SQLite-backed implementations of the checkout
// core's repository ports.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — the effect sequence writes while HTTP handlers may be reading.
// The database keeps a single writer connection; with busy_timeout set,
// concurrent mutations serialize at the storage layer, which is exactly what
// the atomic inventory and coupon operations rely on.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// keeping Docker (Alpine) builds simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. Idempotent via IF NOT EXISTS.
// Monetary amounts are stored as integer cents; coupon values (which may be
// percentage rates) are stored as decimal TEXT.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id              TEXT PRIMARY KEY,
    name            TEXT    NOT NULL,
    price_cents     INTEGER NOT NULL,
    quantity        INTEGER NOT NULL DEFAULT 0,
    sold            INTEGER NOT NULL DEFAULT 0,
    track_quantity  INTEGER NOT NULL DEFAULT 1,
    active          INTEGER NOT NULL DEFAULT 1,

    CHECK (quantity >= 0)
);

CREATE TABLE IF NOT EXISTS coupons (
    code             TEXT PRIMARY KEY,   -- stored canonical (upper case)
    type             TEXT    NOT NULL,
    value            TEXT    NOT NULL,   -- decimal string: rate or amount
    minimum_cents    INTEGER NOT NULL DEFAULT 0,
    max_discount_cents INTEGER NOT NULL DEFAULT 0,  -- 0 = no cap
    usage_limit      INTEGER NOT NULL DEFAULT 0,    -- 0 = unlimited
    per_user_limit   INTEGER NOT NULL DEFAULT 0,
    starts_at        TEXT    NOT NULL,
    ends_at          TEXT    NOT NULL,
    active           INTEGER NOT NULL DEFAULT 1
);

-- Append-only redemption history, owned by the coupon.
CREATE TABLE IF NOT EXISTS coupon_usages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    code        TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    order_id    TEXT NOT NULL,
    used_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_coupon_usages_code ON coupon_usages(code, customer_id);

CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    order_number     TEXT    NOT NULL UNIQUE,
    customer_id      TEXT    NOT NULL,
    status           TEXT    NOT NULL,
    payment_status   TEXT    NOT NULL,
    payment_method   TEXT    NOT NULL,
    coupon_code      TEXT    NOT NULL DEFAULT '',
    transaction_id   TEXT    NOT NULL DEFAULT '',
    cancel_reason    TEXT    NOT NULL DEFAULT '',
    tracking_number  TEXT    NOT NULL DEFAULT '',
    notes            TEXT    NOT NULL DEFAULT '',
    subtotal_cents   INTEGER NOT NULL,
    discount_cents   INTEGER NOT NULL,
    shipping_cents   INTEGER NOT NULL,
    tax_cents        INTEGER NOT NULL,
    total_cents      INTEGER NOT NULL,
    shipping_address TEXT    NOT NULL,   -- JSON
    billing_address  TEXT    NOT NULL,   -- JSON
    created_at       TEXT    NOT NULL,
    updated_at       TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at);

CREATE TABLE IF NOT EXISTS order_items (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id         TEXT    NOT NULL REFERENCES orders(id),
    product_id       TEXT    NOT NULL,
    name             TEXT    NOT NULL,
    variant          TEXT    NOT NULL DEFAULT '',
    quantity         INTEGER NOT NULL,
    unit_price_cents INTEGER NOT NULL,
    line_total_cents INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

-- Per-day sequence backing the customer-facing order numbers. Bumped inside
-- the order INSERT transaction, so numbers are structurally collision-free.
CREATE TABLE IF NOT EXISTS order_counters (
    day  TEXT PRIMARY KEY,
    seq  INTEGER NOT NULL
);

-- Append-only audit trail of order lifecycle transitions.
CREATE TABLE IF NOT EXISTS order_logs (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id  TEXT NOT NULL,
    stage     TEXT NOT NULL,
    status    TEXT NOT NULL,
    detail    TEXT NOT NULL DEFAULT '',
    trace_id  TEXT NOT NULL DEFAULT '',
    span_id   TEXT NOT NULL DEFAULT '',
    at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_logs_order ON order_logs(order_id, at);
CREATE INDEX IF NOT EXISTS idx_order_logs_trace ON order_logs(trace_id);
`

// Store owns the database handle shared by the repository types.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
//
//	store, err := sqlite.Open("./data/commerce.db")
func Open(path string) (*Store, error) {
	// The pure-Go driver configures connection state via _pragma query
	// parameters. busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3", for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

// cents converts a 2dp decimal amount to integer cents for storage.
func cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// fromCents converts stored integer cents back to a decimal amount.
func fromCents(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}
