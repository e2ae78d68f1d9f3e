// Package sqlite implements the checkout store on SQLite.
//
// WAL mode is enabled on Open so readers never block the writer. The pool
// is capped at a single connection: SQLite performs best with one writer,
// and funnelling every transaction through one connection is also what
// serializes concurrent confirmations: the webhook and the status poll
// cannot interleave their check-then-set on payment_status.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps Docker builds on Alpine trivial.
	_ "modernc.org/sqlite"
)

// schema is the DDL applied once on startup. Money columns are decimal
// strings (TEXT), never floats; timestamps are RFC3339 TEXT, the SQLite
// idiom.
const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    first_name  TEXT NOT NULL,
    last_name   TEXT NOT NULL,
    email       TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS products (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT    NOT NULL,
    description     TEXT    NOT NULL DEFAULT '',
    unit_price      TEXT    NOT NULL,
    stock_mode      TEXT    NOT NULL DEFAULT 'tracked',
    -- The CHECK backs up the guarded UPDATE in DecrementStock: available
    -- stock can never go negative even if a query slips past the guard.
    stock_available INTEGER NOT NULL DEFAULT 0 CHECK (stock_available >= 0),
    stock_minimum   INTEGER NOT NULL DEFAULT 5,
    active          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS delivery_zones (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT    NOT NULL,
    tariff        TEXT    NOT NULL,
    delivery_days INTEGER NOT NULL DEFAULT 3,
    active        INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS coupons (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    code          TEXT    NOT NULL UNIQUE,
    kind          TEXT    NOT NULL,
    value         TEXT    NOT NULL,
    minimum_order TEXT    NOT NULL DEFAULT '0',
    usage_limit   INTEGER NOT NULL DEFAULT 0,
    usage_count   INTEGER NOT NULL DEFAULT 0,
    active        INTEGER NOT NULL DEFAULT 1
);

-- A cart line belongs to exactly one owner: an authenticated user or an
-- anonymous session. The CHECK enforces the either/or.
CREATE TABLE IF NOT EXISTS cart_lines (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER,
    session_id TEXT,
    product_id INTEGER NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    CHECK ((user_id IS NULL) <> (session_id IS NULL))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_user
    ON cart_lines(user_id, product_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_session
    ON cart_lines(session_id, product_id) WHERE session_id IS NOT NULL;

-- Delivery address snapshot. One row per order, written at checkout and
-- never updated, so later edits to saved addresses cannot rewrite history.
CREATE TABLE IF NOT EXISTS addresses (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         INTEGER NOT NULL,
    recipient_name  TEXT    NOT NULL,
    recipient_phone TEXT    NOT NULL,
    zone_id         INTEGER NOT NULL REFERENCES delivery_zones(id),
    city            TEXT    NOT NULL DEFAULT '',
    district        TEXT    NOT NULL DEFAULT '',
    details         TEXT    NOT NULL DEFAULT '',
    landmark        TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS orders (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    number         TEXT    NOT NULL UNIQUE,
    user_id        INTEGER NOT NULL,
    address_id     INTEGER NOT NULL REFERENCES addresses(id),
    status         TEXT    NOT NULL DEFAULT 'pending',
    payment_status TEXT    NOT NULL DEFAULT 'pending',
    subtotal       TEXT    NOT NULL,
    delivery_fee   TEXT    NOT NULL,
    discount       TEXT    NOT NULL DEFAULT '0',
    total          TEXT    NOT NULL,
    coupon_id      INTEGER REFERENCES coupons(id),
    customer_notes TEXT    NOT NULL DEFAULT '',
    created_at     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

-- Line items snapshot the unit price at order time.
CREATE TABLE IF NOT EXISTS order_lines (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id   INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_id INTEGER NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    unit_price TEXT    NOT NULL,
    subtotal   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id);

-- One payment per order; cascade-deleted with it.
CREATE TABLE IF NOT EXISTS payments (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id         INTEGER NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
    transaction_id   TEXT    NOT NULL,
    amount           TEXT    NOT NULL,
    currency         TEXT    NOT NULL DEFAULT 'XOF',
    status           TEXT    NOT NULL DEFAULT 'pending',
    callback_payload BLOB,
    paid_at          TEXT
);
CREATE INDEX IF NOT EXISTS idx_payments_transaction ON payments(transaction_id);

-- Append-only audit trail of order status transitions. Rows are never
-- updated or deleted.
CREATE TABLE IF NOT EXISTS order_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id   INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    status     TEXT    NOT NULL,
    message    TEXT    NOT NULL DEFAULT '',
    actor_id   INTEGER,
    created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_events_order ON order_events(order_id, created_at);
`

// Store implements ports.Store and ports.CustomerDirectory.
type Store struct {
	db *sql.DB
}

var _ ports.Store = (*Store)(nil)
var _ ports.CustomerDirectory = (*Store)(nil)

// Open opens (or creates) the database at path and applies the schema.
//
//	store, err := sqlite.Open("./data/shop.db")
func Open(path string) (*Store, error) {
	// _pragma query parameters configure connection state for the modernc
	// driver. busy_timeout waits for locks instead of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// Single connection: one writer, and transaction serialization for free.
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

// WithinTx runs fn inside a transaction, committing on nil and rolling
// back otherwise. All repositories handed to fn share that transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return s.run(ctx, fn)
}

// View runs fn in a transaction the caller promises not to write in.
// With a single-connection pool there is no benefit in a separate
// read-only mode; the distinction documents intent at call sites.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return s.run(ctx, fn)
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	if err := fn(ctx, &storeTx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Lookup implements ports.CustomerDirectory.
func (s *Store) Lookup(ctx context.Context, id int64) (*domain.Customer, error) {
	var c *domain.Customer
	err := s.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		c, err = tx.Customers().Get(ctx, id)
		return err
	})
	return c, err
}

// storeTx groups the per-transaction repositories.
type storeTx struct {
	tx *sql.Tx
}

var _ ports.Tx = (*storeTx)(nil)

func (t *storeTx) Products() ports.ProductRepo   { return &productRepo{tx: t.tx} }
func (t *storeTx) Zones() ports.ZoneRepo         { return &zoneRepo{tx: t.tx} }
func (t *storeTx) Coupons() ports.CouponRepo     { return &couponRepo{tx: t.tx} }
func (t *storeTx) Carts() ports.CartRepo         { return &cartRepo{tx: t.tx} }
func (t *storeTx) Addresses() ports.AddressRepo  { return &addressRepo{tx: t.tx} }
func (t *storeTx) Orders() ports.OrderRepo       { return &orderRepo{tx: t.tx} }
func (t *storeTx) Payments() ports.PaymentRepo   { return &paymentRepo{tx: t.tx} }
func (t *storeTx) Events() ports.EventRepo       { return &eventRepo{tx: t.tx} }
func (t *storeTx) Customers() ports.CustomerRepo { return &customerRepo{tx: t.tx} }

// scanDecimal parses a money TEXT column.
func scanDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sqlite: parse decimal %q: %w", s, err)
	}
	return d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
