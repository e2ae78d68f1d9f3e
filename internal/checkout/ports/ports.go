// Package ports declares the interfaces the checkout core depends on.
// The orchestrator only ever sees these abstractions; the sqlite store,
// the FedaPay client and the notification sink plug in behind them.
package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/luxecajou/api/internal/checkout/domain"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock is returned by ProductRepo.DecrementStock when the
// guarded decrement would drive available stock negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// Tx groups the repositories of one database transaction. Every method
// called on it runs on the same underlying transaction, so a multi-row
// mutation (order creation, payment confirmation) is atomic.
type Tx interface {
	Products() ProductRepo
	Zones() ZoneRepo
	Coupons() CouponRepo
	Carts() CartRepo
	Addresses() AddressRepo
	Orders() OrderRepo
	Payments() PaymentRepo
	Events() EventRepo
	Customers() CustomerRepo
}

// Store is the transaction boundary. WithinTx commits if fn returns nil
// and rolls everything back otherwise. Writers serialize against each
// other, which is what makes the confirmation check-then-set race-safe.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type ProductRepo interface {
	Create(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, id int64) (*domain.Product, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
	// DecrementStock atomically subtracts qty from a tracked product's
	// stock, failing with ErrInsufficientStock instead of going negative.
	// Untracked products are left untouched and returned as-is.
	DecrementStock(ctx context.Context, id int64, qty int) (*domain.Product, error)
	// IncrementStock gives qty back to a tracked product. No-op for
	// untracked products.
	IncrementStock(ctx context.Context, id int64, qty int) error
}

type ZoneRepo interface {
	Create(ctx context.Context, z *domain.DeliveryZone) error
	Get(ctx context.Context, id int64) (*domain.DeliveryZone, error)
	ListActive(ctx context.Context) ([]domain.DeliveryZone, error)
}

type CouponRepo interface {
	Create(ctx context.Context, c *domain.Coupon) error
	// GetByCode returns the coupon regardless of its active flag; pricing
	// decides what an inactive coupon means.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	IncrementUsage(ctx context.Context, id int64) error
}

type CartRepo interface {
	ListByOwner(ctx context.Context, owner domain.CartOwner) ([]domain.CartLine, error)
	// Upsert adds qty to an existing line or creates one.
	Upsert(ctx context.Context, owner domain.CartOwner, productID int64, qty int) error
	// SetQuantity replaces a line's quantity; zero deletes the line.
	SetQuantity(ctx context.Context, owner domain.CartOwner, productID int64, qty int) error
	DeleteByOwner(ctx context.Context, owner domain.CartOwner) error
	// MergeSession folds an anonymous session cart into a user cart,
	// summing quantities on collision. The session lines are removed.
	MergeSession(ctx context.Context, sessionID string, userID int64) error
}

type AddressRepo interface {
	Create(ctx context.Context, a *domain.Address) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error)
	List(ctx context.Context, status domain.Status) ([]domain.Order, error)
	// MarkConfirmed flips pending/pending to confirmed/approved as one
	// compare-and-swap. It reports false when the order was not in the
	// pending payment state, which is how concurrent confirmations detect
	// they lost the race.
	MarkConfirmed(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, s domain.Status) error
	SetPaymentStatus(ctx context.Context, id int64, ps domain.PaymentStatus) error
}

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByOrder(ctx context.Context, orderID int64) (*domain.Payment, error)
	GetByTransactionID(ctx context.Context, txID string) (*domain.Payment, error)
	// SetStatus updates the provider status and, when payload is non-nil,
	// records the raw callback for audit.
	SetStatus(ctx context.Context, id int64, s domain.TransactionStatus, payload []byte) error
}

type EventRepo interface {
	Append(ctx context.Context, e *domain.OrderEvent) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderEvent, error)
}

// CreateTransactionRequest is what the provider needs to open a hosted
// payment page.
type CreateTransactionRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Customer    domain.Customer
	CallbackURL string
}

// CreatedTransaction is the provider's answer: its transaction id and the
// URL the customer is redirected to.
type CreatedTransaction struct {
	ID         string
	PaymentURL string
}

// PaymentGateway abstracts the payment provider. The orchestrator never
// sees provider-specific request or response shapes.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreatedTransaction, error)
	GetTransaction(ctx context.Context, id string) (domain.TransactionStatus, error)
}

// Notifier is the external email/push sink. Implementations must be safe
// to call after the financial transaction committed; failures are logged
// by the caller, never propagated.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *domain.Order, customer *domain.Customer)
	NewOrderAlert(ctx context.Context, order *domain.Order)
	OrderStatusChanged(ctx context.Context, order *domain.Order)
	LowStock(ctx context.Context, product *domain.Product)
}

type CustomerRepo interface {
	Create(ctx context.Context, c *domain.Customer) error
	Get(ctx context.Context, id int64) (*domain.Customer, error)
}

// CustomerDirectory resolves the customer identity slice checkout needs.
// User management itself lives outside this module.
type CustomerDirectory interface {
	Lookup(ctx context.Context, id int64) (*domain.Customer, error)
}
