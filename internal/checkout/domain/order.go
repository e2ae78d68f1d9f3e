package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidTransition is returned when an order is asked to move to a
// status its current status does not allow (including re-cancelling an
// already terminal order).
var ErrInvalidTransition = errors.New("invalid order status transition")

type Status string

const (
	StatusPending       Status = "pending"
	StatusConfirmed     Status = "confirmed"
	StatusInPreparation Status = "in_preparation"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
)

// transitions is the fulfilment track. Cancellation is reachable from any
// non-terminal status; delivered and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:       {StatusConfirmed, StatusCancelled},
	StatusConfirmed:     {StatusInPreparation, StatusShipped, StatusCancelled},
	StatusInPreparation: {StatusShipped, StatusCancelled},
	StatusShipped:       {StatusDelivered, StatusCancelled},
	StatusDelivered:     {},
	StatusCancelled:     {},
}

// AdminStatusTargets is the fixed set of statuses an administrator may
// request directly. Confirmation is never admin-driven; it only happens
// through payment approval.
var AdminStatusTargets = map[Status]bool{
	StatusInPreparation: true,
	StatusShipped:       true,
	StatusDelivered:     true,
	StatusCancelled:     true,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment track of an order, parallel to Status.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentDeclined PaymentStatus = "declined"
	PaymentRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID            int64
	Number        string
	UserID        int64
	AddressID     int64
	Status        Status
	PaymentStatus PaymentStatus
	Subtotal      decimal.Decimal
	DeliveryFee   decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	CouponID      *int64
	CustomerNotes string
	Lines         []OrderLine
	CreatedAt     time.Time
}

// OrderLine snapshots the unit price at order time; later product price
// edits never alter it.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// NewOrderNumber returns a short, human-quotable order reference.
func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

// OrderEvent is one row of the append-only order audit trail.
// ActorID is nil for system-initiated transitions (payment confirmation).
type OrderEvent struct {
	ID        int64
	OrderID   int64
	Status    Status
	Message   string
	ActorID   *int64
	CreatedAt time.Time
}

// TransactionStatus is the payment provider's view of a transaction.
type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxApproved TransactionStatus = "approved"
	TxDeclined TransactionStatus = "declined"
	TxCanceled TransactionStatus = "canceled"
)

// Payment links an order to its external transaction, one to one.
// CallbackPayload keeps the raw provider callback for audit.
type Payment struct {
	ID              int64
	OrderID         int64
	TransactionID   string
	Amount          decimal.Decimal
	Currency        string
	Status          TransactionStatus
	CallbackPayload []byte
	PaidAt          *time.Time
}
