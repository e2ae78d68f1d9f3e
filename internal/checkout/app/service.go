// Package app orchestrates the checkout-to-payment-confirmation pipeline:
// pricing, order creation, the external payment transaction, and the
// asynchronous confirmation that reconciles payment state with stock and
// cart state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
	"github.com/luxecajou/api/internal/checkout/pricing"
	"github.com/luxecajou/api/internal/inventory"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrIncompleteDeliveryData = errors.New("incomplete delivery data")
	// ErrPaymentGateway wraps provider failures during initialization; the
	// whole checkout transaction rolls back when it is returned.
	ErrPaymentGateway = errors.New("payment gateway error")
	// ErrUnsupportedStatus is returned when an admin asks for a status
	// outside the allowed target set.
	ErrUnsupportedStatus = errors.New("unsupported status target")
)

// Service coordinates the checkout pipeline. Every collaborator is
// injected; the service owns no global state.
type Service struct {
	store     ports.Store
	gateway   ports.PaymentGateway
	notifier  ports.Notifier
	customers ports.CustomerDirectory
	ledger    *inventory.Ledger
	logger    *slog.Logger

	currency        string
	callbackBaseURL string
}

func NewService(
	store ports.Store,
	gateway ports.PaymentGateway,
	notifier ports.Notifier,
	customers ports.CustomerDirectory,
	logger *slog.Logger,
	currency string,
	callbackBaseURL string,
) *Service {
	return &Service{
		store:           store,
		gateway:         gateway,
		notifier:        notifier,
		customers:       customers,
		ledger:          inventory.NewLedger(),
		logger:          logger,
		currency:        currency,
		callbackBaseURL: callbackBaseURL,
	}
}

// DeliveryDetails is the delivery input of a checkout request. It becomes
// an address snapshot; it is never a reference to a saved address row.
type DeliveryDetails struct {
	RecipientName  string
	RecipientPhone string
	ZoneID         int64
	City           string
	District       string
	Details        string
	Landmark       string
}

func (d DeliveryDetails) validate() error {
	if d.RecipientName == "" || d.RecipientPhone == "" || d.ZoneID == 0 || d.Details == "" {
		return ErrIncompleteDeliveryData
	}
	return nil
}

// CheckoutInput is everything InitializeCheckout needs besides the
// authenticated user.
type CheckoutInput struct {
	Delivery      DeliveryDetails
	CouponCode    string
	CustomerNotes string
}

// InitializeCheckout turns the user's cart into a priced pending order and
// opens the external payment transaction, all in one store transaction:
// if the provider call fails, no order, address, line or payment row
// survives. Stock and the cart are deliberately NOT touched here; both
// are deferred to confirmation, so an abandoned checkout leaves nothing
// to undo.
func (s *Service) InitializeCheckout(ctx context.Context, userID int64, in CheckoutInput) (string, error) {
	if err := in.Delivery.validate(); err != nil {
		return "", err
	}

	customer, err := s.customers.Lookup(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("lookup customer %d: %w", userID, err)
	}

	var paymentURL string
	var orderNumber string

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		cart, err := tx.Carts().ListByOwner(ctx, domain.UserOwner(userID))
		if err != nil {
			return err
		}
		if len(cart) == 0 {
			return ErrEmptyCart
		}

		priced := make([]pricing.Line, 0, len(cart))
		for _, line := range cart {
			p, err := tx.Products().Get(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("load product %d: %w", line.ProductID, err)
			}
			priced = append(priced, pricing.Line{Product: *p, Quantity: line.Quantity})
		}

		zone, err := tx.Zones().Get(ctx, in.Delivery.ZoneID)
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			return err
		}

		// An unknown coupon code is silently ignored; only a matched,
		// active coupon participates in pricing.
		var coupon *domain.Coupon
		if in.CouponCode != "" {
			coupon, err = tx.Coupons().GetByCode(ctx, in.CouponCode)
			if err != nil && !errors.Is(err, ports.ErrNotFound) {
				return err
			}
		}

		quote, err := pricing.ComputeTotals(priced, zone, coupon)
		if err != nil {
			return err
		}

		address := &domain.Address{
			UserID:         userID,
			RecipientName:  in.Delivery.RecipientName,
			RecipientPhone: in.Delivery.RecipientPhone,
			ZoneID:         in.Delivery.ZoneID,
			City:           in.Delivery.City,
			District:       in.Delivery.District,
			Details:        in.Delivery.Details,
			Landmark:       in.Delivery.Landmark,
		}
		if err := tx.Addresses().Create(ctx, address); err != nil {
			return err
		}

		order := &domain.Order{
			Number:        domain.NewOrderNumber(),
			UserID:        userID,
			AddressID:     address.ID,
			Status:        domain.StatusPending,
			PaymentStatus: domain.PaymentPending,
			Subtotal:      quote.Subtotal,
			DeliveryFee:   quote.DeliveryFee,
			Discount:      quote.Discount,
			Total:         quote.Total,
			CustomerNotes: in.CustomerNotes,
			CreatedAt:     time.Now(),
		}
		if coupon != nil && coupon.Active {
			order.CouponID = &coupon.ID
		}
		for i, line := range cart {
			unit := priced[i].Product.UnitPrice
			order.Lines = append(order.Lines, domain.OrderLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: unit,
				Subtotal:  unit.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		if err := tx.Events().Append(ctx, &domain.OrderEvent{
			OrderID: order.ID,
			Status:  domain.StatusPending,
			Message: "order created, awaiting payment",
		}); err != nil {
			return err
		}

		created, err := s.gateway.CreateTransaction(ctx, ports.CreateTransactionRequest{
			Amount:      quote.Total,
			Currency:    s.currency,
			Description: "Paiement commande " + order.Number,
			Customer:    *customer,
			CallbackURL: fmt.Sprintf("%s/payment-success?order_id=%d", s.callbackBaseURL, order.ID),
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentGateway, err)
		}

		if err := tx.Payments().Create(ctx, &domain.Payment{
			OrderID:       order.ID,
			TransactionID: created.ID,
			Amount:        quote.Total,
			Currency:      s.currency,
			Status:        domain.TxPending,
		}); err != nil {
			return err
		}

		paymentURL = created.PaymentURL
		orderNumber = order.Number
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "checkout initialized",
		"order_number", orderNumber, "user_id", userID)
	return paymentURL, nil
}
