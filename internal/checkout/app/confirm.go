package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

// ConfirmPaymentByPoll is the client-driven half of payment confirmation:
// it re-queries the provider and, if the transaction is approved, runs the
// same idempotent confirmation routine the webhook uses. A provider
// failure here is reported in logs but never fatal: the order keeps its
// current state and the webhook remains the backstop.
func (s *Service) ConfirmPaymentByPoll(ctx context.Context, orderID, userID int64) (domain.PaymentStatus, error) {
	var order *domain.Order
	var payment *domain.Payment
	err := s.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		if order, err = tx.Orders().GetForUser(ctx, orderID, userID); err != nil {
			return err
		}
		payment, err = tx.Payments().GetByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return "", err
	}

	// Idempotence short-circuit: approved is final on this track.
	if order.PaymentStatus == domain.PaymentApproved {
		return domain.PaymentApproved, nil
	}

	status, err := s.gateway.GetTransaction(ctx, payment.TransactionID)
	if err != nil {
		s.logger.WarnContext(ctx, "payment status poll failed, keeping current state",
			"order_id", orderID, "error", err)
		return order.PaymentStatus, nil
	}
	if status != domain.TxApproved {
		return order.PaymentStatus, nil
	}

	if err := s.confirm(ctx, orderID, nil); err != nil {
		return "", err
	}
	return domain.PaymentApproved, nil
}

// HandleWebhookEvent processes an inbound provider callback. Unknown event
// names and transaction ids that match no payment are silently dropped;
// the HTTP layer answers 200 either way so callers cannot probe for
// existing transactions.
func (s *Service) HandleWebhookEvent(ctx context.Context, eventName, transactionID string, payload []byte) error {
	if eventName != "transaction.approved" {
		return nil
	}

	var payment *domain.Payment
	err := s.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		payment, err = tx.Payments().GetByTransactionID(ctx, transactionID)
		return err
	})
	if errors.Is(err, ports.ErrNotFound) {
		s.logger.InfoContext(ctx, "webhook for unknown transaction dropped",
			"transaction_id", transactionID)
		return nil
	}
	if err != nil {
		return err
	}

	return s.confirm(ctx, payment.OrderID, payload)
}

// confirm is the single confirmation routine behind both the webhook and
// the status poll. The MarkConfirmed compare-and-swap at the top makes it
// idempotent and race-safe: whichever caller wins the swap applies the
// side effects exactly once, every other caller sees "already confirmed"
// and succeeds without touching anything.
func (s *Service) confirm(ctx context.Context, orderID int64, callbackPayload []byte) error {
	var order *domain.Order
	var lowStock []domain.Product
	confirmed := false

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		won, err := tx.Orders().MarkConfirmed(ctx, orderID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		confirmed = true

		if order, err = tx.Orders().Get(ctx, orderID); err != nil {
			return err
		}

		payment, err := tx.Payments().GetByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := tx.Payments().SetStatus(ctx, payment.ID, domain.TxApproved, callbackPayload); err != nil {
			return err
		}

		// Reservation happens here, not at initialization: stock only
		// moves for paid orders.
		for _, line := range order.Lines {
			product, crossed, err := s.ledger.Reserve(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("reserve stock for order %d: %w", orderID, err)
			}
			if crossed {
				lowStock = append(lowStock, *product)
			}
		}

		if order.CouponID != nil {
			if err := tx.Coupons().IncrementUsage(ctx, *order.CouponID); err != nil {
				return err
			}
		}

		if err := tx.Carts().DeleteByOwner(ctx, domain.UserOwner(order.UserID)); err != nil {
			return err
		}

		return tx.Events().Append(ctx, &domain.OrderEvent{
			OrderID: orderID,
			Status:  domain.StatusConfirmed,
			Message: "payment approved",
		})
	})
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	s.logger.InfoContext(ctx, "order confirmed", "order_id", orderID, "order_number", order.Number)

	// Notifications run after commit and are best-effort; a failing sink
	// must never unwind the financial transaction.
	customer, err := s.customers.Lookup(ctx, order.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "customer lookup for notification failed",
			"order_id", orderID, "error", err)
	}
	s.notifier.OrderConfirmed(ctx, order, customer)
	s.notifier.NewOrderAlert(ctx, order)
	for i := range lowStock {
		s.notifier.LowStock(ctx, &lowStock[i])
	}
	return nil
}

// CancelOrder cancels a non-terminal order. When payment had been
// approved, the stock reserved at confirmation is restored inside the same
// transaction as the status change and the payment is marked refunded.
// Cancelling an already-terminal order fails with ErrInvalidTransition.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, actorID *int64, message string) (*domain.Order, error) {
	var order *domain.Order

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		if order, err = tx.Orders().Get(ctx, orderID); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(domain.StatusCancelled) {
			return domain.ErrInvalidTransition
		}

		if order.PaymentStatus == domain.PaymentApproved {
			for _, line := range order.Lines {
				if err := s.ledger.Restore(ctx, tx, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
			if err := tx.Orders().SetPaymentStatus(ctx, orderID, domain.PaymentRefunded); err != nil {
				return err
			}
			payment, err := tx.Payments().GetByOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if err := tx.Payments().SetStatus(ctx, payment.ID, domain.TxCanceled, nil); err != nil {
				return err
			}
			order.PaymentStatus = domain.PaymentRefunded
		}

		if err := tx.Orders().SetStatus(ctx, orderID, domain.StatusCancelled); err != nil {
			return err
		}
		order.Status = domain.StatusCancelled

		return tx.Events().Append(ctx, &domain.OrderEvent{
			OrderID: orderID,
			Status:  domain.StatusCancelled,
			Message: message,
			ActorID: actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order cancelled", "order_id", orderID, "order_number", order.Number)
	s.notifier.OrderStatusChanged(ctx, order)
	return order, nil
}

// UpdateOrderStatus applies an admin-driven transition. Targets outside
// the allowed set are rejected before any state is read.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, target domain.Status, actorID int64) (*domain.Order, error) {
	if !domain.AdminStatusTargets[target] {
		return nil, ErrUnsupportedStatus
	}
	if target == domain.StatusCancelled {
		return s.CancelOrder(ctx, orderID, &actorID, "cancelled by administrator")
	}

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		if order, err = tx.Orders().Get(ctx, orderID); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return domain.ErrInvalidTransition
		}
		if err := tx.Orders().SetStatus(ctx, orderID, target); err != nil {
			return err
		}
		order.Status = target

		return tx.Events().Append(ctx, &domain.OrderEvent{
			OrderID: orderID,
			Status:  target,
			Message: "status updated by administrator",
			ActorID: &actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderStatusChanged(ctx, order)
	return order, nil
}

// GetOrder loads a single order with its lines.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		order, err = tx.Orders().Get(ctx, orderID)
		return err
	})
	return order, err
}

// ListOrders returns order headers, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		orders, err = tx.Orders().List(ctx, status)
		return err
	})
	return orders, err
}
