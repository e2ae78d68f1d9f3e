// Package notify is the in-process stand-in for the external email/push
// sink. Real delivery (SMTP, FCM, ...) happens outside this module; here
// every event becomes a structured log line so nothing is silently lost.
// All methods are best-effort by contract: they never return an error to
// the caller, so a broken sink can never fail a financial transaction.
package notify

import (
	"context"
	"log/slog"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderConfirmed(ctx context.Context, order *domain.Order, customer *domain.Customer) {
	email := ""
	if customer != nil {
		email = customer.Email
	}
	n.logger.InfoContext(ctx, "notification: order confirmed",
		"order_number", order.Number,
		"recipient", email,
		"total", order.Total.String(),
	)
}

func (n *LogNotifier) NewOrderAlert(ctx context.Context, order *domain.Order) {
	n.logger.InfoContext(ctx, "notification: new order for admins",
		"order_number", order.Number,
		"total", order.Total.String(),
	)
}

func (n *LogNotifier) OrderStatusChanged(ctx context.Context, order *domain.Order) {
	n.logger.InfoContext(ctx, "notification: order status changed",
		"order_number", order.Number,
		"status", string(order.Status),
	)
}

func (n *LogNotifier) LowStock(ctx context.Context, product *domain.Product) {
	n.logger.WarnContext(ctx, "notification: low stock",
		"product_id", product.ID,
		"product", product.Name,
		"stock_available", product.StockAvailable,
		"stock_minimum", product.StockMinimum,
	)
}
