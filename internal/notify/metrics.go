package notify

import (
	"context"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
	"github.com/luxecajou/api/internal/pkg/metrics"
)

// WithMetrics decorates a notifier so confirmed orders show up on the
// /metrics endpoint. The decoration rides on OrderConfirmed because that
// call happens exactly once per order, after the confirming transaction
// committed.
func WithMetrics(next ports.Notifier, m *metrics.ServerMetrics) ports.Notifier {
	return &countingNotifier{next: next, metrics: m}
}

type countingNotifier struct {
	next    ports.Notifier
	metrics *metrics.ServerMetrics
}

func (n *countingNotifier) OrderConfirmed(ctx context.Context, order *domain.Order, customer *domain.Customer) {
	n.metrics.OrdersConfirmed.Inc()
	n.next.OrderConfirmed(ctx, order, customer)
}

func (n *countingNotifier) NewOrderAlert(ctx context.Context, order *domain.Order) {
	n.next.NewOrderAlert(ctx, order)
}

func (n *countingNotifier) OrderStatusChanged(ctx context.Context, order *domain.Order) {
	n.next.OrderStatusChanged(ctx, order)
}

func (n *countingNotifier) LowStock(ctx context.Context, product *domain.Product) {
	n.next.LowStock(ctx, product)
}
