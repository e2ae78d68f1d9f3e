package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics carries the HTTP counters exposed on /metrics, plus the
// business counters the shop cares about: orders confirmed and payment
// webhooks received.
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersConfirmed prometheus.Counter
	WebhookEvents   *prometheus.CounterVec
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxecajou",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "luxecajou",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	confirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "luxecajou",
		Subsystem: service,
		Name:      "orders_confirmed_total",
		Help:      "Orders whose payment was approved.",
	})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxecajou",
		Subsystem: service,
		Name:      "payment_webhook_events_total",
		Help:      "Inbound payment provider webhook events by name.",
	}, []string{"event"})

	prometheus.MustRegister(requests, latency, confirmed, webhooks)
	return &ServerMetrics{
		Requests:        requests,
		LatencyMS:       latency,
		OrdersConfirmed: confirmed,
		WebhookEvents:   webhooks,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
