package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/luxecajou/api/internal/httpx/middlewares"
	"github.com/luxecajou/api/internal/pkg/metrics"
)

func NewRouter(handler *Handler, m *metrics.ServerMetrics, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(middlewares.Metrics(m))
	}
	r.Use(middlewares.Authenticator(jwtSecret))

	r.Get("/healthz", handler.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/products", handler.ListProducts)
	r.Get("/products/{id}", handler.GetProduct)
	r.Get("/delivery-zones", handler.ListZones)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handler.GetCart)
		r.Post("/items", handler.AddToCart)
		r.Put("/items/{productID}", handler.UpdateCartItem)
		r.With(middlewares.RequireUser).Post("/merge", handler.MergeCart)
	})

	r.Route("/payment", func(r chi.Router) {
		r.Post("/webhook", handler.PaymentWebhook)
		r.With(middlewares.RequireUser).Post("/initialize", handler.InitializeCheckout)
		r.With(middlewares.RequireUser).Get("/status/{orderID}", handler.PaymentStatus)
	})

	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(middlewares.RequireAdmin)
		r.Get("/", handler.ListOrders)
		r.Get("/{id}", handler.GetOrder)
		r.Patch("/{id}/status", handler.UpdateOrderStatus)
	})

	return r
}
