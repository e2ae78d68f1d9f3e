package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/luxecajou/api/internal/catalog"
	"github.com/luxecajou/api/internal/checkout/app"
	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/httpx/middlewares"
	"github.com/luxecajou/api/internal/pkg/metrics"
)

const maxWebhookBody = 64 << 10

// Handler exposes the storefront and back-office HTTP surface.
type Handler struct {
	checkout *app.Service
	carts    *app.CartService
	catalog  *catalog.Service
	metrics  *metrics.ServerMetrics
	logger   *slog.Logger
}

func NewHandler(
	checkout *app.Service,
	carts *app.CartService,
	cat *catalog.Service,
	m *metrics.ServerMetrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		checkout: checkout,
		carts:    carts,
		catalog:  cat,
		metrics:  m,
		logger:   logger,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── catalog ──

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = mapProduct(&products[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(p))
}

func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.catalog.ListZones(r.Context())
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	out := make([]ZoneResponse, len(zones))
	for i := range zones {
		out[i] = mapZone(&zones[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// ── cart ──

// cartOwner resolves who the cart belongs to: the authenticated user when
// a principal is present, otherwise the anonymous session from the
// X-Session-Id header.
func cartOwner(w http.ResponseWriter, r *http.Request) (domain.CartOwner, bool) {
	if p, ok := middlewares.PrincipalFrom(r.Context()); ok {
		return domain.UserOwner(p.UserID), true
	}
	if sid := r.Header.Get(middlewares.HeaderXSessionID); sid != "" {
		return domain.SessionOwner(sid), true
	}
	writeError(w, http.StatusBadRequest, "session_required",
		"authenticate or send an X-Session-Id header")
	return domain.CartOwner{}, false
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}
	items, err := h.carts.Items(r.Context(), owner)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	resp := CartResponse{Items: []CartItemResponse{}, Total: decimal.Zero}
	for _, it := range items {
		resp.Items = append(resp.Items, CartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		})
		resp.Total = resp.Total.Add(it.Subtotal)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}
	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProductID == 0 || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "product_id and a positive quantity are required")
		return
	}

	name, err := h.carts.Add(r.Context(), owner, req.ProductID, req.Quantity)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"added": name})
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "quantity cannot be negative")
		return
	}

	if err := h.carts.SetQuantity(r.Context(), owner, productID, req.Quantity); err != nil {
		writeBusinessError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MergeCart folds the anonymous session cart named by X-Session-Id into
// the authenticated user's cart. Called by the storefront right after
// login.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.PrincipalFrom(r.Context())
	sid := r.Header.Get(middlewares.HeaderXSessionID)
	if sid == "" {
		writeError(w, http.StatusBadRequest, "session_required", "X-Session-Id header is required")
		return
	}

	if err := h.carts.Merge(r.Context(), sid, p.UserID); err != nil {
		writeBusinessError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── payment ──

func (h *Handler) InitializeCheckout(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.PrincipalFrom(r.Context())

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	url, err := h.checkout.InitializeCheckout(r.Context(), p.UserID, app.CheckoutInput{
		Delivery: app.DeliveryDetails{
			RecipientName:  req.Delivery.RecipientName,
			RecipientPhone: req.Delivery.RecipientPhone,
			ZoneID:         req.Delivery.ZoneID,
			City:           req.Delivery.City,
			District:       req.Delivery.District,
			Details:        req.Delivery.Details,
			Landmark:       req.Delivery.Landmark,
		},
		CouponCode:    req.CouponCode,
		CustomerNotes: req.CustomerNotes,
	})
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CheckoutResponse{PaymentURL: url})
}

// PaymentWebhook receives provider callbacks. It always answers 200: the
// provider retries on anything else, and a malformed or unknown event is
// not something a retry can fix.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook body read failed", "error", err)
		writeJSON(w, http.StatusOK, WebhookAck{Success: true})
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.WarnContext(r.Context(), "webhook payload not parseable", "error", err)
		writeJSON(w, http.StatusOK, WebhookAck{Success: true})
		return
	}
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(event.Name).Inc()
	}

	if err := h.checkout.HandleWebhookEvent(r.Context(), event.Name, event.Data.ID.String(), body); err != nil {
		// Logged and swallowed; the provider will redeliver and the
		// confirmation routine is idempotent.
		h.logger.ErrorContext(r.Context(), "webhook processing failed",
			"event", event.Name, "error", err)
	}
	writeJSON(w, http.StatusOK, WebhookAck{Success: true})
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.PrincipalFrom(r.Context())
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	status, err := h.checkout.ConfirmPaymentByPoll(r.Context(), orderID, p.UserID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentStatusResponse{
		OrderID:       orderID,
		PaymentStatus: string(status),
	})
}

// ── back office ──

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var status domain.Status
	if s := r.URL.Query().Get("status"); s != "" {
		status = domain.Status(s)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", s)
			return
		}
	}

	orders, err := h.checkout.ListOrders(r.Context(), status)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = mapOrder(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.checkout.GetOrder(r.Context(), id)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.PrincipalFrom(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := h.checkout.UpdateOrderStatus(r.Context(), id, domain.Status(req.Status), p.UserID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
