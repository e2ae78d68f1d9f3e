package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luxecajou/api/internal/checkout/app"
	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
	"github.com/luxecajou/api/internal/checkout/pricing"
	"github.com/luxecajou/api/internal/inventory"
)

type CheckoutRequest struct {
	Delivery      DeliveryDTO `json:"delivery"`
	CouponCode    string      `json:"coupon_code,omitempty"`
	CustomerNotes string      `json:"customer_notes,omitempty"`
}

type DeliveryDTO struct {
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
	ZoneID         int64  `json:"zone_id"`
	City           string `json:"city,omitempty"`
	District       string `json:"district,omitempty"`
	Details        string `json:"details"`
	Landmark       string `json:"landmark,omitempty"`
}

type CheckoutResponse struct {
	PaymentURL string `json:"payment_url"`
}

type PaymentStatusResponse struct {
	OrderID       int64  `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
}

// WebhookEvent is the body FedaPay posts to the callback endpoint. Only
// the event name and the transaction id are read; the raw body is stored
// for audit.
type WebhookEvent struct {
	Name string `json:"name"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// WebhookAck is the only body the webhook endpoint ever answers with.
type WebhookAck struct {
	Success bool `json:"success"`
}

type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

type ProductResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	InStock     bool            `json:"in_stock"`
}

type ZoneResponse struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Tariff       decimal.Decimal `json:"tariff"`
	DeliveryDays int             `json:"delivery_days"`
}

type OrderLineResponse struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderResponse struct {
	ID            int64               `json:"id"`
	Number        string              `json:"number"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	CustomerNotes string              `json:"customer_notes,omitempty"`
	Lines         []OrderLineResponse `json:"lines,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapProduct(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice,
		InStock:     !p.Tracked() || p.StockAvailable > 0,
	}
}

func mapZone(z *domain.DeliveryZone) ZoneResponse {
	return ZoneResponse{
		ID:           z.ID,
		Name:         z.Name,
		Tariff:       z.Tariff,
		DeliveryDays: z.DeliveryDays,
	}
}

func mapOrder(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		Number:        o.Number,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Subtotal:      o.Subtotal,
		DeliveryFee:   o.DeliveryFee,
		Discount:      o.Discount,
		Total:         o.Total,
		CustomerNotes: o.CustomerNotes,
		CreatedAt:     o.CreatedAt,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// writeBusinessError translates service errors into the API's error
// envelope. Anything unrecognized becomes an opaque 500 so internals never
// leak to clients.
func writeBusinessError(w http.ResponseWriter, err error) {
	var stockErr *pricing.InsufficientStockError
	var reserveErr *inventory.InsufficientStockError
	switch {
	case errors.Is(err, app.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, app.ErrIncompleteDeliveryData):
		writeError(w, http.StatusBadRequest, "incomplete_delivery_data", err.Error())
	case errors.Is(err, app.ErrProductUnavailable):
		writeError(w, http.StatusBadRequest, "product_unavailable", err.Error())
	case errors.Is(err, app.ErrUnsupportedStatus):
		writeError(w, http.StatusBadRequest, "unsupported_status", err.Error())
	case errors.As(err, &stockErr):
		writeError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case errors.Is(err, pricing.ErrInvalidDeliveryZone):
		writeError(w, http.StatusBadRequest, "invalid_delivery_zone", err.Error())
	case errors.Is(err, pricing.ErrCouponMinimumNotMet):
		writeError(w, http.StatusBadRequest, "coupon_minimum_not_met", err.Error())
	case errors.Is(err, pricing.ErrCouponExhausted):
		writeError(w, http.StatusBadRequest, "coupon_exhausted", err.Error())
	case errors.Is(err, pricing.ErrInvalidCoupon):
		writeError(w, http.StatusBadRequest, "invalid_coupon", err.Error())
	case errors.As(err, &reserveErr):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, app.ErrPaymentGateway):
		writeError(w, http.StatusBadGateway, "payment_gateway_error", "payment provider unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
