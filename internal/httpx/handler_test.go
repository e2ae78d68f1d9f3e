package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxecajou/api/internal/catalog"
	"github.com/luxecajou/api/internal/checkout/app"
	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
	"github.com/luxecajou/api/internal/notify"
	"github.com/luxecajou/api/internal/storage/sqlite"
)

const testSecret = "test-secret"

type stubGateway struct {
	status domain.TransactionStatus
}

func (g *stubGateway) CreateTransaction(context.Context, ports.CreateTransactionRequest) (*ports.CreatedTransaction, error) {
	return &ports.CreatedTransaction{ID: "41", PaymentURL: "https://checkout.example/41"}, nil
}

func (g *stubGateway) GetTransaction(context.Context, string) (domain.TransactionStatus, error) {
	return g.status, nil
}

type apiFixture struct {
	server  *httptest.Server
	store   *sqlite.Store
	gateway *stubGateway

	customerID int64
	productID  int64
	zoneID     int64
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.DiscardHandler)
	f := &apiFixture{store: store, gateway: &stubGateway{status: domain.TxPending}}

	checkoutSvc := app.NewService(store, f.gateway, notify.NewLogNotifier(logger), store,
		logger, "XOF", "https://shop.example")
	handler := NewHandler(
		checkoutSvc,
		app.NewCartService(store),
		catalog.NewService(store, nil, logger),
		nil,
		logger,
	)
	f.server = httptest.NewServer(NewRouter(handler, nil, testSecret))
	t.Cleanup(f.server.Close)

	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		customer := &domain.Customer{FirstName: "Awa", LastName: "Dossou", Email: "awa@example.com"}
		if err := tx.Customers().Create(ctx, customer); err != nil {
			return err
		}
		f.customerID = customer.ID

		product := &domain.Product{
			Name:           "Cajou nature 250g",
			UnitPrice:      decimal.RequireFromString("1000"),
			StockMode:      domain.StockTracked,
			StockAvailable: 10,
			StockMinimum:   2,
			Active:         true,
		}
		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		f.productID = product.ID

		zone := &domain.DeliveryZone{Name: "Cotonou", Tariff: decimal.RequireFromString("500"), DeliveryDays: 2, Active: true}
		if err := tx.Zones().Create(ctx, zone); err != nil {
			return err
		}
		f.zoneID = zone.ID
		return nil
	}))
	return f
}

func (f *apiFixture) token(t *testing.T, userID int64, admin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", userID),
		"admin": admin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *apiFixture) checkoutBody() CheckoutRequest {
	return CheckoutRequest{Delivery: DeliveryDTO{
		RecipientName:  "Awa Dossou",
		RecipientPhone: "+22990000000",
		ZoneID:         f.zoneID,
		City:           "Cotonou",
		Details:        "Rue 12, maison bleue",
	}}
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	f := newAPI(t)
	token := f.token(t, f.customerID, false)

	resp := f.request(t, http.MethodPost, "/cart/items", token,
		AddToCartRequest{ProductID: f.productID, Quantity: 2}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/cart", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := decode[CartResponse](t, resp)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("2000")))

	resp = f.request(t, http.MethodPost, "/payment/initialize", token, f.checkoutBody(), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[CheckoutResponse](t, resp)
	assert.Equal(t, "https://checkout.example/41", out.PaymentURL)

	// A webhook for some other transaction confirms nothing.
	resp = f.request(t, http.MethodPost, "/payment/webhook", "",
		map[string]any{"name": "transaction.approved", "data": map[string]any{"id": 999}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Approval arrives over the webhook; the status poll then reports it.
	resp = f.request(t, http.MethodPost, "/payment/webhook", "",
		map[string]any{"name": "transaction.approved", "data": map[string]any{"id": 41}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/payment/status/1", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[PaymentStatusResponse](t, resp)
	assert.Equal(t, "approved", status.PaymentStatus)
}

func TestWebhookAlwaysAnswers200(t *testing.T) {
	f := newAPI(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"unknown event", `{"name":"transaction.declined","data":{"id":9}}`},
		{"unknown transaction", `{"name":"transaction.approved","data":{"id":404}}`},
		{"empty body", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(f.server.URL+"/payment/webhook", "application/json",
				bytes.NewBufferString(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			ack := decode[WebhookAck](t, resp)
			assert.True(t, ack.Success)
		})
	}
}

func TestAuthGuards(t *testing.T) {
	f := newAPI(t)

	resp := f.request(t, http.MethodPost, "/payment/initialize", "", f.checkoutBody(), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/admin/orders/", f.token(t, f.customerID, false), nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/admin/orders/", f.token(t, f.customerID, true), nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A garbage token is rejected, not treated as anonymous.
	resp = f.request(t, http.MethodGet, "/cart", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnonymousSessionCart(t *testing.T) {
	f := newAPI(t)
	session := map[string]string{"X-Session-Id": "sess-abc"}

	// No principal and no session header: nothing identifies the cart.
	resp := f.request(t, http.MethodGet, "/cart", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/cart/items", "",
		AddToCartRequest{ProductID: f.productID, Quantity: 3}, session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Login: merge the session cart into the user cart.
	token := f.token(t, f.customerID, false)
	resp = f.request(t, http.MethodPost, "/cart/merge", token, nil, session)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/cart", token, nil, nil)
	cart := decode[CartResponse](t, resp)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCheckoutValidationOverHTTP(t *testing.T) {
	f := newAPI(t)
	token := f.token(t, f.customerID, false)

	// Missing delivery details.
	resp := f.request(t, http.MethodPost, "/payment/initialize", token, CheckoutRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "incomplete_delivery_data", body.Error)

	// Complete delivery, empty cart.
	resp = f.request(t, http.MethodPost, "/payment/initialize", token, f.checkoutBody(), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decode[ErrorResponse](t, resp)
	assert.Equal(t, "empty_cart", body.Error)
}

func TestPaymentStatusOwnership(t *testing.T) {
	f := newAPI(t)
	token := f.token(t, f.customerID, false)

	resp := f.request(t, http.MethodPost, "/cart/items", token,
		AddToCartRequest{ProductID: f.productID, Quantity: 1}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.request(t, http.MethodPost, "/payment/initialize", token, f.checkoutBody(), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Another user cannot poll someone else's order.
	other := f.request(t, http.MethodGet, "/payment/status/1", f.token(t, f.customerID+7, false), nil, nil)
	assert.Equal(t, http.StatusNotFound, other.StatusCode)
}

func TestAdminOrderManagement(t *testing.T) {
	f := newAPI(t)
	user := f.token(t, f.customerID, false)
	admin := f.token(t, f.customerID, true)

	resp := f.request(t, http.MethodPost, "/cart/items", user,
		AddToCartRequest{ProductID: f.productID, Quantity: 1}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.request(t, http.MethodPost, "/payment/initialize", user, f.checkoutBody(), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.request(t, http.MethodPost, "/payment/webhook", "",
		map[string]any{"name": "transaction.approved", "data": map[string]any{"id": 41}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/admin/orders/?status=confirmed", admin, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders := decode[[]OrderResponse](t, resp)
	require.Len(t, orders, 1)
	orderID := orders[0].ID

	path := fmt.Sprintf("/admin/orders/%d/status", orderID)
	resp = f.request(t, http.MethodPatch, path, admin, UpdateStatusRequest{Status: "in_preparation"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[OrderResponse](t, resp)
	assert.Equal(t, "in_preparation", updated.Status)

	// Jumping back on the track is a conflict, not a validation error.
	resp = f.request(t, http.MethodPatch, path, admin, UpdateStatusRequest{Status: "delivered"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Off-track target.
	resp = f.request(t, http.MethodPatch, path, admin, UpdateStatusRequest{Status: "confirmed"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/admin/orders/?status=bogus", admin, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublicCatalog(t *testing.T) {
	f := newAPI(t)

	resp := f.request(t, http.MethodGet, "/products", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := decode[[]ProductResponse](t, resp)
	require.Len(t, products, 1)
	assert.True(t, products[0].InStock)

	resp = f.request(t, http.MethodGet, fmt.Sprintf("/products/%d", f.productID), "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/products/999", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/delivery-zones", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	zones := decode[[]ZoneResponse](t, resp)
	require.Len(t, zones, 1)
	assert.Equal(t, "Cotonou", zones[0].Name)
}
