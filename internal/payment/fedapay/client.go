// Package fedapay is the payment-gateway adapter for the FedaPay REST API.
// It implements ports.PaymentGateway; nothing provider-specific leaks past
// that interface.
package fedapay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

// defaultTimeout bounds every provider call so a wedged gateway surfaces
// as an error to the caller instead of hanging a checkout.
const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ ports.PaymentGateway = (*Client)(nil)

// NewClient builds a FedaPay client for the given environment base URL
// (sandbox or live) and secret API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// transactionEnvelope mirrors FedaPay's response wrapper.
type transactionEnvelope struct {
	Transaction struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"v1/transaction"`
}

type tokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// CreateTransaction opens a transaction and generates its hosted payment
// page token. The amount goes over the wire as an integer: XOF has no
// minor units.
func (c *Client) CreateTransaction(ctx context.Context, req ports.CreateTransactionRequest) (*ports.CreatedTransaction, error) {
	body := map[string]any{
		"description": req.Description,
		"amount":      req.Amount.IntPart(),
		"currency":    map[string]string{"iso": req.Currency},
		"customer": map[string]string{
			"firstname": req.Customer.FirstName,
			"lastname":  req.Customer.LastName,
			"email":     req.Customer.Email,
		},
		"callback_url": req.CallbackURL,
	}

	var envelope transactionEnvelope
	if err := c.post(ctx, "/v1/transactions", body, &envelope); err != nil {
		return nil, fmt.Errorf("fedapay: create transaction: %w", err)
	}
	txID := strconv.FormatInt(envelope.Transaction.ID, 10)

	var token tokenResponse
	if err := c.post(ctx, "/v1/transactions/"+txID+"/token", nil, &token); err != nil {
		return nil, fmt.Errorf("fedapay: generate token for transaction %s: %w", txID, err)
	}

	return &ports.CreatedTransaction{
		ID:         txID,
		PaymentURL: token.URL,
	}, nil
}

// GetTransaction reports the provider-side status of a transaction.
func (c *Client) GetTransaction(ctx context.Context, id string) (domain.TransactionStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transactions/"+id, nil)
	if err != nil {
		return "", fmt.Errorf("fedapay: build request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fedapay: get transaction %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fedapay: get transaction %s: unexpected status %d", id, resp.StatusCode)
	}

	var envelope transactionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("fedapay: decode transaction %s: %w", id, err)
	}
	return domain.TransactionStatus(envelope.Transaction.Status), nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
