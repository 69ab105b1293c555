package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

// HTTPGateway talks to the payment processor's JSON API. It maps the three
// outcomes the ledger distinguishes: success, decline (PaymentFailedError)
// and transport failure/timeout (PaymentGatewayError). Vendor-specific
// behavior beyond that contract stays inside the processor.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ ports.PaymentGateway = (*HTTPGateway)(nil)

// NewHTTPGateway builds a gateway adapter. The caller's context bounds each
// call; the client itself carries no timeout.
func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

type chargePayload struct {
	OrderNumber string `json:"order_number"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
	CustomerID  string `json:"customer_id"`
	BillingName string `json:"billing_name"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error"`
}

func (g *HTTPGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	payload := chargePayload{
		OrderNumber: req.OrderNumber,
		AmountCents: req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency:    req.Currency,
		Method:      req.Method,
		CustomerID:  req.CustomerID,
		BillingName: req.BillingName,
	}

	var res chargeResponse
	status, err := g.post(ctx, "/v1/charges", payload, &res)
	if err != nil {
		return nil, &domain.PaymentGatewayError{Err: err}
	}

	switch {
	case status == http.StatusPaymentRequired || status == http.StatusUnprocessableEntity:
		return nil, &domain.PaymentFailedError{Detail: res.Error}
	case status < 200 || status >= 300:
		return nil, &domain.PaymentGatewayError{Err: fmt.Errorf("unexpected status %d from processor", status)}
	}

	if res.TransactionID == "" {
		return nil, &domain.PaymentGatewayError{Err: fmt.Errorf("processor returned no transaction id")}
	}
	return &ports.ChargeResult{TransactionID: res.TransactionID}, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	payload := map[string]any{
		"transaction_id": transactionID,
		"amount_cents":   amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
	}

	var res chargeResponse
	status, err := g.post(ctx, "/v1/refunds", payload, &res)
	if err != nil {
		return &domain.PaymentGatewayError{Err: err}
	}
	if status < 200 || status >= 300 {
		return &domain.PaymentGatewayError{Err: fmt.Errorf("refund rejected with status %d: %s", status, res.Error)}
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call processor: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read processor response: %w", err)
	}
	if len(data) > 0 {
		// Tolerate empty or non-JSON error bodies from the processor.
		_ = json.Unmarshal(data, out)
	}
	return resp.StatusCode, nil
}
