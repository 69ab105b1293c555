package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemstack/commerce/internal/core/domain"
	"github.com/gemstack/commerce/internal/core/ports"
)

func chargeReq() ports.ChargeRequest {
	return ports.ChargeRequest{
		OrderNumber: "ORD-20260829-000001",
		Amount:      decimal.RequireFromString("107.20"),
		Currency:    "USD",
		Method:      "card",
		CustomerID:  "cust-1",
		BillingName: "Ana Torres",
	}
}

func TestHTTPGatewayChargeSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"transaction_id": "txn_abc"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "sk_test_123")
	res, err := gw.Charge(context.Background(), chargeReq())
	require.NoError(t, err)

	assert.Equal(t, "txn_abc", res.TransactionID)
	assert.Equal(t, "/v1/charges", gotPath)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, float64(10720), gotBody["amount_cents"], "amounts travel as integer cents")
	assert.Equal(t, "USD", gotBody["currency"])
}

func TestHTTPGatewayChargeDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "insufficient funds"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "sk_test_123")
	_, err := gw.Charge(context.Background(), chargeReq())

	var declined *domain.PaymentFailedError
	require.ErrorAs(t, err, &declined)
	assert.Contains(t, declined.Detail, "insufficient funds")
}

func TestHTTPGatewayChargeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "sk_test_123")
	_, err := gw.Charge(context.Background(), chargeReq())

	var gwErr *domain.PaymentGatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestHTTPGatewayChargeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nobody listening

	gw := NewHTTPGateway(srv.URL, "sk_test_123")
	_, err := gw.Charge(context.Background(), chargeReq())

	var gwErr *domain.PaymentGatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestHTTPGatewayChargeMissingTransactionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "sk_test_123")
	_, err := gw.Charge(context.Background(), chargeReq())

	// A 2xx without a transaction id is ambiguous, so it is not a success.
	var gwErr *domain.PaymentGatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestHTTPGatewayRefund(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "sk_test_123")
	require.NoError(t, gw.Refund(context.Background(), "txn_abc", decimal.RequireFromString("107.20")))
	assert.Equal(t, "/v1/refunds", gotPath)
}

func TestHTTPGatewayRefundRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "already refunded"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "sk_test_123")
	err := gw.Refund(context.Background(), "txn_abc", decimal.NewFromInt(10))

	var gwErr *domain.PaymentGatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestFakeGatewayDeclinesAboveLimit(t *testing.T) {
	gw := NewFakeGateway(decimal.NewFromInt(100))

	_, err := gw.Charge(context.Background(), chargeReq()) // 107.20 > 100
	var declined *domain.PaymentFailedError
	require.ErrorAs(t, err, &declined)

	req := chargeReq()
	req.Amount = decimal.NewFromInt(99)
	res, err := gw.Charge(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, res.TransactionID)

	// Refunds only succeed against known transactions.
	require.NoError(t, gw.Refund(context.Background(), res.TransactionID, req.Amount))
	assert.Error(t, gw.Refund(context.Background(), "txn_unknown", req.Amount))
}
