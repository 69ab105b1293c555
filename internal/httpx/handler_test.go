package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemstack/commerce/internal/adapters/memory"
	"github.com/gemstack/commerce/internal/adapters/payment"
	"github.com/gemstack/commerce/internal/checkout"
	"github.com/gemstack/commerce/internal/core/domain"
)

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string, map[string]any) {}

type discardAnalytics struct{}

func (discardAnalytics) Record(context.Context, string, map[string]any) {}

func newTestServer(t *testing.T, gatewayLimit string) (*httptest.Server, *memory.ProductRepository) {
	t.Helper()

	products := memory.NewProductRepository()
	products.Put(&domain.Product{
		ID: "ring-01", Name: "Solitaire Ring",
		Price: decimal.RequireFromString("50.00"), Quantity: 10,
		TrackQuantity: true, Active: true,
	})

	coupons := memory.NewCouponRepository()
	coupons.Put(&domain.Coupon{
		Code: "SAVE10", Type: domain.CouponPercentage,
		Value:    decimal.RequireFromString("10"),
		StartsAt: time.Now().Add(-time.Hour), EndsAt: time.Now().Add(time.Hour),
		Active: true,
	})

	ledger := checkout.NewLedger(checkout.LedgerDeps{
		Orders:    memory.NewOrderRepository(),
		Products:  products,
		Coupons:   coupons,
		Gateway:   payment.NewFakeGateway(decimal.RequireFromString(gatewayLimit)),
		Carts:     memory.NewCartStore(),
		Notifier:  discardNotifier{},
		Analytics: discardAnalytics{},
	})

	srv := httptest.NewServer(NewRouter(NewHandler(ledger), nil))
	t.Cleanup(srv.Close)
	return srv, products
}

func createOrderBody() map[string]any {
	addr := map[string]any{
		"full_name": "Ana Torres", "line1": "12 Calle Mayor",
		"city": "Madrid", "postal_code": "28001", "country": "ES",
	}
	return map[string]any{
		"customer_id":      "cust-1",
		"items":            []map[string]any{{"product_id": "ring-01", "quantity": 2}},
		"shipping_address": addr,
		"billing_address":  addr,
		"payment_method":   "card",
		"coupon_code":      "SAVE10",
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateOrderEndpoint(t *testing.T) {
	srv, products := newTestServer(t, "0")

	resp := postJSON(t, srv.URL+"/orders", createOrderBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := decodeBody[OrderResponse](t, resp)
	assert.Equal(t, "PAID", got.Status)
	assert.Equal(t, "PAID", got.PaymentStatus)
	assert.Equal(t, "107.20", got.Total)
	assert.Equal(t, "10.00", got.Discount)
	assert.Equal(t, "SAVE10", got.CouponCode)
	assert.NotEmpty(t, got.OrderNumber)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "100.00", got.Items[0].LineTotal)

	p, err := products.FindByID(context.Background(), "ring-01")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Quantity)
}

func TestCreateOrderValidation(t *testing.T) {
	srv, _ := newTestServer(t, "0")

	body := createOrderBody()
	delete(body, "customer_id")
	body["items"] = []map[string]any{}

	resp := postJSON(t, srv.URL+"/orders", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_request", got.Error)
	assert.Contains(t, got.Fields, "customer_id")
	assert.Contains(t, got.Fields, "items")
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	srv, _ := newTestServer(t, "0")

	body := createOrderBody()
	body["items"] = []map[string]any{{"product_id": "missing", "quantity": 1}}
	delete(body, "coupon_code")

	resp := postJSON(t, srv.URL+"/orders", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	got := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "product_not_found", got.Error)
}

func TestCreateOrderPaymentDeclined(t *testing.T) {
	srv, _ := newTestServer(t, "50") // total 107.20 exceeds the card limit

	resp := postJSON(t, srv.URL+"/orders", createOrderBody())
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	got := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "payment_failed", got.Error)
}

func TestQuoteEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "0")

	resp := postJSON(t, srv.URL+"/checkout/quote", map[string]any{
		"customer_id": "cust-1",
		"items":       []map[string]any{{"product_id": "ring-01", "quantity": 2}},
		"coupon_code": "SAVE10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[QuoteResponse](t, resp)
	assert.Equal(t, "100.00", got.Subtotal)
	assert.Equal(t, "10.00", got.Discount)
	assert.Equal(t, "10.00", got.Shipping)
	assert.Equal(t, "7.20", got.Tax)
	assert.Equal(t, "107.20", got.Total)
}

func TestGetOrderEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "0")

	created := decodeBody[OrderResponse](t, postJSON(t, srv.URL+"/orders", createOrderBody()))

	resp, err := http.Get(srv.URL + "/orders/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[OrderResponse](t, resp)
	assert.Equal(t, created.OrderNumber, got.OrderNumber)

	resp, err = http.Get(srv.URL + "/orders/missing")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "order_not_found", decodeBody[ErrorResponse](t, resp).Error)
}

func TestGetOrderHistoryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "0")

	created := decodeBody[OrderResponse](t, postJSON(t, srv.URL+"/orders", createOrderBody()))

	// Auditing is disabled in this fixture, so the trail is empty but the
	// endpoint still answers for a real order.
	resp, err := http.Get(srv.URL + "/orders/" + created.ID + "/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]OrderLogEntryResponse](t, resp))

	resp, err = http.Get(srv.URL + "/orders/missing/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "order_not_found", decodeBody[ErrorResponse](t, resp).Error)
}

func TestListCustomerOrdersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "0")

	postJSON(t, srv.URL+"/orders", createOrderBody()).Body.Close()

	resp, err := http.Get(srv.URL + "/customers/cust-1/orders")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[[]OrderResponse](t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, "cust-1", got[0].CustomerID)
}

func TestCancelOrderEndpoint(t *testing.T) {
	srv, products := newTestServer(t, "0")

	created := decodeBody[OrderResponse](t, postJSON(t, srv.URL+"/orders", createOrderBody()))

	resp := postJSON(t, srv.URL+"/orders/"+created.ID+"/cancel", map[string]any{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[OrderResponse](t, resp)
	assert.Equal(t, "CANCELLED", got.Status)
	assert.Equal(t, "REFUNDED", got.PaymentStatus)

	p, err := products.FindByID(context.Background(), "ring-01")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Quantity)

	// Cancelling again conflicts: the order is already terminal.
	resp = postJSON(t, srv.URL+"/orders/"+created.ID+"/cancel", map[string]any{})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_state_transition", decodeBody[ErrorResponse](t, resp).Error)
}

func TestUpdateOrderStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "0")

	created := decodeBody[OrderResponse](t, postJSON(t, srv.URL+"/orders", createOrderBody()))

	resp := patchJSON(t, srv.URL+"/orders/"+created.ID+"/status", map[string]any{"status": "PROCESSING"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PROCESSING", decodeBody[OrderResponse](t, resp).Status)

	// Skipping ahead is rejected with a conflict.
	resp = patchJSON(t, srv.URL+"/orders/"+created.ID+"/status", map[string]any{"status": "DELIVERED"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown statuses never reach the ledger.
	resp = patchJSON(t, srv.URL+"/orders/"+created.ID+"/status", map[string]any{"status": "ARCHIVED"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_status", decodeBody[ErrorResponse](t, resp).Error)
}

func patchJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, url, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}
