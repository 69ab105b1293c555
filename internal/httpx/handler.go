package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/checkout"
	"github.com/gemstack/commerce/internal/core/domain"
)

// Handler handles the order endpoints. All business decisions live in the
// ledger; the handler parses, validates at the boundary, and maps errors
// to HTTP statuses.
type Handler struct {
	ledger *checkout.Ledger
}

func NewHandler(ledger *checkout.Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// CreateOrder prices the request, takes payment and persists the order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if fields := validateCreateOrder(&req); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "invalid_request",
			Fields: fields,
		})
		return
	}

	shippingCost, ok := parseShippingCost(w, req.ShippingMethod)
	if !ok {
		return
	}

	slog.InfoContext(r.Context(), "creating order", "customer_id", req.CustomerID, "items", len(req.Items))

	order, err := h.ledger.PlaceOrder(r.Context(), checkout.PlaceOrderRequest{
		CustomerID:      req.CustomerID,
		Items:           mapItemRequests(req.Items),
		ShippingAddress: mapAddress(req.ShippingAddress),
		BillingAddress:  mapAddress(req.BillingAddress),
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		ShippingCost:    shippingCost,
		Notes:           req.Notes,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// Quote runs the pricing calculator without persisting anything, so clients
// can preview coupon, shipping and tax effects from the cart page.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "items are required")
		return
	}

	shippingCost, ok := parseShippingCost(w, req.ShippingMethod)
	if !ok {
		return
	}

	draft, err := h.ledger.Calculator().Price(r.Context(), req.CustomerID, mapItemRequests(req.Items), req.CouponCode, shippingCost)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		Items:    mapItems(draft.Items),
		Subtotal: draft.Subtotal.StringFixed(2),
		Discount: draft.Discount.StringFixed(2),
		Shipping: draft.Shipping.StringFixed(2),
		Tax:      draft.Tax.StringFixed(2),
		Total:    draft.Total.StringFixed(2),
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.ledger.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// GetOrderHistory returns the order's audit trail for support tooling.
func (h *Handler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.OrderHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]OrderLogEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = OrderLogEntryResponse{
			Stage:   string(e.Stage),
			Status:  e.Status,
			Detail:  e.Detail,
			TraceID: e.TraceID,
			At:      e.At.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.ListOrders(r.Context(), chi.URLParam(r, "id"), 50)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = mapOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by customer"
	}

	order, err := h.ledger.CancelOrder(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// UpdateOrderStatus is the administrative transition endpoint.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	next := domain.OrderStatus(req.Status)
	if !next.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown order status: "+req.Status)
		return
	}

	order, err := h.ledger.UpdateStatus(r.Context(), chi.URLParam(r, "id"), next, req.TrackingNumber, req.Notes)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func mapItemRequests(items []OrderItemDTO) []checkout.ItemRequest {
	out := make([]checkout.ItemRequest, len(items))
	for i, it := range items {
		out[i] = checkout.ItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Variant:   it.Variant,
		}
	}
	return out
}

func validateCreateOrder(req *CreateOrderRequest) map[string]string {
	fields := make(map[string]string)
	if req.CustomerID == "" {
		fields["customer_id"] = "required"
	}
	if len(req.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	for _, it := range req.Items {
		if it.ProductID == "" {
			fields["items"] = "product_id is required on every item"
			break
		}
		if it.Quantity <= 0 {
			fields["items"] = "quantity must be positive"
			break
		}
	}
	if req.PaymentMethod == "" {
		fields["payment_method"] = "required"
	}
	validateAddress(fields, "shipping_address", req.ShippingAddress)
	validateAddress(fields, "billing_address", req.BillingAddress)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func validateAddress(fields map[string]string, prefix string, a AddressDTO) {
	if a.FullName == "" {
		fields[prefix+".full_name"] = "required"
	}
	if a.Line1 == "" {
		fields[prefix+".line1"] = "required"
	}
	if a.City == "" {
		fields[prefix+".city"] = "required"
	}
	if a.Country == "" {
		fields[prefix+".country"] = "required"
	}
}

// parseShippingCost returns (nil, true) when no explicit method was chosen.
// On a malformed cost it writes the error response and returns ok=false.
func parseShippingCost(w http.ResponseWriter, sm *ShippingMethodDTO) (*decimal.Decimal, bool) {
	if sm == nil {
		return nil, true
	}
	cost, err := decimal.NewFromString(sm.Cost)
	if err != nil || cost.IsNegative() {
		writeError(w, http.StatusBadRequest, "invalid_shipping_method", "cost must be a non-negative decimal")
		return nil, false
	}
	return &cost, true
}

// writeDomainError maps the checkout error taxonomy to HTTP statuses.
// Business-rule failures carry a clear reason; unexpected errors return a
// generic response without leaking internals.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		productNotFound *domain.ProductNotFoundError
		productInactive *domain.ProductInactiveError
		outOfStock      *domain.InsufficientStockError
		couponNotFound  *domain.CouponNotFoundError
		couponExpired   *domain.CouponExpiredError
		couponExceeded  *domain.CouponUsageExceededError
		couponMinimum   *domain.CouponMinimumNotMetError
		declined        *domain.PaymentFailedError
		gatewayErr      *domain.PaymentGatewayError
		badTransition   *domain.InvalidStateTransitionError
		orderNotFound   *domain.OrderNotFoundError
	)

	switch {
	case errors.As(err, &productNotFound):
		writeError(w, http.StatusBadRequest, "product_not_found", err.Error())
	case errors.As(err, &productInactive):
		writeError(w, http.StatusBadRequest, "product_inactive", err.Error())
	case errors.As(err, &outOfStock):
		writeError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case errors.As(err, &couponNotFound):
		writeError(w, http.StatusBadRequest, "coupon_not_found", err.Error())
	case errors.As(err, &couponExpired):
		writeError(w, http.StatusBadRequest, "coupon_expired", err.Error())
	case errors.As(err, &couponExceeded):
		writeError(w, http.StatusBadRequest, "coupon_usage_exceeded", err.Error())
	case errors.As(err, &couponMinimum):
		writeError(w, http.StatusBadRequest, "coupon_minimum_not_met", err.Error())
	case errors.As(err, &declined):
		writeError(w, http.StatusPaymentRequired, "payment_failed", err.Error())
	case errors.As(err, &gatewayErr):
		writeError(w, http.StatusBadGateway, "payment_gateway_error", "payment could not be processed")
	case errors.As(err, &badTransition):
		writeError(w, http.StatusConflict, "invalid_state_transition", err.Error())
	case errors.As(err, &orderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
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
