package httpx

import (
	"github.com/gemstack/commerce/internal/core/domain"
)

type AddressDTO struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type OrderItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

// ShippingMethodDTO is an explicitly chosen shipping method; its cost
// overrides the default shipping policy. Cost is a decimal string.
type ShippingMethodDTO struct {
	Name string `json:"name"`
	Cost string `json:"cost"`
}

type CreateOrderRequest struct {
	CustomerID      string             `json:"customer_id"`
	Items           []OrderItemDTO     `json:"items"`
	ShippingAddress AddressDTO         `json:"shipping_address"`
	BillingAddress  AddressDTO         `json:"billing_address"`
	PaymentMethod   string             `json:"payment_method"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	ShippingMethod  *ShippingMethodDTO `json:"shipping_method,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}

type QuoteRequest struct {
	CustomerID     string             `json:"customer_id"`
	Items          []OrderItemDTO     `json:"items"`
	CouponCode     string             `json:"coupon_code,omitempty"`
	ShippingMethod *ShippingMethodDTO `json:"shipping_method,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type LineItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Variant   string `json:"variant,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type OrderResponse struct {
	ID             string             `json:"id"`
	OrderNumber    string             `json:"order_number"`
	CustomerID     string             `json:"customer_id"`
	Status         string             `json:"status"`
	PaymentStatus  string             `json:"payment_status"`
	Items          []LineItemResponse `json:"items"`
	Subtotal       string             `json:"subtotal"`
	Discount       string             `json:"discount"`
	Shipping       string             `json:"shipping"`
	Tax            string             `json:"tax"`
	Total          string             `json:"total"`
	CouponCode     string             `json:"coupon_code,omitempty"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
}

type QuoteResponse struct {
	Items    []LineItemResponse `json:"items"`
	Subtotal string             `json:"subtotal"`
	Discount string             `json:"discount"`
	Shipping string             `json:"shipping"`
	Tax      string             `json:"tax"`
	Total    string             `json:"total"`
}

// OrderLogEntryResponse is one row of an order's audit trail.
type OrderLogEntryResponse struct {
	Stage   string `json:"stage"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
	At      string `json:"at"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func mapAddress(a AddressDTO) domain.Address {
	return domain.Address{
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

func mapItems(items []domain.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i, it := range items {
		out[i] = LineItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			LineTotal: it.LineTotal.StringFixed(2),
		}
	}
	return out
}

func mapOrderToResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		CustomerID:     o.CustomerID,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		Items:          mapItems(o.Items),
		Subtotal:       o.Subtotal.StringFixed(2),
		Discount:       o.Discount.StringFixed(2),
		Shipping:       o.Shipping.StringFixed(2),
		Tax:            o.Tax.StringFixed(2),
		Total:          o.Total.StringFixed(2),
		CouponCode:     o.CouponCode,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      o.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
