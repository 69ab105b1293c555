package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gemstack/commerce/internal/httpx/middlewares"
	"github.com/gemstack/commerce/internal/pkg/cache"
)

// NewRouter wires the order endpoints. idem may be nil, disabling the
// idempotency guard (tests, Redis-less development).
func NewRouter(handler *Handler, idem cache.Cache) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(middlewares.Idempotency(idem)).Post("/orders", handler.CreateOrder)
	r.Get("/orders/{id}", handler.GetOrder)
	r.Get("/orders/{id}/history", handler.GetOrderHistory)
	r.Post("/orders/{id}/cancel", handler.CancelOrder)
	r.Patch("/orders/{id}/status", handler.UpdateOrderStatus)
	r.Get("/customers/{id}/orders", handler.ListCustomerOrders)
	r.Post("/checkout/quote", handler.Quote)

	return otelhttp.NewHandler(r, "commerce")
}
