package middlewares

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/gemstack/commerce/internal/pkg/cache"
)

// idempotencyTTL is how long a claimed key blocks duplicates. Long enough
// to cover client retry storms, short enough not to strand a legitimate
// re-submission forever.
const idempotencyTTL = 24 * time.Hour

// Idempotency guards mutating endpoints against duplicate submissions.
// When the client sends an X-Idempotency-Key header, the first request
// claims the key in Redis and proceeds; any request re-using the key while
// the claim lives gets 409 without reaching the checkout core. Requests
// without the header pass through untouched.
//
// A claim only sticks when the guarded request succeeds. On an error
// response (a declined payment, a validation failure) the claim is released
// so the client can retry with the same key.
func Idempotency(c cache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderXIdempotencyKey)
			if key == "" || c == nil {
				next.ServeHTTP(w, r)
				return
			}

			cacheKey := c.GenerateKey("idem", key)
			claimed, err := c.Acquire(r.Context(), cacheKey, time.Now().UTC().Format(time.RFC3339), idempotencyTTL)
			if err != nil {
				// Redis being down must not block checkouts; the guard is
				// best-effort on top of the client's own key discipline.
				slog.ErrorContext(r.Context(), "idempotency check failed, letting request through", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "duplicate_request",
					"message": "a request with this idempotency key was already accepted",
				})
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusBadRequest {
				if err := c.Delete(r.Context(), cacheKey); err != nil {
					slog.ErrorContext(r.Context(), "failed to release idempotency key after error response",
						"status", ww.Status(), "error", err)
				}
			}
		})
	}
}
