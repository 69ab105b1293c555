package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/gemstack/commerce/internal/adapters/payment"
	"github.com/gemstack/commerce/internal/adapters/redisx"
	"github.com/gemstack/commerce/internal/adapters/sqlite"
	"github.com/gemstack/commerce/internal/checkout"
	"github.com/gemstack/commerce/internal/core/ports"
	"github.com/gemstack/commerce/internal/httpx"
	"github.com/gemstack/commerce/internal/notify"
	"github.com/gemstack/commerce/internal/pkg/cache"
	"github.com/gemstack/commerce/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "commerce"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	store, err := sqlite.Open(getEnv("DB_PATH", "./data/commerce.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: getEnv("REDIS_ADDR", "localhost:6379")})
	defer redisClient.Close()

	dispatcher := notify.NewDispatcher(256, notificationSinks()...)
	defer dispatcher.Close()

	ledger := checkout.NewLedger(checkout.LedgerDeps{
		Orders:    sqlite.NewOrderRepository(store),
		Products:  sqlite.NewProductRepository(store),
		Coupons:   sqlite.NewCouponRepository(store),
		Gateway:   paymentGateway(),
		Carts:     redisx.NewCartStore(redisClient),
		Notifier:  dispatcher,
		Analytics: redisx.NewAnalyticsRecorder(redisClient),
		Log:       sqlite.NewOrderLogRepository(store),
	})

	idem := cache.NewRedisCache(redisClient, "commerce")
	router := httpx.NewRouter(httpx.NewHandler(ledger), idem)

	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("commerce service running", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}

// paymentGateway selects the processor adapter: the real HTTP adapter when
// an endpoint is configured, otherwise the in-memory development gateway.
func paymentGateway() ports.PaymentGateway {
	if url := os.Getenv("PAYMENT_GATEWAY_URL"); url != "" {
		return payment.NewHTTPGateway(url, os.Getenv("PAYMENT_GATEWAY_API_KEY"))
	}
	slog.Warn("PAYMENT_GATEWAY_URL not set, using in-memory development gateway")
	limit, err := decimal.NewFromString(getEnv("DEV_GATEWAY_LIMIT", "0"))
	if err != nil {
		limit = decimal.Zero
	}
	return payment.NewFakeGateway(limit)
}

func notificationSinks() []notify.Sink {
	if url := os.Getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		return []notify.Sink{notify.NewWebhookSink(url)}
	}
	return []notify.Sink{notify.LogSink{}}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
