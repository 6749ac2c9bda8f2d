package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/bootstrap"
	"github.com/ethioguide/procedure-gateway/internal/config"
	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/core/usecase"
	"github.com/ethioguide/procedure-gateway/internal/observability/logging"
	"github.com/ethioguide/procedure-gateway/internal/observability/metrics"
)

const serviceName = "procedure-gateway-worker"

// The worker consumes cache-invalidation events: it drops the listed cache
// keys and, for any event that names a procedure (feedback writes included),
// refetches it and rewrites the stored snapshot so stale-if-error data stays
// fresh.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	if !cfg.NATSEnabled {
		log.Fatalf("worker requires NATS_ENABLED=true")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	consumer := usecase.NewInvalidationConsumer(app.Cache, app.Directory, workerMetrics, usecase.DefaultRefreshTimeout)

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Bus.SubscribeInvalidation(ctx, func(handlerCtx context.Context, event domain.InvalidationEvent) error {
		workerMetrics.RecordEvent(event.Resource)
		return consumer.Handle(handlerCtx, event)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
