package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	httpadapter "github.com/ethioguide/procedure-gateway/internal/adapters/http"
	"github.com/ethioguide/procedure-gateway/internal/config"
	"github.com/ethioguide/procedure-gateway/internal/core/ports"
	"github.com/ethioguide/procedure-gateway/internal/core/usecase"
	"github.com/ethioguide/procedure-gateway/internal/infrastructure/cache"
	"github.com/ethioguide/procedure-gateway/internal/infrastructure/export/xlsx"
	natsbus "github.com/ethioguide/procedure-gateway/internal/infrastructure/queue/nats"
	"github.com/ethioguide/procedure-gateway/internal/infrastructure/repository/postgres"
	"github.com/ethioguide/procedure-gateway/internal/infrastructure/resilience"
	"github.com/ethioguide/procedure-gateway/internal/infrastructure/upstream/ethioguide"
	"github.com/ethioguide/procedure-gateway/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Source    ports.ProcedureSource
	Cache     ports.CacheStore
	Snapshots *postgres.SnapshotRepository
	Bus       ports.InvalidationBus

	Directory *usecase.ProcedureUseCase
	Feedback  *usecase.FeedbackUseCase
	Exporter  *usecase.ExportUseCase
	Proxy     http.Handler

	closeFn func()
}

// New wires the gateway. The Redis cache, snapshot store and NATS bus are all
// optional: with everything off the gateway still runs as a single-process
// normalizing proxy over the in-memory cache.
func New(ctx context.Context, cfg config.Config, observer *metrics.GatewayObserver) (*App, error) {
	var closers []func()

	guard := resilience.NewGuard(resilience.Config{
		BreakerEnabled:     cfg.BreakerEnabled,
		BreakerMinRequests: uint32(cfg.BreakerMinRequests),
		BreakerOpenTimeout: time.Duration(cfg.BreakerOpenSecs) * time.Second,
	})

	clientOpts := []ethioguide.Option{
		ethioguide.WithGuard(guard),
		ethioguide.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second,
		}),
	}
	if observer != nil {
		clientOpts = append(clientOpts, ethioguide.WithObserver(observer))
	}
	routes, err := config.LoadRoutes(cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	if len(routes.ProcedurePaths) > 0 {
		clientOpts = append(clientOpts, ethioguide.WithProcedurePaths(routes.ProcedurePaths))
	}

	source, err := ethioguide.New(cfg.UpstreamBaseURL, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init upstream client: %w", err)
	}

	var store ports.CacheStore
	switch cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		store = cache.NewRedis(client, cfg.RedisKeyPrefix)
	default:
		store = cache.NewMemory()
	}

	var snapshots *postgres.SnapshotRepository
	var snapshotStore ports.SnapshotStore
	if cfg.SnapshotsEnabled {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })

		snapshots = postgres.NewSnapshotRepository(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure snapshot schema: %w", err)
		}
		snapshotStore = snapshots
	}

	var bus ports.InvalidationBus
	if cfg.NATSEnabled {
		natsBus, err := natsbus.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsbus.Options{Guard: guard})
		if err != nil {
			return nil, fmt.Errorf("init invalidation bus: %w", err)
		}
		closers = append(closers, natsBus.Close)
		bus = natsBus
	}

	var proxy http.Handler
	if cfg.ProxyPassthrough {
		proxy, err = httpadapter.NewUpstreamProxy(cfg.UpstreamBaseURL)
		if err != nil {
			return nil, fmt.Errorf("init upstream proxy: %w", err)
		}
	}

	var cacheObserver usecase.CacheObserver
	if observer != nil {
		cacheObserver = observer
	}
	directory := usecase.NewProcedureUseCase(source, store, snapshotStore, cacheObserver, cfg.CacheTTL())
	feedback := usecase.NewFeedbackUseCase(source, store, bus, cacheObserver, cfg.CacheTTL())
	exporter := usecase.NewExportUseCase(source, xlsx.NewExporter())

	return &App{
		Config:    cfg,
		Source:    source,
		Cache:     store,
		Snapshots: snapshots,
		Bus:       bus,
		Directory: directory,
		Feedback:  feedback,
		Exporter:  exporter,
		Proxy:     proxy,
		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
