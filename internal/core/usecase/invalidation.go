package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/core/ports"
)

const DefaultRefreshTimeout = 30 * time.Second

// RefreshObserver times snapshot refreshes. A nil observer disables timing.
type RefreshObserver interface {
	StartRefresh()
	FinishRefresh(duration time.Duration, err error)
}

// InvalidationConsumer applies invalidation events on the worker side: it
// drops the listed cache keys and refetches the named procedure so the cache
// entry and the stored snapshot stay fresh. Feedback events carry the owning
// procedure id and trigger the refresh the same way procedure events do.
type InvalidationConsumer struct {
	cache     ports.CacheStore
	directory *ProcedureUseCase
	observer  RefreshObserver
	timeout   time.Duration
}

func NewInvalidationConsumer(
	cache ports.CacheStore,
	directory *ProcedureUseCase,
	observer RefreshObserver,
	timeout time.Duration,
) *InvalidationConsumer {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &InvalidationConsumer{
		cache:     cache,
		directory: directory,
		observer:  observer,
		timeout:   timeout,
	}
}

func (c *InvalidationConsumer) Handle(ctx context.Context, event domain.InvalidationEvent) error {
	if len(event.CacheKeys) > 0 {
		if err := c.cache.Invalidate(ctx, event.CacheKeys...); err != nil {
			slog.Warn("invalidation_cache_drop_failed", "keys", event.CacheKeys, "error", err)
		}
	}

	if event.ProcedureID == "" {
		return nil
	}

	if c.observer != nil {
		c.observer.StartRefresh()
	}
	start := time.Now()
	refreshCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.directory.Refresh(refreshCtx, event.ProcedureID)
	if c.observer != nil {
		c.observer.FinishRefresh(time.Since(start), err)
	}
	return err
}
