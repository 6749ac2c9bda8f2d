package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/core/normalize"
	"github.com/ethioguide/procedure-gateway/internal/core/ports"
)

const DefaultCacheTTL = 60 * time.Second

// CacheObserver receives cache outcomes for metrics. Implementations must be
// safe for concurrent use; a nil observer disables observation.
type CacheObserver interface {
	ObserveCacheHit(resource string)
	ObserveCacheMiss(resource string)
	ObserveStaleServe(resource string)
}

// ProcedureUseCase serves canonical procedures: cache first, then one shared
// upstream fetch per cache key (concurrent identical requests collapse onto a
// single network call), then the snapshot store as stale-if-error fallback.
type ProcedureUseCase struct {
	source    ports.ProcedureSource
	cache     ports.CacheStore
	snapshots ports.SnapshotStore
	observer  CacheObserver
	ttl       time.Duration

	group singleflight.Group
}

func NewProcedureUseCase(
	source ports.ProcedureSource,
	cache ports.CacheStore,
	snapshots ports.SnapshotStore,
	observer CacheObserver,
	ttl time.Duration,
) *ProcedureUseCase {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ProcedureUseCase{
		source:    source,
		cache:     cache,
		snapshots: snapshots,
		observer:  observer,
		ttl:       ttl,
	}
}

func (uc *ProcedureUseCase) List(ctx context.Context, query domain.ProcedureListQuery) (*domain.ProcedureList, error) {
	key := query.CacheKey()

	var cached domain.ProcedureList
	if uc.readCached(ctx, "procedures", key, &cached) {
		return &cached, nil
	}

	result, err, _ := uc.group.Do(key, func() (any, error) {
		raw, err := uc.source.FetchProcedureList(ctx, query)
		if err != nil {
			return nil, err
		}
		list := normalize.MapProcedureList(raw)
		uc.writeCached(ctx, key, list)
		return &list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.ProcedureList), nil
}

func (uc *ProcedureUseCase) Get(ctx context.Context, id string) (*domain.Procedure, error) {
	key := domain.ProcedureCacheKey(id)

	var cached domain.Procedure
	if uc.readCached(ctx, "procedure", key, &cached) {
		return &cached, nil
	}

	result, err, _ := uc.group.Do(key, func() (any, error) {
		raw, err := uc.source.FetchProcedure(ctx, id)
		if err != nil {
			return nil, err
		}
		proc := normalize.MapProcedure(raw)
		uc.writeCached(ctx, key, proc)
		uc.storeSnapshot(ctx, &proc)
		return &proc, nil
	})
	if err != nil {
		return uc.serveStale(ctx, id, err)
	}
	return result.(*domain.Procedure), nil
}

// Refresh refetches one procedure from the upstream and rewrites both the
// cache entry and the stored snapshot. The worker runs it for every
// procedure invalidation event.
func (uc *ProcedureUseCase) Refresh(ctx context.Context, id string) error {
	raw, err := uc.source.FetchProcedure(ctx, id)
	if err != nil {
		return err
	}
	proc := normalize.MapProcedure(raw)
	uc.writeCached(ctx, domain.ProcedureCacheKey(id), proc)
	uc.storeSnapshot(ctx, &proc)
	return nil
}

// serveStale answers from the snapshot store when the upstream failed for
// reasons other than a definite not-found.
func (uc *ProcedureUseCase) serveStale(ctx context.Context, id string, fetchErr error) (*domain.Procedure, error) {
	if uc.snapshots == nil || domain.IsKind(fetchErr, domain.ErrProcedureNotFound) {
		return nil, fetchErr
	}

	proc, fetchedAt, err := uc.snapshots.GetByID(ctx, id)
	if err != nil {
		return nil, fetchErr
	}
	slog.Warn("serving_stale_snapshot",
		"procedure_id", id,
		"age_seconds", time.Since(fetchedAt).Seconds(),
		"fetch_error", fetchErr,
	)
	if uc.observer != nil {
		uc.observer.ObserveStaleServe("procedure")
	}
	return proc, nil
}

func (uc *ProcedureUseCase) readCached(ctx context.Context, resource, key string, out any) bool {
	value, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache_read_failed", "key", key, "error", err)
		return false
	}
	if !ok {
		if uc.observer != nil {
			uc.observer.ObserveCacheMiss(resource)
		}
		return false
	}
	if err := json.Unmarshal(value, out); err != nil {
		slog.Warn("cache_entry_corrupt", "key", key, "error", err)
		return false
	}
	if uc.observer != nil {
		uc.observer.ObserveCacheHit(resource)
	}
	return true
}

func (uc *ProcedureUseCase) writeCached(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache_marshal_failed", "key", key, "error", err)
		return
	}
	if err := uc.cache.Set(ctx, key, payload, uc.ttl); err != nil {
		slog.Warn("cache_write_failed", "key", key, "error", err)
	}
}

func (uc *ProcedureUseCase) storeSnapshot(ctx context.Context, proc *domain.Procedure) {
	if uc.snapshots == nil {
		return
	}
	if err := uc.snapshots.Upsert(ctx, proc); err != nil {
		slog.Warn("snapshot_upsert_failed", "procedure_id", proc.ID, "error", err)
	}
}
