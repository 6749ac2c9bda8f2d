package ports

import (
	"context"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

// ProcedureSource fetches resources from the upstream backend. FetchProcedure
// walks the configured fallback paths and returns the already-decoded payload
// of the first non-empty response.
type ProcedureSource interface {
	FetchProcedure(ctx context.Context, id string) (any, error)
	FetchProcedureList(ctx context.Context, query domain.ProcedureListQuery) (any, error)
	FetchFeedbackPage(ctx context.Context, procedureID string, page, limit int, status, authToken string) (any, error)
	CreateFeedback(ctx context.Context, params domain.SubmitFeedbackParams) (any, error)
	UpdateFeedback(ctx context.Context, params domain.RespondFeedbackParams) (string, error)
}

// CacheStore is the keyed response cache. Patch is the single mutation choke
// point: all in-place cache rewrites (such as the post-commit feedback patch)
// go through it, never through ad-hoc writes. The callback receives the
// current value and returns the replacement; Patch reports whether an entry
// existed to patch.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Patch(ctx context.Context, key string, apply func(current []byte) ([]byte, error)) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
}

// SnapshotStore persists last-known-good canonical procedures so the gateway
// can serve stale data when the upstream and all its fallback paths are down.
type SnapshotStore interface {
	Upsert(ctx context.Context, proc *domain.Procedure) error
	GetByID(ctx context.Context, id string) (*domain.Procedure, time.Time, error)
}

// WorkbookBuilder renders canonical feedback items into a spreadsheet for the
// admin export download.
type WorkbookBuilder interface {
	BuildFeedbackWorkbook(procedureID string, items []domain.FeedbackItem) ([]byte, error)
}

// InvalidationBus broadcasts cache-invalidation events across gateway
// replicas and to the snapshot refresher worker.
type InvalidationBus interface {
	PublishInvalidation(ctx context.Context, event domain.InvalidationEvent) error
	SubscribeInvalidation(ctx context.Context, handler func(context.Context, domain.InvalidationEvent) error) error
}
