package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/core/normalize"
	"github.com/ethioguide/procedure-gateway/internal/core/ports"
)

// DefaultFeedbackLimit is the page size the reader UI requests. The
// post-commit patch targets the first page at this size.
const DefaultFeedbackLimit = 10

// FeedbackUseCase reads and writes procedure feedback. Successful writes go
// through first and only then adjust the cache: Submit prepends the committed
// item onto the cached first page through the cache's Patch choke point,
// Respond invalidates and broadcasts so other replicas drop their copies.
type FeedbackUseCase struct {
	source   ports.ProcedureSource
	cache    ports.CacheStore
	bus      ports.InvalidationBus
	observer CacheObserver
	ttl      time.Duration
}

func NewFeedbackUseCase(
	source ports.ProcedureSource,
	cache ports.CacheStore,
	bus ports.InvalidationBus,
	observer CacheObserver,
	ttl time.Duration,
) *FeedbackUseCase {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &FeedbackUseCase{
		source:   source,
		cache:    cache,
		bus:      bus,
		observer: observer,
		ttl:      ttl,
	}
}

func (uc *FeedbackUseCase) List(ctx context.Context, procedureID string, page, limit int, status, authToken string) (*domain.FeedbackPage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultFeedbackLimit
	}

	// Authenticated reads may carry caller-specific fields; only anonymous
	// pages are shared through the cache.
	cacheable := authToken == ""
	key := domain.FeedbackCacheKey(procedureID, page, limit, status)

	if cacheable {
		value, ok, err := uc.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("cache_read_failed", "key", key, "error", err)
		} else if ok {
			var cached domain.FeedbackPage
			if unmarshalErr := json.Unmarshal(value, &cached); unmarshalErr != nil {
				slog.Warn("cache_entry_corrupt", "key", key, "error", unmarshalErr)
			} else {
				if uc.observer != nil {
					uc.observer.ObserveCacheHit("feedback")
				}
				return &cached, nil
			}
		}
		if uc.observer != nil {
			uc.observer.ObserveCacheMiss("feedback")
		}
	}

	raw, err := uc.source.FetchFeedbackPage(ctx, procedureID, page, limit, status, authToken)
	if err != nil {
		return nil, err
	}
	feedbackPage := normalize.MapFeedbackPage(raw)
	if feedbackPage.Page == 0 {
		feedbackPage.Page = page
	}
	if feedbackPage.Limit == 0 {
		feedbackPage.Limit = limit
	}

	if cacheable {
		if payload, err := json.Marshal(feedbackPage); err == nil {
			if err := uc.cache.Set(ctx, key, payload, uc.ttl); err != nil {
				slog.Warn("cache_write_failed", "key", key, "error", err)
			}
		}
	}
	return &feedbackPage, nil
}

func (uc *FeedbackUseCase) Submit(ctx context.Context, params domain.SubmitFeedbackParams) (*domain.FeedbackItem, error) {
	if strings.TrimSpace(params.Content) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit feedback", errContentRequired)
	}
	if strings.TrimSpace(params.ProcedureID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit feedback", errProcedureIDRequired)
	}
	params.Type = domain.NormalizeFeedbackType(string(params.Type))

	raw, err := uc.source.CreateFeedback(ctx, params)
	if err != nil {
		return nil, err
	}

	item := normalize.MapFeedbackItem(raw)
	if item.Content == "" {
		item.Content = params.Content
	}
	if item.ProcedureID == "" {
		item.ProcedureID = params.ProcedureID
	}
	if len(item.Tags) == 0 && len(params.Tags) > 0 {
		item.Tags = params.Tags
	}

	uc.patchFirstPage(ctx, item)
	return &item, nil
}

// patchFirstPage runs only after the upstream committed the write. It rewrites
// the cached anonymous first page in place so the next read reflects the new
// item without refetching; a missing entry means there is nothing to fix up.
func (uc *FeedbackUseCase) patchFirstPage(ctx context.Context, item domain.FeedbackItem) {
	key := domain.FeedbackCacheKey(item.ProcedureID, 1, DefaultFeedbackLimit, "")

	patched, err := uc.cache.Patch(ctx, key, func(current []byte) ([]byte, error) {
		var page domain.FeedbackPage
		if err := json.Unmarshal(current, &page); err != nil {
			return nil, err
		}
		page.Feedbacks = append([]domain.FeedbackItem{item}, page.Feedbacks...)
		page.Total++
		return json.Marshal(page)
	})
	if err != nil {
		slog.Warn("feedback_cache_patch_failed", "key", key, "error", err)
		if err := uc.cache.Invalidate(ctx, key); err != nil {
			slog.Warn("cache_invalidate_failed", "key", key, "error", err)
		}
		return
	}
	if !patched {
		return
	}

	uc.broadcast(ctx, domain.InvalidationEvent{
		Resource:    domain.ResourceFeedback,
		ProcedureID: item.ProcedureID,
		CacheKeys:   []string{key},
	})
}

func (uc *FeedbackUseCase) Respond(ctx context.Context, params domain.RespondFeedbackParams) (string, error) {
	if strings.TrimSpace(params.FeedbackID) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "respond feedback", errFeedbackIDRequired)
	}
	if params.AuthToken == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "respond feedback", errTokenRequired)
	}

	message, err := uc.source.UpdateFeedback(ctx, params)
	if err != nil {
		return "", err
	}

	// The admin UI passes the owning procedure when it has it; without it the
	// cached pages simply age out at their TTL.
	if params.ProcedureID != "" {
		key := domain.FeedbackCacheKey(params.ProcedureID, 1, DefaultFeedbackLimit, "")
		if err := uc.cache.Invalidate(ctx, key); err != nil {
			slog.Warn("cache_invalidate_failed", "key", key, "error", err)
		}
		uc.broadcast(ctx, domain.InvalidationEvent{
			Resource:    domain.ResourceFeedback,
			ProcedureID: params.ProcedureID,
			CacheKeys:   []string{key},
		})
	}
	return message, nil
}

func (uc *FeedbackUseCase) broadcast(ctx context.Context, event domain.InvalidationEvent) {
	if uc.bus == nil {
		return
	}
	if err := uc.bus.PublishInvalidation(ctx, event); err != nil {
		slog.Warn("invalidation_publish_failed", "resource", event.Resource, "procedure_id", event.ProcedureID, "error", err)
	}
}
