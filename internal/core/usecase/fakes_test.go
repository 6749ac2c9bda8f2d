package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

type sourceFake struct {
	mu sync.Mutex

	procedurePayload any
	procedureErr     error
	procedureCalls   int

	listPayload any
	listErr     error
	listCalls   int

	feedbackPages []any
	feedbackErr   error
	feedbackCalls int

	createPayload any
	createErr     error
	createParams  *domain.SubmitFeedbackParams

	updateMessage string
	updateErr     error
	updateParams  *domain.RespondFeedbackParams
}

func (f *sourceFake) FetchProcedure(context.Context, string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.procedureCalls++
	return f.procedurePayload, f.procedureErr
}

func (f *sourceFake) FetchProcedureList(context.Context, domain.ProcedureListQuery) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.listPayload, f.listErr
}

func (f *sourceFake) FetchFeedbackPage(_ context.Context, _ string, page, _ int, _, _ string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbackCalls++
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	if len(f.feedbackPages) == 0 {
		return map[string]any{"feedbacks": []any{}}, nil
	}
	if page-1 < len(f.feedbackPages) {
		return f.feedbackPages[page-1], nil
	}
	return map[string]any{"feedbacks": []any{}}, nil
}

func (f *sourceFake) CreateFeedback(_ context.Context, params domain.SubmitFeedbackParams) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createParams = &params
	return f.createPayload, f.createErr
}

func (f *sourceFake) UpdateFeedback(_ context.Context, params domain.RespondFeedbackParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateParams = &params
	return f.updateMessage, f.updateErr
}

type cacheFake struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string][]byte)}
}

func (c *cacheFake) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *cacheFake) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *cacheFake) Patch(_ context.Context, key string, apply func([]byte) ([]byte, error)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	next, err := apply(current)
	if err != nil {
		return false, err
	}
	c.entries[key] = next
	return true, nil
}

func (c *cacheFake) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.invalidated = append(c.invalidated, key)
	}
	return nil
}

type snapshotFake struct {
	mu        sync.Mutex
	stored    map[string]*domain.Procedure
	fetchedAt time.Time
	upserts   int
}

func newSnapshotFake() *snapshotFake {
	return &snapshotFake{
		stored:    make(map[string]*domain.Procedure),
		fetchedAt: time.Now().Add(-time.Hour),
	}
}

func (s *snapshotFake) Upsert(_ context.Context, proc *domain.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyProc := *proc
	s.stored[proc.ID] = &copyProc
	s.upserts++
	return nil
}

func (s *snapshotFake) GetByID(_ context.Context, id string) (*domain.Procedure, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proc, ok := s.stored[id]
	if !ok {
		return nil, time.Time{}, errors.New("snapshot not found")
	}
	return proc, s.fetchedAt, nil
}

type busFake struct {
	mu     sync.Mutex
	events []domain.InvalidationEvent
}

func (b *busFake) PublishInvalidation(_ context.Context, event domain.InvalidationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *busFake) SubscribeInvalidation(context.Context, func(context.Context, domain.InvalidationEvent) error) error {
	return errors.New("not implemented")
}
