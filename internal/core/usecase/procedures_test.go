package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

func TestListCachesNormalizedResult(t *testing.T) {
	source := &sourceFake{
		listPayload: map[string]any{
			"data":  []any{map[string]any{"id": "a", "title": "First"}},
			"total": float64(1),
		},
	}
	cache := newCacheFake()
	uc := NewProcedureUseCase(source, cache, nil, nil, time.Minute)
	query := domain.ProcedureListQuery{Page: 1, Limit: 10}

	first, err := uc.List(context.Background(), query)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(first.Procedures) != 1 || first.Procedures[0].ID != "a" {
		t.Fatalf("list = %#v", first)
	}

	second, err := uc.List(context.Background(), query)
	if err != nil {
		t.Fatalf("second List() error = %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("cached list must not refetch, got %d calls", source.listCalls)
	}
	if len(second.Procedures) != 1 || second.Procedures[0].Title != "First" {
		t.Fatalf("cached list = %#v", second)
	}
}

func TestGetNormalizesAndSnapshots(t *testing.T) {
	source := &sourceFake{
		procedurePayload: map[string]any{
			"data": map[string]any{"id": "p1", "title": "Passport Renewal"},
		},
	}
	cache := newCacheFake()
	snapshots := newSnapshotFake()
	uc := NewProcedureUseCase(source, cache, snapshots, nil, time.Minute)

	proc, err := uc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if proc.Title != "Passport Renewal" {
		t.Fatalf("title = %q", proc.Title)
	}
	if snapshots.upserts != 1 {
		t.Fatalf("expected snapshot upsert, got %d", snapshots.upserts)
	}

	if _, err := uc.Get(context.Background(), "p1"); err != nil {
		t.Fatalf("cached Get() error = %v", err)
	}
	if source.procedureCalls != 1 {
		t.Fatalf("cached get must not refetch, got %d calls", source.procedureCalls)
	}
}

func TestGetServesStaleSnapshotOnUpstreamFailure(t *testing.T) {
	source := &sourceFake{
		procedureErr: domain.WrapError(domain.ErrTemporary, "fetch procedure", context.DeadlineExceeded),
	}
	snapshots := newSnapshotFake()
	_ = snapshots.Upsert(context.Background(), &domain.Procedure{ID: "p1", Title: "Stored Copy"})
	uc := NewProcedureUseCase(source, newCacheFake(), snapshots, nil, time.Minute)

	proc, err := uc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if proc.Title != "Stored Copy" {
		t.Fatalf("expected stale snapshot, got %#v", proc)
	}
}

func TestGetNotFoundSkipsSnapshot(t *testing.T) {
	source := &sourceFake{
		procedureErr: domain.WrapError(domain.ErrProcedureNotFound, "fetch procedure", context.Canceled),
	}
	snapshots := newSnapshotFake()
	_ = snapshots.Upsert(context.Background(), &domain.Procedure{ID: "p1", Title: "Stored Copy"})
	uc := NewProcedureUseCase(source, newCacheFake(), snapshots, nil, time.Minute)

	_, err := uc.Get(context.Background(), "p1")
	if !domain.IsKind(err, domain.ErrProcedureNotFound) {
		t.Fatalf("not-found must surface, got %v", err)
	}
}

func TestGetFailsWithoutSnapshotStore(t *testing.T) {
	source := &sourceFake{
		procedureErr: domain.WrapError(domain.ErrTemporary, "fetch procedure", context.DeadlineExceeded),
	}
	uc := NewProcedureUseCase(source, newCacheFake(), nil, nil, time.Minute)

	_, err := uc.Get(context.Background(), "p1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestRefreshRewritesCacheAndSnapshot(t *testing.T) {
	source := &sourceFake{
		procedurePayload: map[string]any{"id": "p1", "title": "Fresh"},
	}
	cache := newCacheFake()
	snapshots := newSnapshotFake()
	uc := NewProcedureUseCase(source, cache, snapshots, nil, time.Minute)

	if err := uc.Refresh(context.Background(), "p1"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if snapshots.upserts != 1 {
		t.Fatalf("expected snapshot upsert")
	}

	proc, err := uc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if proc.Title != "Fresh" || source.procedureCalls != 1 {
		t.Fatalf("Get after Refresh should hit cache: %#v, calls=%d", proc, source.procedureCalls)
	}
}
