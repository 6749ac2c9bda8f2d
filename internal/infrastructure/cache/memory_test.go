package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", value, ok, err)
	}
	if string(value) != "v" {
		t.Fatalf("value = %q", value)
	}

	_, ok, err = m.Get(ctx, "absent")
	if err != nil || ok {
		t.Fatalf("absent key Get() = %v, %v", ok, err)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to have expired")
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("v"), 0)
	now = now.Add(24 * time.Hour)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatalf("zero ttl entry should not expire")
	}
}

func TestMemoryPatch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	patched, err := m.Patch(ctx, "absent", func(current []byte) ([]byte, error) {
		t.Fatalf("apply must not run for absent keys")
		return nil, nil
	})
	if err != nil || patched {
		t.Fatalf("absent Patch() = %v, %v", patched, err)
	}

	_ = m.Set(ctx, "k", []byte("old"), time.Minute)
	patched, err = m.Patch(ctx, "k", func(current []byte) ([]byte, error) {
		if string(current) != "old" {
			t.Fatalf("current = %q", current)
		}
		return []byte("new"), nil
	})
	if err != nil || !patched {
		t.Fatalf("Patch() = %v, %v", patched, err)
	}

	value, _, _ := m.Get(ctx, "k")
	if string(value) != "new" {
		t.Fatalf("value after patch = %q", value)
	}
}

func TestMemoryPatchApplyErrorLeavesEntry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "k", []byte("v"), time.Minute)

	wantErr := errors.New("bad entry")
	_, err := m.Patch(ctx, "k", func([]byte) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Patch() error = %v", err)
	}

	value, ok, _ := m.Get(ctx, "k")
	if !ok || string(value) != "v" {
		t.Fatalf("entry should be unchanged, got %q %v", value, ok)
	}
}

func TestMemoryInvalidate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "a", []byte("1"), time.Minute)
	_ = m.Set(ctx, "b", []byte("2"), time.Minute)

	if err := m.Invalidate(ctx, "a", "b", "c"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Fatalf("a should be gone")
	}
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Fatalf("b should be gone")
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "k", []byte("abc"), time.Minute)

	value, _, _ := m.Get(ctx, "k")
	value[0] = 'z'

	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}
