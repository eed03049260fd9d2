package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/masterypath/internal/knowledge"
	"github.com/abhisek/masterypath/internal/store"
)

func TestLockArenaExclusive(t *testing.T) {
	a := newLockArena()
	key := knowledge.Key{UserID: "u", ObjectiveID: "o"}

	release, err := a.acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := a.acquire(context.Background(), key)
		if err != nil {
			t.Errorf("second acquire: %v", err)
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder entered while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never entered after release")
	}
}

func TestLockArenaContextCancel(t *testing.T) {
	a := newLockArena()
	key := knowledge.Key{UserID: "u", ObjectiveID: "o"}

	release, err := a.acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := a.acquire(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if got := a.size(); got != 1 {
		t.Errorf("size = %d, want 1 (only the holder)", got)
	}
}

func TestLockArenaIndependentKeys(t *testing.T) {
	a := newLockArena()
	r1, err := a.acquire(context.Background(), knowledge.Key{UserID: "u1", ObjectiveID: "o"})
	if err != nil {
		t.Fatalf("acquire u1: %v", err)
	}
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := a.acquire(ctx, knowledge.Key{UserID: "u2", ObjectiveID: "o"})
	if err != nil {
		t.Fatalf("acquire u2 blocked by u1: %v", err)
	}
	r2()
}

func TestLockArenaDropsIdleEntries(t *testing.T) {
	a := newLockArena()
	key := knowledge.Key{UserID: "u", ObjectiveID: "o"}

	release, err := a.acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release() // second call is a no-op

	if got := a.size(); got != 0 {
		t.Errorf("size = %d, want 0", got)
	}
}

func TestLockWaitMapsToStorageUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	key := knowledge.Key{UserID: "u", ObjectiveID: "solo"}
	release, err := f.engine.locks.acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.engine.NextQuestion(ctx, "u", "solo")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want StorageUnavailable", err)
	}
}

func TestLockWaitBoundedByStorageTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageTimeout = 20 * time.Millisecond
	e := New(testCatalog(t), store.NewMemoryRepo(), cfg)

	key := knowledge.Key{UserID: "u", ObjectiveID: "solo"}
	release, err := e.locks.acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	start := time.Now()
	_, err = e.NextQuestion(context.Background(), "u", "solo")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want StorageUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want wrapped deadline", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("lock wait took %s", time.Since(start))
	}
}
