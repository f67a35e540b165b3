package goVerify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testChallenge(handle, key string) Challenge {
	return Challenge{
		Handle:      handle,
		Key:         key,
		Purpose:     PurposeRegistration,
		CodeHash:    "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		IssuedAt:    time.Unix(1767000000, 0),
		SubjectRef:  "user-1",
		DisplayName: "Alice",
	}
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	ch := testChallenge("h1", "alice@example.com")
	if err := store.Put(ctx, ch, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != ch {
		t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", got, ch)
	}

	handle, err := store.HandleForKey(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("HandleForKey failed: %v", err)
	}
	if handle != "h1" {
		t.Fatalf("expected h1 from the key index, got %s", handle)
	}
}

func TestMemoryStoreUnknownHandle(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
	if _, err := store.HandleForKey(context.Background(), "nobody@example.com"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestMemoryStoreKeyReplacement(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "alice@example.com"), time.Hour); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := store.Put(ctx, testChallenge("h2", "alice@example.com"), time.Hour); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	if _, err := store.Get(ctx, "h1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected the superseded record to be gone, got %v", err)
	}
	handle, err := store.HandleForKey(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("HandleForKey failed: %v", err)
	}
	if handle != "h2" {
		t.Fatalf("expected the index to follow the new record, got %s", handle)
	}
}

func TestMemoryStoreRecordFailure(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "alice@example.com"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	for want := 1; want <= 2; want++ {
		attempts, err := store.RecordFailure(ctx, "h1", 3)
		if err != nil {
			t.Fatalf("RecordFailure %d failed: %v", want, err)
		}
		if attempts != want {
			t.Fatalf("expected attempts %d, got %d", want, attempts)
		}
	}

	// Reaching the cap removes the record atomically with the count.
	if _, err := store.RecordFailure(ctx, "h1", 3); !errors.Is(err, ErrAttemptsExceeded) {
		t.Fatalf("expected ErrAttemptsExceeded, got %v", err)
	}
	if _, err := store.Get(ctx, "h1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected the capped record to be gone, got %v", err)
	}
	if _, err := store.HandleForKey(ctx, "alice@example.com"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected the key index cleared, got %v", err)
	}
}

func TestMemoryStoreMarkVerified(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "alice@example.com"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	updated, err := store.MarkVerified(ctx, "h1")
	if err != nil {
		t.Fatalf("MarkVerified failed: %v", err)
	}
	if !updated.Verified {
		t.Fatal("MarkVerified must return the updated record")
	}

	got, err := store.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Verified {
		t.Fatal("verified flag did not persist")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "alice@example.com"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.HandleForKey(ctx, "alice@example.com"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected the key index cleared, got %v", err)
	}

	// Deleting an absent handle is not an error.
	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "alice@example.com"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clock.Advance(61 * time.Second)

	if _, err := store.Get(ctx, "h1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected lazy eviction on Get, got %v", err)
	}
	if _, err := store.HandleForKey(ctx, "alice@example.com"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected lazy eviction through the index, got %v", err)
	}
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	clock := newFakeClock()
	store := newMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "a@example.com"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, testChallenge("h2", "b@example.com"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, testChallenge("h3", "c@example.com"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clock.Advance(2 * time.Minute)

	evicted, err := store.SweepExpired(ctx, clock.Now())
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if evicted != 2 {
		t.Fatalf("expected 2 evictions, got %d", evicted)
	}
	if _, err := store.Get(ctx, "h3"); err != nil {
		t.Fatalf("expected the fresh record to survive the sweep, got %v", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle := fmt.Sprintf("h%d", i)
			key := fmt.Sprintf("user%d@example.com", i)
			if err := store.Put(ctx, testChallenge(handle, key), time.Hour); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
			if _, err := store.Get(ctx, handle); err != nil {
				t.Errorf("Get failed: %v", err)
			}
			if _, err := store.RecordFailure(ctx, handle, 3); err != nil {
				t.Errorf("RecordFailure failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryStoreContextCancelled(t *testing.T) {
	store := NewMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, testChallenge("h1", "a@example.com"), time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := store.Get(ctx, "h1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
