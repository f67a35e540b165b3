package goVerify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisStoreRoundtrip(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")
	ctx := context.Background()

	ch := Challenge{
		Handle:      "h1",
		Key:         "alice@example.com",
		Purpose:     PurposeRecovery,
		CodeHash:    "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		IssuedAt:    time.Unix(1767000000, 0),
		Attempts:    2,
		Verified:    true,
		SubjectRef:  "user-1",
		DisplayName: "Alice",
	}
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

func TestRedisStoreUnknownHandle(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
	if _, err := store.HandleForKey(context.Background(), "nobody@example.com"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestRedisStoreKeyReplacement(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")
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

func TestRedisStoreRecordFailure(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")
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

	// The count persists across reads.
	got, err := store.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Attempts != 2 {
		t.Fatalf("expected 2 persisted attempts, got %d", got.Attempts)
	}

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

func TestRedisStoreMarkVerified(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")
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

func TestRedisStoreDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "alice@example.com"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if mr.Exists("vch:h:h1") {
		t.Fatal("record key survived deletion")
	}
	if mr.Exists("vch:k:alice@example.com") {
		t.Fatal("index key survived deletion")
	}

	// Deleting an absent handle is not an error.
	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("h1", "alice@example.com"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "h1"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected TTL eviction, got %v", err)
	}
	if _, err := store.HandleForKey(ctx, "alice@example.com"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected the index to expire with the record, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "vch")
	mr.Close()

	if _, err := store.Get(context.Background(), "h1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Put(context.Background(), testChallenge("h1", "a@example.com"), time.Hour); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestChallengeRecordCodec(t *testing.T) {
	ch := Challenge{
		Handle:      "h1",
		Key:         "alice@example.com",
		Purpose:     PurposeRecovery,
		CodeHash:    "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		IssuedAt:    time.Unix(1767000000, 0),
		Attempts:    3,
		Verified:    true,
		SubjectRef:  "user-1",
		DisplayName: "Alice",
	}
	expiresAt := time.Unix(1767000900, 0)

	encoded, err := encodeChallengeRecord(ch, expiresAt)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, gotExpiry, err := decodeChallengeRecord(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != ch {
		t.Fatalf("codec mismatch:\n got %+v\nwant %+v", decoded, ch)
	}
	if !gotExpiry.Equal(expiresAt) {
		t.Fatalf("expected expiry %s, got %s", expiresAt, gotExpiry)
	}
}

func TestChallengeRecordCodecRejectsGarbage(t *testing.T) {
	if _, _, err := decodeChallengeRecord(nil); err == nil {
		t.Fatal("expected an error for empty input")
	}
	if _, _, err := decodeChallengeRecord([]byte{challengeRecordVersionV1, 0}); err == nil {
		t.Fatal("expected an error for a truncated record")
	}
	if _, _, err := decodeChallengeRecord([]byte{99, 0, 0, 0, 0}); err == nil {
		t.Fatal("expected an error for an unknown record version")
	}
}
