package goVerify

import (
	"context"
	"time"
)

// Challenge is the ephemeral record tracking one verification lifecycle for
// a correlation key. Only the argon2id hash of the current secret is kept;
// the plaintext code never reaches the store.
//
// A Challenge value is passed by value through [ChallengeStore] so callers
// always operate on copies; mutation happens inside the store's critical
// section via RecordFailure and MarkVerified.
type Challenge struct {
	Handle      string
	Key         string
	Purpose     Purpose
	CodeHash    string
	IssuedAt    time.Time
	Attempts    int
	Verified    bool
	SubjectRef  string
	DisplayName string
}

// ChallengeStore defines a public type used by goVerify APIs.
//
// ChallengeStore is the process-wide mapping from correlation handle to
// challenge state. Implementations must serialize access; the bundled
// in-memory store uses a single coarse lock, the Redis store uses WATCH
// transactions. All methods must be safe for concurrent callers.
//
// RecordFailure and MarkVerified exist so the expensive hash comparison can
// run outside the store's critical section: the engine reads a copy,
// compares, then applies the outcome atomically.
type ChallengeStore interface {
	// Put upserts the challenge under its handle and replaces any live
	// challenge for the same key. ttl bounds how long the record may be
	// retained before sweeping; window enforcement at read time does not
	// depend on it.
	Put(ctx context.Context, ch Challenge, ttl time.Duration) error

	// Get returns a copy of the challenge, or ErrChallengeNotFound.
	Get(ctx context.Context, handle string) (Challenge, error)

	// HandleForKey returns the handle of the live challenge filed under
	// key, or ErrChallengeNotFound.
	HandleForKey(ctx context.Context, key string) (string, error)

	// RecordFailure increments the failed-attempt counter and returns the
	// new count. When the count reaches maxAttempts the challenge is
	// deleted and ErrAttemptsExceeded is returned.
	RecordFailure(ctx context.Context, handle string, maxAttempts int) (int, error)

	// MarkVerified flips the verified flag and returns the updated copy.
	// Marking an already-verified challenge is a no-op.
	MarkVerified(ctx context.Context, handle string) (Challenge, error)

	// Delete removes the challenge and its key index. Deleting an absent
	// handle is not an error.
	Delete(ctx context.Context, handle string) error

	// SweepExpired evicts records whose retention ttl has elapsed at now
	// and reports how many were removed. Purely memory hygiene; expiry is
	// enforced at read time regardless.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
