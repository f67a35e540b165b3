package goVerify

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	ch        Challenge
	expiresAt time.Time
}

// MemoryStore is the bundled process-local [ChallengeStore]. A single coarse
// mutex is enough here: the map operations inside the critical section are
// trivially cheap and the expensive hash comparisons happen in the engine,
// outside the lock.
type MemoryStore struct {
	mu       sync.Mutex
	byHandle map[string]memoryEntry
	byKey    map[string]string
	now      func() time.Time
}

// NewMemoryStore describes the newmemorystore operation and its observable behavior.
//
// NewMemoryStore may return an error when input validation, dependency calls, or security checks fail.
// NewMemoryStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryStore() *MemoryStore {
	return newMemoryStoreWithClock(time.Now)
}

func newMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		byHandle: make(map[string]memoryEntry),
		byKey:    make(map[string]string),
		now:      now,
	}
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Put(ctx context.Context, ch Challenge, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// One live challenge per key: a new issuance supersedes the old record.
	if oldHandle, ok := s.byKey[ch.Key]; ok && oldHandle != ch.Handle {
		delete(s.byHandle, oldHandle)
	}

	s.byHandle[ch.Handle] = memoryEntry{
		ch:        ch,
		expiresAt: s.now().Add(ttl),
	}
	s.byKey[ch.Key] = ch.Handle

	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Get(ctx context.Context, handle string) (Challenge, error) {
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveEntry(handle)
	if !ok {
		return Challenge{}, ErrChallengeNotFound
	}
	return entry.ch, nil
}

// HandleForKey describes the handleforkey operation and its observable behavior.
//
// HandleForKey may return an error when input validation, dependency calls, or security checks fail.
// HandleForKey does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) HandleForKey(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.byKey[key]
	if !ok {
		return "", ErrChallengeNotFound
	}
	if _, ok := s.liveEntry(handle); !ok {
		return "", ErrChallengeNotFound
	}
	return handle, nil
}

// RecordFailure describes the recordfailure operation and its observable behavior.
//
// RecordFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) RecordFailure(ctx context.Context, handle string, maxAttempts int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveEntry(handle)
	if !ok {
		return 0, ErrChallengeNotFound
	}

	entry.ch.Attempts++
	if entry.ch.Attempts >= maxAttempts {
		s.deleteLocked(handle)
		return entry.ch.Attempts, ErrAttemptsExceeded
	}

	s.byHandle[handle] = entry
	return entry.ch.Attempts, nil
}

// MarkVerified describes the markverified operation and its observable behavior.
//
// MarkVerified may return an error when input validation, dependency calls, or security checks fail.
// MarkVerified does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) MarkVerified(ctx context.Context, handle string) (Challenge, error) {
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveEntry(handle)
	if !ok {
		return Challenge{}, ErrChallengeNotFound
	}

	entry.ch.Verified = true
	s.byHandle[handle] = entry
	return entry.ch, nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(handle)
	return nil
}

// SweepExpired describes the sweepexpired operation and its observable behavior.
//
// SweepExpired may return an error when input validation, dependency calls, or security checks fail.
// SweepExpired does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for handle, entry := range s.byHandle {
		if now.After(entry.expiresAt) {
			s.deleteLocked(handle)
			evicted++
		}
	}
	return evicted, nil
}

// liveEntry returns the entry for handle if it exists and its retention
// deadline has not passed; stale entries are removed lazily.
func (s *MemoryStore) liveEntry(handle string) (memoryEntry, bool) {
	entry, ok := s.byHandle[handle]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		s.deleteLocked(handle)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) deleteLocked(handle string) {
	entry, ok := s.byHandle[handle]
	if !ok {
		return
	}
	delete(s.byHandle, handle)
	if current, ok := s.byKey[entry.ch.Key]; ok && current == handle {
		delete(s.byKey, entry.ch.Key)
	}
}
