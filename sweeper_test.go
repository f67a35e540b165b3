package goVerify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSweepOnceEvictsExpired(t *testing.T) {
	te := newMemoryTestEngine(t, fastTestConfig())
	ctx := context.Background()

	te.issueAndCapture(t, PurposeRegistration, "alice@example.com", "user-1")
	te.issueAndCapture(t, PurposeRecovery, "bob@example.com", "user-2")

	// Past registration retention (10m) but inside recovery retention (15m).
	te.clock.Advance(12 * time.Minute)

	s := &sweeper{engine: te.engine, interval: time.Second, done: make(chan struct{})}
	s.sweepOnce()

	snap := te.engine.MetricsSnapshot()
	if got := snap.Counters[MetricSweepEvicted]; got != 1 {
		t.Fatalf("expected 1 evicted record, got %d", got)
	}

	if _, err := te.engine.store.HandleForKey(ctx, "alice@example.com"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected the expired record swept, got %v", err)
	}
	if _, err := te.engine.store.HandleForKey(ctx, "bob@example.com"); err != nil {
		t.Fatalf("expected the live record kept, got %v", err)
	}
}

func TestSweeperRunsOnInterval(t *testing.T) {
	cfg := fastTestConfig()
	cfg.Sweep.Enabled = true
	cfg.Sweep.Interval = 10 * time.Millisecond

	te := newMemoryTestEngine(t, cfg)

	te.issueAndCapture(t, PurposeRegistration, "alice@example.com", "user-1")
	te.clock.Advance(11 * time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if te.engine.MetricsSnapshot().Counters[MetricSweepEvicted] > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sweeper never evicted the expired record")
}

func TestSweeperCloseIdempotent(t *testing.T) {
	cfg := fastTestConfig()
	cfg.Sweep.Enabled = true
	cfg.Sweep.Interval = 10 * time.Millisecond

	te := newMemoryTestEngine(t, cfg)

	te.engine.Close()
	te.engine.Close()
}
