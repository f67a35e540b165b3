package goVerify

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// sweeper periodically evicts expired challenge records. It exists for
// memory hygiene only: every read path enforces windows against the clock,
// so a stale record that survives until the next tick is never usable.
type sweeper struct {
	engine    *Engine
	interval  time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newSweeper(e *Engine, interval time.Duration) *sweeper {
	s := &sweeper{
		engine:   e,
		interval: interval,
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.done:
			return
		}
	}
}

func (s *sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	evicted, err := s.engine.store.SweepExpired(ctx, s.engine.now())
	if err != nil || evicted == 0 {
		return
	}

	s.engine.metrics.Add(MetricSweepEvicted, uint64(evicted))
	s.engine.emitAudit(ctx, auditEventSweepEvicted, true, "", "", "", purposeCount, nil, func() map[string]string {
		return map[string]string{
			"evicted": strconv.Itoa(evicted),
		}
	})
}

// Close stops the sweep loop and waits for an in-flight sweep to finish.
func (s *sweeper) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
