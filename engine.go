package goVerify

import (
	"time"

	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/MrEthical07/goVerify/password"
)

// Engine defines a public type used by goVerify APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	store        ChallengeStore
	mailer       Mailer
	accounts     AccountProvider
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	codeHash     *password.Argon2
	passwordHash *password.Argon2
	sweeper      *sweeper
	clock        func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sweeper != nil {
		e.sweeper.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

// policy resolves the purpose's policy table entry.
func (e *Engine) policy(p Purpose) (PurposePolicy, error) {
	policy, ok := e.config.Purposes[p]
	if !ok {
		return PurposePolicy{}, ErrPurposeUnknown
	}
	return policy, nil
}

// retention is how long a record stays in the store: long enough to cover
// the consume window, after which nothing can legally read it.
func retention(policy PurposePolicy) time.Duration {
	if policy.ConsumeWindow > policy.VerifyWindow {
		return policy.ConsumeWindow
	}
	return policy.VerifyWindow
}
