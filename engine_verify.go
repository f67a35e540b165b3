package goVerify

import (
	"context"
	"errors"
	"time"
)

// Verify compares a submitted code against the challenge's stored hash.
//
// A correct code marks the challenge verified; re-verifying an
// already-verified challenge succeeds without touching the attempt counter.
// A wrong code burns one attempt and returns a [MismatchError] carrying the
// remaining budget; the attempt that exhausts the budget deletes the
// challenge and returns ErrAttemptsExceeded, and any later call reports
// ErrChallengeNotFound.
func (e *Engine) Verify(ctx context.Context, handle string, code string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		// The elapsed time must be taken when the deferred call runs, not
		// when it is registered, so the closure is required here.
		defer func() { e.metrics.Observe(MetricVerifyLatency, time.Since(start)) }()
	}

	if len(code) != e.config.Code.Digits || !isNumericString(code) {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", "", handle, purposeCount, ErrCodeMalformed, nil)
		return ErrCodeMalformed
	}

	ch, err := e.store.Get(ctx, handle)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", "", handle, purposeCount, err, nil)
		return err
	}

	policy, err := e.policy(ch.Purpose)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, err, nil)
		return err
	}

	if e.now().After(ch.IssuedAt.Add(policy.VerifyWindow)) {
		_ = e.store.Delete(ctx, handle)
		e.metricInc(MetricVerifyExpired)
		e.emitAudit(ctx, auditEventVerifyFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, ErrChallengeExpired, nil)
		return ErrChallengeExpired
	}

	if ch.Verified {
		return nil
	}

	// The argon2 comparison is the expensive part of this path; it runs on
	// a read copy so the store is never blocked behind it.
	ok, err := e.codeHash.VerifySecret(code, ch.CodeHash)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, err, nil)
		return err
	}

	if !ok {
		attempts, recErr := e.store.RecordFailure(ctx, handle, policy.MaxAttempts)
		if recErr != nil {
			if errors.Is(recErr, ErrAttemptsExceeded) {
				e.metricInc(MetricVerifyAttemptsExceeded)
				e.emitAudit(ctx, auditEventVerifyAttemptsExhaust, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, ErrAttemptsExceeded, nil)
				return ErrAttemptsExceeded
			}
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, recErr, nil)
			return recErr
		}

		mismatchErr := &MismatchError{RemainingAttempts: policy.MaxAttempts - attempts}
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, mismatchErr, nil)
		return mismatchErr
	}

	if _, err := e.store.MarkVerified(ctx, handle); err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, err, nil)
		return err
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, ch.SubjectRef, ch.Key, handle, ch.Purpose, nil, nil)

	return nil
}
