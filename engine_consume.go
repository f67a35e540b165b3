package goVerify

import (
	"context"
)

// ConfirmRegistration consumes a verified registration challenge by marking
// the subject's email address as confirmed.
//
// The challenge is deleted only after the account call succeeds; a failing
// backend leaves the verified challenge intact so the caller can retry
// without forcing the user back through a code round-trip.
func (e *Engine) ConfirmRegistration(ctx context.Context, handle string) error {
	ch, err := e.consumable(ctx, handle, PurposeRegistration)
	if err != nil {
		e.metricInc(MetricConsumeFailure)
		e.emitAudit(ctx, auditEventConsumeFailure, false, "", "", handle, PurposeRegistration, err, nil)
		return err
	}

	if err := e.accounts.MarkEmailVerified(ctx, ch.SubjectRef); err != nil {
		e.metricInc(MetricConsumeFailure)
		e.emitAudit(ctx, auditEventConsumeFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, ErrAccountBackendFailed, nil)
		return ErrAccountBackendFailed
	}

	e.finishConsume(ctx, ch)
	e.emitAudit(ctx, auditEventRegistrationConfirmed, true, ch.SubjectRef, ch.Key, handle, ch.Purpose, nil, nil)

	return nil
}

// ResetPassword consumes a verified recovery challenge by replacing the
// subject's password hash.
//
// The plaintext password only exists long enough to be hashed; the account
// backend receives the PHC-encoded argon2id hash. As with registration, a
// failing backend leaves the verified challenge intact.
func (e *Engine) ResetPassword(ctx context.Context, handle string, newPassword string) error {
	ch, err := e.consumable(ctx, handle, PurposeRecovery)
	if err != nil {
		e.metricInc(MetricConsumeFailure)
		e.emitAudit(ctx, auditEventConsumeFailure, false, "", "", handle, PurposeRecovery, err, nil)
		return err
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricConsumeFailure)
		e.emitAudit(ctx, auditEventConsumeFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, ErrPasswordPolicy, nil)
		return ErrPasswordPolicy
	}
	newPassword = ""

	if err := e.accounts.SetPasswordHash(ctx, ch.SubjectRef, hash); err != nil {
		e.metricInc(MetricConsumeFailure)
		e.emitAudit(ctx, auditEventConsumeFailure, false, ch.SubjectRef, ch.Key, handle, ch.Purpose, ErrAccountBackendFailed, nil)
		return ErrAccountBackendFailed
	}

	e.finishConsume(ctx, ch)
	e.emitAudit(ctx, auditEventPasswordReset, true, ch.SubjectRef, ch.Key, handle, ch.Purpose, nil, nil)

	return nil
}

// consumable loads the challenge and gates consumption: the purpose must
// match, the code must have been verified, and the consume window must
// still be open. A purpose mismatch reports not-found so a handle minted
// for one flow reveals nothing when probed through the other.
func (e *Engine) consumable(ctx context.Context, handle string, purpose Purpose) (Challenge, error) {
	if e == nil || e.store == nil || e.accounts == nil {
		return Challenge{}, ErrEngineNotReady
	}

	ch, err := e.store.Get(ctx, handle)
	if err != nil {
		return Challenge{}, err
	}

	if ch.Purpose != purpose {
		return Challenge{}, ErrChallengeNotFound
	}

	policy, err := e.policy(purpose)
	if err != nil {
		return Challenge{}, err
	}

	if e.now().After(ch.IssuedAt.Add(policy.ConsumeWindow)) {
		_ = e.store.Delete(ctx, handle)
		return Challenge{}, ErrChallengeExpired
	}

	if !ch.Verified {
		return Challenge{}, ErrNotVerified
	}

	return ch, nil
}

// finishConsume removes the spent challenge and clears the key's issuance
// counter; both are best-effort once the account mutation has committed.
func (e *Engine) finishConsume(ctx context.Context, ch Challenge) {
	_ = e.store.Delete(ctx, ch.Handle)
	if e.rateLimiter != nil {
		_ = e.rateLimiter.ResetIssue(ctx, ch.Key)
	}
	e.metricInc(MetricConsumeSuccess)
}
