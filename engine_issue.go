package goVerify

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/MrEthical07/goVerify/internal"
	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/google/uuid"
)

// Issue creates a fresh challenge for the key and dispatches its code.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Issue(ctx context.Context, purpose Purpose, key string, subject Subject) (IssueReceipt, error) {
	if e == nil || e.store == nil || e.mailer == nil {
		return IssueReceipt{}, ErrEngineNotReady
	}

	policy, err := e.policy(purpose)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, subject.Ref, key, "", purpose, err, nil)
		return IssueReceipt{}, err
	}

	key = normalizeKey(key)
	if !validKey(key) {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, subject.Ref, "", "", purpose, ErrKeyInvalid, nil)
		return IssueReceipt{}, ErrKeyInvalid
	}

	if subject.Ref == "" {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, "", key, "", purpose, ErrSubjectRequired, nil)
		return IssueReceipt{}, ErrSubjectRequired
	}

	if err := e.checkIssueThrottle(ctx, key); err != nil {
		e.metricInc(MetricIssueRateLimited)
		e.emitAudit(ctx, auditEventIssueRateLimited, false, subject.Ref, key, "", purpose, err, nil)
		return IssueReceipt{}, err
	}

	if err := e.checkCooldown(ctx, key, policy); err != nil {
		e.metricInc(MetricIssueCooldown)
		e.emitAudit(ctx, auditEventIssueCooldown, false, subject.Ref, key, "", purpose, err, nil)
		return IssueReceipt{}, err
	}

	ch := Challenge{
		Handle:      uuid.NewString(),
		Key:         key,
		Purpose:     purpose,
		IssuedAt:    e.now(),
		SubjectRef:  subject.Ref,
		DisplayName: subject.DisplayName,
	}

	receipt, err := e.placeAndDispatch(ctx, ch, policy)
	if err != nil {
		return IssueReceipt{}, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssueSuccess, true, ch.SubjectRef, key, ch.Handle, purpose, nil, nil)

	return receipt, nil
}

// Resend replaces the live challenge's code for the key and dispatches the
// new one. The handle stays stable so in-flight clients keep working; the
// attempt counter and verified flag reset with the code. The same cooldown
// applies as for Issue.
func (e *Engine) Resend(ctx context.Context, purpose Purpose, key string) (IssueReceipt, error) {
	if e == nil || e.store == nil || e.mailer == nil {
		return IssueReceipt{}, ErrEngineNotReady
	}

	policy, err := e.policy(purpose)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, "", key, "", purpose, err, nil)
		return IssueReceipt{}, err
	}

	key = normalizeKey(key)
	if !validKey(key) {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, "", "", "", purpose, ErrKeyInvalid, nil)
		return IssueReceipt{}, ErrKeyInvalid
	}

	if err := e.checkIssueThrottle(ctx, key); err != nil {
		e.metricInc(MetricIssueRateLimited)
		e.emitAudit(ctx, auditEventIssueRateLimited, false, "", key, "", purpose, err, nil)
		return IssueReceipt{}, err
	}

	handle, err := e.store.HandleForKey(ctx, key)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, "", key, "", purpose, err, nil)
		return IssueReceipt{}, err
	}

	existing, err := e.store.Get(ctx, handle)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, "", key, handle, purpose, err, nil)
		return IssueReceipt{}, err
	}

	if existing.Purpose != purpose {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, "", key, handle, purpose, ErrChallengeNotFound, nil)
		return IssueReceipt{}, ErrChallengeNotFound
	}

	if remaining := policy.ResendCooldown - e.now().Sub(existing.IssuedAt); remaining > 0 {
		cooldownErr := &CooldownError{RetryAfter: remaining}
		e.metricInc(MetricIssueCooldown)
		e.emitAudit(ctx, auditEventIssueCooldown, false, existing.SubjectRef, key, handle, purpose, cooldownErr, nil)
		return IssueReceipt{}, cooldownErr
	}

	ch := Challenge{
		Handle:      existing.Handle,
		Key:         key,
		Purpose:     purpose,
		IssuedAt:    e.now(),
		SubjectRef:  existing.SubjectRef,
		DisplayName: existing.DisplayName,
	}

	receipt, err := e.placeAndDispatch(ctx, ch, policy)
	if err != nil {
		return IssueReceipt{}, err
	}

	e.metricInc(MetricResendSuccess)
	e.emitAudit(ctx, auditEventResendSuccess, true, ch.SubjectRef, key, ch.Handle, purpose, nil, nil)

	return receipt, nil
}

// ResendByHandle rotates the code for the challenge identified by its
// correlation handle. This is the entry point for clients that only hold
// the handle from an earlier issue receipt; it resolves key and purpose
// from the stored challenge and then behaves exactly like [Engine.Resend].
func (e *Engine) ResendByHandle(ctx context.Context, handle string) (IssueReceipt, error) {
	if e == nil || e.store == nil || e.mailer == nil {
		return IssueReceipt{}, ErrEngineNotReady
	}

	ch, err := e.store.Get(ctx, handle)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, "", "", handle, purposeCount, err, nil)
		return IssueReceipt{}, err
	}

	return e.Resend(ctx, ch.Purpose, ch.Key)
}

// placeAndDispatch hashes a fresh code, stores the challenge, then sends
// the mail. A failed dispatch rolls the store write back so the caller can
// re-issue immediately instead of waiting out a cooldown for a code that
// never arrived.
func (e *Engine) placeAndDispatch(ctx context.Context, ch Challenge, policy PurposePolicy) (IssueReceipt, error) {
	code, err := internal.NewNumericCode(e.config.Code.Digits)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, ch.SubjectRef, ch.Key, ch.Handle, ch.Purpose, err, nil)
		return IssueReceipt{}, err
	}

	// Hashing runs before the store write; nothing holds a lock here.
	ch.CodeHash, err = e.codeHash.HashSecret(code)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, ch.SubjectRef, ch.Key, ch.Handle, ch.Purpose, err, nil)
		return IssueReceipt{}, err
	}

	if err := e.store.Put(ctx, ch, retention(policy)); err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, ch.SubjectRef, ch.Key, ch.Handle, ch.Purpose, err, nil)
		return IssueReceipt{}, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementIssue(ctx, ch.Key, clientIPFromContext(ctx)); err != nil {
			_ = e.store.Delete(ctx, ch.Handle)
			e.metricInc(MetricIssueRateLimited)
			e.emitAudit(ctx, auditEventIssueRateLimited, false, ch.SubjectRef, ch.Key, ch.Handle, ch.Purpose, ErrIssueRateLimited, nil)
			return IssueReceipt{}, ErrIssueRateLimited
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.config.Mail.SendTimeout)
	err = e.mailer.Send(sendCtx, ch.Key, policy.Template, MailData{
		Code:        code,
		DisplayName: ch.DisplayName,
		ExpiresIn:   policy.VerifyWindow,
	})
	cancel()
	code = ""
	if err != nil {
		// Roll back so the key is immediately re-issuable.
		_ = e.store.Delete(ctx, ch.Handle)
		e.metricInc(MetricMailDispatchFailure)
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventMailDispatchFailure, false, ch.SubjectRef, ch.Key, ch.Handle, ch.Purpose, ErrMailDispatchFailed, nil)
		return IssueReceipt{}, ErrMailDispatchFailed
	}

	return IssueReceipt{
		Handle:   ch.Handle,
		Purpose:  ch.Purpose,
		IssuedAt: ch.IssuedAt,
	}, nil
}

func (e *Engine) checkIssueThrottle(ctx context.Context, key string) error {
	if e.rateLimiter == nil {
		return nil
	}

	err := e.rateLimiter.CheckIssue(ctx, key, clientIPFromContext(ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrIssueRateLimited
	}
	return ErrStoreUnavailable
}

// checkCooldown rejects a fresh issuance while the live challenge for the
// key is still inside its resend cooldown.
func (e *Engine) checkCooldown(ctx context.Context, key string, policy PurposePolicy) error {
	handle, err := e.store.HandleForKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return nil
		}
		return err
	}

	existing, err := e.store.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return nil
		}
		return err
	}

	if remaining := policy.ResendCooldown - e.now().Sub(existing.IssuedAt); remaining > 0 {
		return &CooldownError{RetryAfter: remaining}
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// validKey accepts a bare RFC 5322 address with a dotted domain. Display
// names and address lists are rejected: the key doubles as the mail
// recipient and the store index, so it must be one canonical address.
func validKey(key string) bool {
	if key == "" || len(key) > 254 {
		return false
	}

	addr, err := mail.ParseAddress(key)
	if err != nil || addr.Address != key {
		return false
	}

	at := strings.LastIndexByte(key, '@')
	if at < 0 || !strings.Contains(key[at+1:], ".") {
		return false
	}
	return true
}
