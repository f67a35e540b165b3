package goVerify

import (
	"context"
)

// Status reports the diagnostic view of a live challenge: its purpose,
// whether the code has been verified, the remaining attempt budget, and how
// long the current window stays open. For an unverified challenge that is
// the verify window; once verified it is the consume window.
//
// Status never reveals the code or its hash and reports an expired
// challenge exactly like a missing one.
func (e *Engine) Status(ctx context.Context, handle string) (ChallengeStatus, error) {
	if e == nil || e.store == nil {
		return ChallengeStatus{}, ErrEngineNotReady
	}

	ch, err := e.store.Get(ctx, handle)
	if err != nil {
		return ChallengeStatus{}, err
	}

	policy, err := e.policy(ch.Purpose)
	if err != nil {
		return ChallengeStatus{}, err
	}

	deadline := ch.IssuedAt.Add(policy.VerifyWindow)
	if ch.Verified {
		deadline = ch.IssuedAt.Add(policy.ConsumeWindow)
	}

	remaining := deadline.Sub(e.now())
	if remaining <= 0 {
		_ = e.store.Delete(ctx, handle)
		return ChallengeStatus{}, ErrChallengeNotFound
	}

	attemptsRemaining := policy.MaxAttempts - ch.Attempts
	if attemptsRemaining < 0 {
		attemptsRemaining = 0
	}

	return ChallengeStatus{
		Purpose:           ch.Purpose,
		Verified:          ch.Verified,
		AttemptsRemaining: attemptsRemaining,
		ExpiresIn:         remaining,
	}, nil
}
