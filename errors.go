package goVerify

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrKeyInvalid is an exported constant or variable used by the verification engine.
	ErrKeyInvalid = errors.New("challenge key is not a valid email address")
	// ErrCodeMalformed is an exported constant or variable used by the verification engine.
	ErrCodeMalformed = errors.New("verification code is not a valid numeric code")
	// ErrPurposeUnknown is an exported constant or variable used by the verification engine.
	ErrPurposeUnknown = errors.New("unknown challenge purpose")
	// ErrSubjectRequired is an exported constant or variable used by the verification engine.
	ErrSubjectRequired = errors.New("subject reference required for this purpose")
	// ErrIssueCooldown is an exported constant or variable used by the verification engine.
	ErrIssueCooldown = errors.New("issue cooldown active")
	// ErrIssueRateLimited is an exported constant or variable used by the verification engine.
	ErrIssueRateLimited = errors.New("issue rate limited")
	// ErrChallengeNotFound is an exported constant or variable used by the verification engine.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeExpired is an exported constant or variable used by the verification engine.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrCodeMismatch is an exported constant or variable used by the verification engine.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrAttemptsExceeded is an exported constant or variable used by the verification engine.
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrNotVerified is an exported constant or variable used by the verification engine.
	ErrNotVerified = errors.New("challenge not verified")
	// ErrMailDispatchFailed is an exported constant or variable used by the verification engine.
	ErrMailDispatchFailed = errors.New("mail dispatch failed")
	// ErrAccountBackendFailed is an exported constant or variable used by the verification engine.
	ErrAccountBackendFailed = errors.New("account backend failure")
	// ErrPasswordPolicy is an exported constant or variable used by the verification engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrStoreUnavailable is an exported constant or variable used by the verification engine.
	ErrStoreUnavailable = errors.New("challenge store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the verification engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// CooldownError reports an issuance rejected because the previous code for
// the same challenge was sent too recently. RetryAfter is the remaining
// wait, rounded up to whole seconds so a client can surface it directly.
//
// CooldownError unwraps to [ErrIssueCooldown].
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("issue cooldown active: retry after %ds", int(e.RetryAfter.Seconds()))
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *CooldownError) Unwrap() error { return ErrIssueCooldown }

// RetryAfterSeconds returns the remaining cooldown in whole seconds,
// always at least 1 while the cooldown is active.
func (e *CooldownError) RetryAfterSeconds() int {
	s := int((e.RetryAfter + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// MismatchError reports a failed code comparison together with the number
// of attempts the caller has left before the challenge is invalidated.
//
// MismatchError unwraps to [ErrCodeMismatch].
type MismatchError struct {
	RemainingAttempts int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verification code mismatch: %d attempts remaining", e.RemainingAttempts)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *MismatchError) Unwrap() error { return ErrCodeMismatch }
