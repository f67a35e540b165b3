package goVerify

import (
	"context"
	"errors"
)

const (
	auditEventIssueSuccess          = "code_issue_success"
	auditEventIssueFailure          = "code_issue_failure"
	auditEventIssueCooldown         = "code_issue_cooldown"
	auditEventIssueRateLimited      = "code_issue_rate_limited"
	auditEventResendSuccess         = "code_resend_success"
	auditEventMailDispatchFailure   = "mail_dispatch_failure"
	auditEventVerifySuccess         = "code_verify_success"
	auditEventVerifyFailure         = "code_verify_failure"
	auditEventVerifyAttemptsExhaust = "code_verify_attempts_exceeded"
	auditEventRegistrationConfirmed = "registration_confirmed"
	auditEventPasswordReset         = "password_reset"
	auditEventConsumeFailure        = "consume_failure"
	auditEventSweepEvicted          = "sweep_evicted"
)

// AuditErrorCode defines a public type used by goVerify APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrKeyInvalid       AuditErrorCode = "key_invalid"
	auditErrCodeMalformed    AuditErrorCode = "code_malformed"
	auditErrPurposeUnknown   AuditErrorCode = "purpose_unknown"
	auditErrSubjectRequired  AuditErrorCode = "subject_required"
	auditErrCooldown         AuditErrorCode = "cooldown_active"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrNotFound         AuditErrorCode = "challenge_not_found"
	auditErrExpired          AuditErrorCode = "challenge_expired"
	auditErrCodeMismatch     AuditErrorCode = "code_mismatch"
	auditErrAttemptsExceeded AuditErrorCode = "attempts_exceeded"
	auditErrNotVerified      AuditErrorCode = "not_verified"
	auditErrMailDispatch     AuditErrorCode = "mail_dispatch_failed"
	auditErrAccountBackend   AuditErrorCode = "account_backend_failed"
	auditErrPasswordPolicy   AuditErrorCode = "password_policy"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectRef string,
	key string,
	handle string,
	purpose Purpose,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		EventType:  eventType,
		SubjectRef: subjectRef,
		Key:        key,
		Handle:     handle,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if purpose.valid() {
		event.Purpose = purpose.String()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrKeyInvalid):
		return auditErrKeyInvalid
	case errors.Is(err, ErrCodeMalformed):
		return auditErrCodeMalformed
	case errors.Is(err, ErrPurposeUnknown):
		return auditErrPurposeUnknown
	case errors.Is(err, ErrSubjectRequired):
		return auditErrSubjectRequired
	case errors.Is(err, ErrIssueCooldown):
		return auditErrCooldown
	case errors.Is(err, ErrIssueRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrChallengeNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrChallengeExpired):
		return auditErrExpired
	case errors.Is(err, ErrCodeMismatch):
		return auditErrCodeMismatch
	case errors.Is(err, ErrAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrNotVerified):
		return auditErrNotVerified
	case errors.Is(err, ErrMailDispatchFailed):
		return auditErrMailDispatch
	case errors.Is(err, ErrAccountBackendFailed):
		return auditErrAccountBackend
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	default:
		return auditErrInternal
	}
}
