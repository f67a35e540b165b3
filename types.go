package goVerify

import (
	"context"
	"time"
)

// Purpose defines a public type used by goVerify APIs.
//
// Purpose selects which policy table entry (windows, cooldown, attempt cap,
// mail template) and which consuming collaborator call governs a challenge.
type Purpose uint8

const (
	// PurposeRegistration is an exported constant or variable used by the verification engine.
	PurposeRegistration Purpose = iota
	// PurposeRecovery is an exported constant or variable used by the verification engine.
	PurposeRecovery
	purposeCount
)

// String describes the string operation and its observable behavior.
func (p Purpose) String() string {
	switch p {
	case PurposeRegistration:
		return "registration"
	case PurposeRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}

func (p Purpose) valid() bool {
	return p < purposeCount
}

// Subject identifies the account a challenge acts on once consumed.
// Ref is the opaque reference handed back to [AccountProvider]; the engine
// never interprets it. DisplayName is only used to address the recipient in
// outbound mail and may be empty.
type Subject struct {
	Ref         string
	DisplayName string
}

// MailTemplate defines a public type used by goVerify APIs.
//
// MailTemplate instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MailTemplate string

const (
	// TemplateRegistrationCode is an exported constant or variable used by the verification engine.
	TemplateRegistrationCode MailTemplate = "registration_code"
	// TemplateRecoveryCode is an exported constant or variable used by the verification engine.
	TemplateRecoveryCode MailTemplate = "recovery_code"
)

// MailData carries the template variables for a single code dispatch.
// Code is the plaintext secret; it exists only for the duration of the
// Send call and is never stored.
type MailData struct {
	Code        string
	DisplayName string
	ExpiresIn   time.Duration
}

// Mailer is the outbound delivery collaborator. Implementations render the
// named template and deliver it to the address; the engine treats any
// returned error (including context deadline) as a failed dispatch and
// rolls the issuance back.
type Mailer interface {
	Send(ctx context.Context, to string, template MailTemplate, data MailData) error
}

// AccountProvider is the account-mutation collaborator invoked exactly once
// per successful consumption. Implementations own their consistency
// guarantees; the engine never retries silently.
type AccountProvider interface {
	// MarkEmailVerified flags the referenced account's email as confirmed.
	MarkEmailVerified(ctx context.Context, subjectRef string) error

	// SetPasswordHash replaces the referenced account's password hash.
	// The hash is produced by the engine's argon2id primitive.
	SetPasswordHash(ctx context.Context, subjectRef string, passwordHash string) error
}

// IssueReceipt defines a public type used by goVerify APIs.
//
// IssueReceipt instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type IssueReceipt struct {
	Handle   string
	Purpose  Purpose
	IssuedAt time.Time
}

// ChallengeStatus is the diagnostic view returned by [Engine.Status].
type ChallengeStatus struct {
	Purpose           Purpose
	Verified          bool
	AttemptsRemaining int
	ExpiresIn         time.Duration
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
