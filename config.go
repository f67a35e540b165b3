package goVerify

import (
	"errors"
	"time"
)

// Config defines a public type used by goVerify APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Purposes map[Purpose]PurposePolicy
	Code     CodeConfig
	CodeHash CodeHashConfig
	Password PasswordConfig
	Mail     MailConfig
	Sweep    SweepConfig
	Store    StoreConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
PURPOSE POLICY
====================================
*/

// PurposePolicy defines a public type used by goVerify APIs.
//
// PurposePolicy is the per-purpose policy table entry: the two flows differ
// only in these values and in the consuming collaborator call, so the policy
// is data, not duplicated code.
type PurposePolicy struct {
	// VerifyWindow bounds how long after issuance a code may still be
	// verified.
	VerifyWindow time.Duration

	// ConsumeWindow bounds how long after issuance a verified challenge
	// may still be consumed. It is a named value per purpose; the engine
	// never infers it from VerifyWindow.
	ConsumeWindow time.Duration

	// ResendCooldown is the minimum gap between two code dispatches for
	// the same key.
	ResendCooldown time.Duration

	// MaxAttempts is the failed-comparison budget; reaching it deletes
	// the challenge.
	MaxAttempts int

	// Template names the mail template used for this purpose.
	Template MailTemplate
}

// CodeConfig defines a public type used by goVerify APIs.
//
// CodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeConfig struct {
	Digits int
}

// CodeHashConfig defines a public type used by goVerify APIs.
//
// CodeHashConfig holds argon2id parameters for hashing the short numeric
// secret. Cheaper than the password parameters by default; still adaptive.
type CodeHashConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordConfig defines a public type used by goVerify APIs.
//
// PasswordConfig holds argon2id parameters for hashing the replacement
// password during recovery consumption.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// MailConfig defines a public type used by goVerify APIs.
//
// MailConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MailConfig struct {
	// SendTimeout bounds each outbound dispatch. A timeout counts as a
	// failed dispatch and rolls the issuance back.
	SendTimeout time.Duration
}

// SweepConfig defines a public type used by goVerify APIs.
//
// SweepConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
}

// StoreConfig defines a public type used by goVerify APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	RedisPrefix string
}

// ThrottleConfig defines a public type used by goVerify APIs.
//
// ThrottleConfig tunes the Redis-backed issue throttle, which caps how many
// issuances a single key or client IP may trigger inside a cooldown window
// regardless of per-challenge state. Active only when a Redis client is
// configured.
type ThrottleConfig struct {
	EnableKeyThrottle bool
	EnableIPThrottle  bool
	MaxIssues         int
	Cooldown          time.Duration
}

// AuditConfig defines a public type used by goVerify APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goVerify APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: two purposes
// (registration and recovery) with 6-digit codes, a 10-minute verify window,
// a 60-second resend cooldown, and a 3-attempt budget.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Purposes: map[Purpose]PurposePolicy{
			PurposeRegistration: {
				VerifyWindow:   10 * time.Minute,
				ConsumeWindow:  10 * time.Minute,
				ResendCooldown: 60 * time.Second,
				MaxAttempts:    3,
				Template:       TemplateRegistrationCode,
			},
			PurposeRecovery: {
				VerifyWindow:   10 * time.Minute,
				ConsumeWindow:  15 * time.Minute,
				ResendCooldown: 60 * time.Second,
				MaxAttempts:    3,
				Template:       TemplateRecoveryCode,
			},
		},
		Code: CodeConfig{
			Digits: 6,
		},
		CodeHash: CodeHashConfig{
			Memory:      16 * 1024,
			Time:        2,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Mail: MailConfig{
			SendTimeout: 10 * time.Second,
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		Store: StoreConfig{
			RedisPrefix: "vch",
		},
		Throttle: ThrottleConfig{
			EnableKeyThrottle: true,
			EnableIPThrottle:  true,
			MaxIssues:         10,
			Cooldown:          15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Purposes != nil {
		out.Purposes = make(map[Purpose]PurposePolicy, len(cfg.Purposes))
		for p, policy := range cfg.Purposes {
			out.Purposes[p] = policy
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Purposes
	if len(c.Purposes) == 0 {
		return errors.New("Purposes policy table must not be empty")
	}
	for p, policy := range c.Purposes {
		if !p.valid() {
			return errors.New("Purposes contains an unknown purpose")
		}
		if policy.VerifyWindow <= 0 {
			return errors.New("PurposePolicy VerifyWindow must be > 0")
		}
		if policy.ConsumeWindow < policy.VerifyWindow {
			return errors.New("PurposePolicy ConsumeWindow must be >= VerifyWindow")
		}
		if policy.ResendCooldown <= 0 {
			return errors.New("PurposePolicy ResendCooldown must be > 0")
		}
		if policy.ResendCooldown >= policy.VerifyWindow {
			return errors.New("PurposePolicy ResendCooldown must be < VerifyWindow")
		}
		if policy.MaxAttempts <= 0 {
			return errors.New("PurposePolicy MaxAttempts must be > 0")
		}
		if policy.MaxAttempts > 5 {
			return errors.New("PurposePolicy MaxAttempts must be <= 5 for a numeric code space")
		}
		if policy.Template == "" {
			return errors.New("PurposePolicy Template must be set")
		}
	}

	// Code
	if c.Code.Digits < 6 || c.Code.Digits > 10 {
		return errors.New("Code Digits must be between 6 and 10")
	}

	// Hashing
	if c.CodeHash.Memory < 8*1024 {
		return errors.New("CodeHash Memory must be >= 8192 KB")
	}
	if c.CodeHash.Time < 1 {
		return errors.New("CodeHash Time must be >= 1")
	}
	if c.CodeHash.Parallelism < 1 {
		return errors.New("CodeHash Parallelism must be >= 1")
	}
	if c.CodeHash.SaltLength < 16 {
		return errors.New("CodeHash SaltLength must be >= 16")
	}
	if c.CodeHash.KeyLength < 16 {
		return errors.New("CodeHash KeyLength must be >= 16")
	}
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Mail
	if c.Mail.SendTimeout <= 0 {
		return errors.New("Mail SendTimeout must be > 0")
	}

	// Sweep
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return errors.New("Sweep Interval must be > 0 when Sweep is enabled")
	}

	// Throttle
	if c.Throttle.EnableKeyThrottle || c.Throttle.EnableIPThrottle {
		if c.Throttle.MaxIssues <= 0 {
			return errors.New("Throttle MaxIssues must be > 0")
		}
		if c.Throttle.Cooldown <= 0 {
			return errors.New("Throttle Cooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
