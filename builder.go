package goVerify

import (
	"errors"
	"time"

	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/MrEthical07/goVerify/password"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goVerify APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client
	store  ChallengeStore

	mailer   Mailer
	accounts AccountProvider

	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithStore overrides the challenge store. Without it the engine uses the
// Redis store when a client is configured, otherwise the in-memory store.
func (b *Builder) WithStore(store ChallengeStore) *Builder {
	b.store = store
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
//
// WithMailer may return an error when input validation, dependency calls, or security checks fail.
// WithMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAccounts describes the withaccounts operation and its observable behavior.
//
// WithAccounts may return an error when input validation, dependency calls, or security checks fail.
// WithAccounts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAccounts(ap AccountProvider) *Builder {
	b.accounts = ap
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the engine's time source. Intended for tests that
// need to move challenges across their windows without sleeping.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- CHALLENGE STORE --------
	store := b.store
	if store == nil {
		if b.redis != nil {
			store = NewRedisStore(b.redis, cfg.Store.RedisPrefix)
		} else {
			store = newMemoryStoreWithClock(clock)
		}
	}

	engine := &Engine{
		config: cloneConfig(cfg),
		store:  store,
		clock:  clock,
	}

	engine.mailer = b.mailer
	engine.accounts = b.accounts

	if b.redis != nil && (cfg.Throttle.EnableKeyThrottle || cfg.Throttle.EnableIPThrottle) {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableKeyThrottle: cfg.Throttle.EnableKeyThrottle,
			EnableIPThrottle:  cfg.Throttle.EnableIPThrottle,
			MaxIssues:         cfg.Throttle.MaxIssues,
			Cooldown:          cfg.Throttle.Cooldown,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	ch, err := password.NewArgon2(password.Config{
		Memory:      cfg.CodeHash.Memory,
		Time:        cfg.CodeHash.Time,
		Parallelism: cfg.CodeHash.Parallelism,
		SaltLength:  cfg.CodeHash.SaltLength,
		KeyLength:   cfg.CodeHash.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.codeHash = ch

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	if cfg.Sweep.Enabled {
		engine.sweeper = newSweeper(engine, cfg.Sweep.Interval)
	}

	b.built = true

	return engine, nil
}
