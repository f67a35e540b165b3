package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds issue limiter tuning parameters.
type Config struct {
	EnableKeyThrottle bool
	EnableIPThrottle  bool
	MaxIssues         int
	Cooldown          time.Duration
}

// Limiter enforces per-key and per-IP issuance budgets using Redis
// counters. It bounds code dispatch volume independently of the
// per-challenge resend cooldown, which protects a single mailbox but
// not the mail backend as a whole.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates an issue [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckIssue checks whether the key+IP pair is within the issuance
// budget. Returns an error if rate-limited.
func (l *Limiter) CheckIssue(ctx context.Context, key, ip string) error {
	if l.config.EnableKeyThrottle && key != "" {
		if err := l.checkCounter(ctx, issueKeyKey(key), l.config.MaxIssues); err != nil {
			return err
		}
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, issueIPKey(ip), l.config.MaxIssues); err != nil {
			return err
		}
	}

	return nil
}

// IncrementIssue records a code dispatch for the key+IP pair.
func (l *Limiter) IncrementIssue(ctx context.Context, key, ip string) error {
	if l.config.EnableKeyThrottle && key != "" {
		count, err := l.incrementWithTTL(ctx, issueKeyKey(key), l.config.Cooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxIssues) {
			return ErrRateLimited
		}
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err := l.incrementWithTTL(ctx, issueIPKey(ip), l.config.Cooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxIssues) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetIssue clears the issuance counter for the key. Called after a
// challenge is consumed so a completed flow does not starve the next one.
func (l *Limiter) ResetIssue(ctx context.Context, key string) error {
	if !l.config.EnableKeyThrottle || key == "" {
		return nil
	}

	if err := l.redis.Del(ctx, issueKeyKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetIssueCount returns the current issuance counter for a key.
// Missing keys return zero and do not reveal challenge existence.
func (l *Limiter) GetIssueCount(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, issueKeyKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxIssues int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxIssues) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func issueKeyKey(key string) string {
	return "vik:" + key
}

func issueIPKey(ip string) string {
	return "vip:" + ip
}
