package goVerify

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeRecordVersionV1 = 1

// RedisStore is the Redis-backed [ChallengeStore] for multi-process
// deployments. Records are stored under a versioned binary codec; the key
// index lives beside the record with the same TTL so both vanish together.
// Read-modify-write operations use WATCH transactions so concurrent callers
// against the same handle serialize on the server.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore describes the newredisstore operation and its observable behavior.
//
// NewRedisStore may return an error when input validation, dependency calls, or security checks fail.
// NewRedisStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisStore(redisClient *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "vch"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) handleKey(handle string) string {
	return s.prefix + ":h:" + handle
}

func (s *RedisStore) indexKey(key string) string {
	return s.prefix + ":k:" + key
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Put(ctx context.Context, ch Challenge, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(ch, time.Now().Add(ttl))
	if err != nil {
		return err
	}

	// A new issuance for the same key supersedes the old record.
	oldHandle, err := s.redis.Get(ctx, s.indexKey(ch.Key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if oldHandle != "" && oldHandle != ch.Handle {
			pipe.Del(ctx, s.handleKey(oldHandle))
		}
		pipe.Set(ctx, s.handleKey(ch.Handle), encoded, ttl)
		pipe.Set(ctx, s.indexKey(ch.Key), ch.Handle, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Get(ctx context.Context, handle string) (Challenge, error) {
	data, err := s.redis.Get(ctx, s.handleKey(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Challenge{}, ErrChallengeNotFound
		}
		return Challenge{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ch, _, err := decodeChallengeRecord(data)
	if err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

// HandleForKey describes the handleforkey operation and its observable behavior.
//
// HandleForKey may return an error when input validation, dependency calls, or security checks fail.
// HandleForKey does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) HandleForKey(ctx context.Context, key string) (string, error) {
	handle, err := s.redis.Get(ctx, s.indexKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return handle, nil
}

// RecordFailure describes the recordfailure operation and its observable behavior.
//
// RecordFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) RecordFailure(ctx context.Context, handle string, maxAttempts int) (int, error) {
	const maxRetries = 4
	key := s.handleKey(handle)

	for i := 0; i < maxRetries; i++ {
		var attempts int

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			ch, expiresAt, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}

			ch.Attempts++
			attempts = ch.Attempts

			if ch.Attempts >= maxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					pipe.Del(ctx, s.indexKey(ch.Key))
					return nil
				})
				if err != nil {
					return err
				}
				return ErrAttemptsExceeded
			}

			ttl := time.Until(expiresAt)
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					pipe.Del(ctx, s.indexKey(ch.Key))
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeNotFound
			}

			updated, err := encodeChallengeRecord(ch, expiresAt)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return 0, ErrChallengeNotFound
			case errors.Is(err, ErrChallengeNotFound), errors.Is(err, ErrAttemptsExceeded):
				return attempts, err
			default:
				return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}

		return attempts, nil
	}

	return 0, ErrChallengeNotFound
}

// MarkVerified describes the markverified operation and its observable behavior.
//
// MarkVerified may return an error when input validation, dependency calls, or security checks fail.
// MarkVerified does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) MarkVerified(ctx context.Context, handle string) (Challenge, error) {
	const maxRetries = 4
	key := s.handleKey(handle)

	for i := 0; i < maxRetries; i++ {
		var updated Challenge

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			ch, expiresAt, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}

			ttl := time.Until(expiresAt)
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					pipe.Del(ctx, s.indexKey(ch.Key))
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeNotFound
			}

			ch.Verified = true
			updated = ch

			encoded, err := encodeChallengeRecord(ch, expiresAt)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrChallengeNotFound):
				return Challenge{}, ErrChallengeNotFound
			default:
				return Challenge{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}

		return updated, nil
	}

	return Challenge{}, ErrChallengeNotFound
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Delete(ctx context.Context, handle string) error {
	data, err := s.redis.Get(ctx, s.handleKey(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ch, _, err := decodeChallengeRecord(data)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.handleKey(handle))
		pipe.Del(ctx, s.indexKey(ch.Key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// SweepExpired is a no-op for the Redis store: record and index keys carry
// TTLs, so the server evicts them without help.
func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

/*
====================================
BINARY CODEC
====================================
*/

func encodeChallengeRecord(ch Challenge, expiresAt time.Time) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)
	buf.WriteByte(byte(ch.Purpose))
	if ch.Verified {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, uint16(ch.Attempts)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, ch.IssuedAt.Unix()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, expiresAt.Unix()); err != nil {
		return nil, err
	}

	for _, field := range []string{ch.Handle, ch.Key, ch.CodeHash, ch.SubjectRef, ch.DisplayName} {
		if len(field) > 65535 {
			return nil, errors.New("challenge record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (Challenge, time.Time, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Challenge{}, time.Time{}, err
	}
	if version != challengeRecordVersionV1 {
		return Challenge{}, time.Time{}, errors.New("invalid challenge record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return Challenge{}, time.Time{}, err
	}
	verifiedByte, err := reader.ReadByte()
	if err != nil {
		return Challenge{}, time.Time{}, err
	}

	ch := Challenge{
		Purpose:  Purpose(purpose),
		Verified: verifiedByte == 1,
	}

	var attempts uint16
	if err := binary.Read(reader, binary.BigEndian, &attempts); err != nil {
		return Challenge{}, time.Time{}, err
	}
	ch.Attempts = int(attempts)

	var issuedUnix, expiresUnix int64
	if err := binary.Read(reader, binary.BigEndian, &issuedUnix); err != nil {
		return Challenge{}, time.Time{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresUnix); err != nil {
		return Challenge{}, time.Time{}, err
	}
	ch.IssuedAt = time.Unix(issuedUnix, 0)

	for _, target := range []*string{&ch.Handle, &ch.Key, &ch.CodeHash, &ch.SubjectRef, &ch.DisplayName} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return Challenge{}, time.Time{}, err
		}
		field := make([]byte, length)
		if _, err := io.ReadFull(reader, field); err != nil {
			return Challenge{}, time.Time{}, err
		}
		*target = string(field)
	}

	return ch, time.Unix(expiresUnix, 0), nil
}
