// Package lock serialises logical-order mutations across server and CLI processes with Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grain-orders/internal/core"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix = "grain-orders:lock:"
	lockTTL   = 30 * time.Second
	waitFor   = 3 * time.Second
	retryStep = 100 * time.Millisecond
)

// Connect opens a Redis client and checks it answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisLocker implements core.Locker with redislock.
type RedisLocker struct {
	client *redislock.Client
	logger *logrus.Logger
}

var _ core.Locker = (*RedisLocker)(nil)

func NewRedisLocker(rdb *redis.Client, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), logger: logger}
}

// Lock retries for up to three seconds. A lock still held by someone else is reported as
// core.ErrRefused so callers can answer 409.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	obtainCtx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()

	lk, err := l.client.Obtain(obtainCtx, keyPrefix+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryStep),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s is being changed by another operation", core.ErrRefused, key)
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		// Released with a fresh context so a cancelled request still frees the key.
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.WithFields(logrus.Fields{"module": "lock", "key": key}).WithError(err).Warn("lock release failed")
		}
	}, nil
}
