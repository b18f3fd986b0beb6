// Package lock serializes footprint writes per (company, period) key.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"ghg-footprint-backend/internal/application/footprint"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "lock:"
	defaultTTL     = 30 * time.Second
	defaultBackoff = 100 * time.Millisecond
	defaultRetries = 5
)

// RedisLocker obtains distributed locks with bsm/redislock. A busy key is
// retried a few times before giving up with footprint.ErrLockNotObtained.
type RedisLocker struct {
	client  *redislock.Client
	TTL     time.Duration
	Backoff time.Duration
	Retries int
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{
		client:  redislock.New(rdb),
		TTL:     ttl,
		Backoff: defaultBackoff,
		Retries: defaultRetries,
	}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	lk, err := l.client.Obtain(ctx, keyPrefix+key, l.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.Backoff), l.Retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, footprint.ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// LocalLocker is the in-process fallback used when Redis is not configured.
// It only serializes writers within one process.
type LocalLocker struct {
	mu      sync.Mutex
	held    map[string]struct{}
	Wait    time.Duration
	Backoff time.Duration
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held:    map[string]struct{}{},
		Wait:    defaultBackoff * defaultRetries,
		Backoff: defaultBackoff,
	}
}

func (l *LocalLocker) tryObtain(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

func (l *LocalLocker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	deadline := time.Now().Add(l.Wait)
	for !l.tryObtain(key) {
		if !time.Now().Before(deadline) {
			return nil, footprint.ErrLockNotObtained
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Backoff):
		}
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
