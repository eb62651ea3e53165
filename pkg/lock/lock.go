// Package lock provides Redis-backed mutual exclusion shared by the cron
// runner and the price-list importer.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// A holder that dies without releasing frees the key after this long.
const defaultTTL = 25 * time.Hour

var (
	errNoStore = errors.New("lock: redis store is required")
	errNoKey   = errors.New("lock: key is required")
)

// Lock coordinates exclusive access to one key.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Store is the subset of the redis client a lock talks to.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock stores a random owner token under key with SET NX.
type RedisLock struct {
	client Store
	key    string
	ttl    time.Duration
	token  string
}

func NewRedisLock(client Store, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case client == nil:
		return nil, errNoStore
	case key == "":
		return nil, errNoKey
	}
	return &RedisLock{client: client, key: key, ttl: ttlOrDefault(ttl)}, nil
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return defaultTTL
}

// Acquire reports false without error when another holder owns the key.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release deletes the key only while it still carries our token, so a
// holder whose TTL ran out cannot drop a successor's lock.
func (l *RedisLock) Release(ctx context.Context) error {
	token := l.token
	if token == "" {
		return nil
	}
	l.token = ""

	current, err := l.client.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("unlock %s: read owner: %w", l.key, err)
	case current != token:
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("unlock %s: %w", l.key, err)
	}
	return nil
}

// Factory hands out one lock per key over a shared store.
type Factory struct {
	client Store
	ttl    time.Duration
}

func NewFactory(client Store, ttl time.Duration) (*Factory, error) {
	if client == nil {
		return nil, errNoStore
	}
	return &Factory{client: client, ttl: ttl}, nil
}

func (f *Factory) For(key string) (Lock, error) {
	return NewRedisLock(f.client, key, f.ttl)
}
