// Package lock provides Redis based mutual exclusion between service
// instances.  A lock is a key set with NX and a random owner token; only the
// owner may release or extend it.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotAcquired = errors.New("lock not acquired")
	ErrNotOwned    = errors.New("lock not owned")
)

const keyPrefix = "lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Lock is a held lock.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// Key returns the redis key backing the lock.
func (l *Lock) Key() string { return l.key }

// Release deletes the lock if it is still owned by this holder.
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}

// Extend resets the lock expiry to ttl.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotOwned
	}
	l.ttl = ttl
	return nil
}

// Manager hands out locks.
type Manager struct {
	client *redis.Client
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

// Acquire takes the lock named key for ttl.  It fails with ErrNotAcquired
// when someone else holds it.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	full := keyPrefix + key
	token := uuid.NewString()

	ok, err := m.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", full, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lock{client: m.client, key: full, token: token, ttl: ttl}, nil
}

// AcquireWithRetry calls Acquire up to attempts times, sleeping delay
// between tries.  Errors other than ErrNotAcquired stop the loop.
func (m *Manager) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, attempts int, delay time.Duration) (*Lock, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		l, err := m.Acquire(ctx, key, ttl)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
