// Package lock serialises work per key, across processes through Redis or
// within one process.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the context ends before the lock is obtained.
var ErrNotAcquired = errors.New("lock: not acquired")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker acquires a named lock, waiting until it is free or ctx ends.
type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis implements Locker with SET NX PX. The TTL bounds how long a crashed
// holder can block others.
type Redis struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	interval time.Duration
}

// NewRedis builds a Redis locker.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, interval: 50 * time.Millisecond}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Unlock, error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("acquire %s: %w", fullKey, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = releaseScript.Run(releaseCtx, r.client, []string{fullKey}, token).Err()
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Local implements Locker within one process.
type Local struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocal builds an in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]chan struct{})}
}

func (l *Local) Acquire(ctx context.Context, key string) (Unlock, error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		}
	}
}
