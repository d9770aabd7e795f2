package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = errors.New("lock held by another process")

// Locker serializes work across processes.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// Release frees a held lock.
type Release func(ctx context.Context) error

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock returns an advisory lock backed by SET NX PX. The TTL bounds
// how long a crashed holder can block the next run.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) Locker {
	return &redisLock{client: client, key: key, ttl: ttl}
}

func (l *redisLock) Acquire(ctx context.Context) (Release, error) {
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", l.key, err)
		}
		return nil
	}, nil
}

// localLock is used when no Redis is configured; it only serializes within
// one process.
type localLock struct {
	ch chan struct{}
}

func NewLocalLock() Locker {
	return &localLock{ch: make(chan struct{}, 1)}
}

func (l *localLock) Acquire(ctx context.Context) (Release, error) {
	select {
	case l.ch <- struct{}{}:
		return func(context.Context) error {
			<-l.ch
			return nil
		}, nil
	default:
		return nil, ErrNotAcquired
	}
}
