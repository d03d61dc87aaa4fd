// Package lock provides short-lived Redis mutexes keyed by string.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrNotObtained is returned when the key stayed held for the whole wait budget.
	ErrNotObtained = errors.New("lock not obtained")
	// ErrNotHeld is returned by an unlock whose token no longer owns the key.
	ErrNotHeld = errors.New("lock not held")
)

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Config configures a Locker.
type Config struct {
	Prefix        string
	TTL           time.Duration // lease; the key disappears on its own after this
	RetryInterval time.Duration
	WaitTimeout   time.Duration // total time spent retrying before ErrNotObtained
}

// Locker hands out Redis-backed mutexes.
type Locker struct {
	client *redis.Client
	cfg    Config
	logger *zap.Logger
}

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

// NewLocker creates a Locker.
func NewLocker(client *redis.Client, cfg Config, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	if cfg.WaitTimeout < 0 {
		cfg.WaitTimeout = 0
	}
	return &Locker{client: client, cfg: cfg, logger: logger}
}

// Lock acquires key, retrying until WaitTimeout elapses or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := l.cfg.Prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.WaitTimeout)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(redisKey, token), nil
		}
		if !time.Now().Before(deadline) {
			l.logger.Debug("lock contended", zap.String("key", redisKey))
			return nil, ErrNotObtained
		}
		timer := time.NewTimer(l.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) unlocker(redisKey, token string) Unlock {
	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
}
