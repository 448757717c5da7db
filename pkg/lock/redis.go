// Package lock provides a distributed mutex on Redis for deployments running several API
// instances against one database.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotAcquired is returned when the lock could not be taken before the wait deadline.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only if it still holds our token, so an expired lock
// re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	// Prefix namespaces every key, e.g. "scheduling:lock:".
	Prefix string
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// Wait bounds how long Lock retries when the context has no earlier deadline.
	Wait time.Duration
	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration
}

type RedisLocker struct {
	client redis.UniversalClient
	config Config
	logger *zerolog.Logger
}

func NewRedisLocker(client redis.UniversalClient, config Config, logger *zerolog.Logger) *RedisLocker {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Second
	}
	if config.Wait <= 0 {
		config.Wait = config.TTL
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 25 * time.Millisecond
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisLocker{client: client, config: config, logger: logger}
}

// Lock blocks until key is held, the wait deadline passes, or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.config.Prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.config.Wait)
	defer cancel()

	ticker := time.NewTicker(l.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.config.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(fullKey, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(fullKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must happen even if the request context is already cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
				l.logger.Error().Err(err).Str("key", fullKey).Msg("Failed to release lock")
			}
		})
	}
}
