package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key expiry only if it still holds our token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a PollLock shared by every process using the same Redis key
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLock connects to redisURL and checks the connection
func NewRedisLock(ctx context.Context, redisURL, key string, ttl time.Duration, logger *zap.Logger) (*RedisLock, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockWithClient(client, key, ttl, logger), nil
}

const defaultTTL = 10 * time.Minute

// NewRedisLockWithClient wraps an existing client
func NewRedisLockWithClient(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisLock {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl, logger: logger}
}

// TryAcquire sets the lock key if it is absent. The key expires after the
// configured TTL so a crashed holder cannot block polls forever; while the
// lock is held its expiry is pushed back every third of the TTL.
func (l *RedisLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to set lock key: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := keepAlive(l.ttl/3, func(ctx context.Context) (bool, error) {
		n, err := renewScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int64()
		return n == 1, err
	}, l.logger.With(zap.String("key", l.key)))

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			// the request context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
				l.logger.Warn("Failed to release poll lock", zap.String("key", l.key), zap.Error(err))
			}
		})
	}
	return release, true, nil
}

// keepAlive calls renew every interval until the returned stop func is called
// or renew reports the lock is no longer ours. stop waits for the loop to exit.
func keepAlive(interval time.Duration, renew func(ctx context.Context) (bool, error), logger *zap.Logger) func() {
	if interval <= 0 {
		interval = time.Millisecond
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				held, err := renew(ctx)
				cancel()
				if err != nil {
					logger.Warn("Failed to renew poll lock", zap.Error(err))
					continue
				}
				if !held {
					logger.Warn("Poll lock expired before it was released")
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

// Close closes the Redis connection
func (l *RedisLock) Close() error {
	return l.client.Close()
}
