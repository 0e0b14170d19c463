package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/billing/backend/internal/infrastructure/config"
)

// ScanLocker guards the reminder scan against concurrent runs across
// instances. Acquire returns false when another holder is active.
type ScanLocker interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// releaseScript deletes the lock key only while it still carries our
// token. After a TTL expiry another instance may hold the key; an
// unconditional DEL would drop that holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisScanLock implements ScanLocker with a Redis SETNX key. The TTL
// bounds how long a crashed holder blocks other instances. Each Acquire
// stores a fresh token so Release only ever removes its own claim.
type RedisScanLock struct {
	client *redis.Client
	key    string
	token  string
}

// NewRedisScanLock creates a scan lock backed by a new Redis connection
func NewRedisScanLock(cfg *config.RedisConfig) (*RedisScanLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisScanLock{
		client: client,
		key:    "dunning:scan:lock",
	}, nil
}

// Acquire tries to take the lock for the given TTL
func (l *RedisScanLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lock early instead of waiting for the TTL. Only the
// holder's own claim is removed; without a held token it is a no-op.
func (l *RedisScanLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release scan lock: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisScanLock) Close() error {
	return l.client.Close()
}

// NoopScanLock always grants the lock. Used when the scan runs on a
// single instance and cross-instance locking is disabled.
type NoopScanLock struct{}

// Acquire always succeeds
func (NoopScanLock) Acquire(context.Context, time.Duration) (bool, error) { return true, nil }

// Release is a no-op
func (NoopScanLock) Release(context.Context) error { return nil }

var (
	_ ScanLocker = (*RedisScanLock)(nil)
	_ ScanLocker = NoopScanLock{}
)
