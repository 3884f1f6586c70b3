// player/store/lock.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisu "github.com/Ftotnem/RPS64-SERVICES/shared/redis"
)

const (
	lockBackoff    = 50 * time.Millisecond
	lockMaxRetries = 40
)

// RedisLocker is a per-player distributed lock on lock:player:{uid}:.
type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	logger *zap.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		locker: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(lockBackoff), lockMaxRetries),
		logger: logger,
	}
}

func (rl *RedisLocker) Obtain(ctx context.Context, uid string) (func(), error) {
	lock, err := rl.locker.Obtain(ctx, redisu.PlayerLockKey(uid), rl.ttl, &redislock.Options{
		RetryStrategy: rl.retry,
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("player %s: %w", uid, ErrLockNotObtained)
		}
		return nil, fmt.Errorf("failed to obtain lock for player %s: %w", uid, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			rl.logger.Warn("failed to release player lock", zap.String("uid", uid), zap.Error(err))
		}
	}, nil
}
