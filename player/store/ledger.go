// player/store/ledger.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisu "github.com/Ftotnem/RPS64-SERVICES/shared/redis"
)

// RedisEventLedger claims payment event ids with SETNX.
type RedisEventLedger struct {
	rdb       redis.UniversalClient
	retention time.Duration
}

func NewRedisEventLedger(rdb redis.UniversalClient, retention time.Duration) *RedisEventLedger {
	return &RedisEventLedger{rdb: rdb, retention: retention}
}

func (el *RedisEventLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := el.rdb.SetNX(ctx, redisu.WebhookEventKey(eventID), time.Now().Unix(), el.retention).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook event %s: %w", eventID, err)
	}
	return ok, nil
}

func (el *RedisEventLedger) Release(ctx context.Context, eventID string) error {
	if err := el.rdb.Del(ctx, redisu.WebhookEventKey(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to release webhook event %s: %w", eventID, err)
	}
	return nil
}
