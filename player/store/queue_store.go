// player/store/queue_store.go
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
	redisu "github.com/Ftotnem/RPS64-SERVICES/shared/redis"
)

// popBatchScript pops ARGV[1] entries from the head of KEYS[1] only if that many are queued.
var popBatchScript = redis.NewScript(`
local n = tonumber(ARGV[1])
if redis.call('LLEN', KEYS[1]) < n then
	return {}
end
local items = redis.call('LRANGE', KEYS[1], 0, n - 1)
redis.call('LTRIM', KEYS[1], n, -1)
return items
`)

// RedisMatchQueue is the matchmaking FIFO stored in a Redis list.
type RedisMatchQueue struct {
	rdb    redis.UniversalClient
	key    string
	logger *zap.Logger
}

func NewRedisMatchQueue(rdb redis.UniversalClient, logger *zap.Logger) *RedisMatchQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisMatchQueue{rdb: rdb, key: redisu.MatchQueueKey, logger: logger}
}

func (q *RedisMatchQueue) Enqueue(ctx context.Context, entry models.QueueEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode queue entry %s: %w", entry.ID, err)
	}
	if err := q.rdb.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", entry.UID, err)
	}
	return nil
}

func (q *RedisMatchQueue) PopBatch(ctx context.Context, n int) ([]models.QueueEntry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", n)
	}
	raws, err := popBatchScript.Run(ctx, q.rdb, []string{q.key}, n).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to pop batch of %d: %w", n, err)
	}

	entries := make([]models.QueueEntry, 0, len(raws))
	for _, raw := range raws {
		var e models.QueueEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			q.logger.Warn("dropping malformed queue entry", zap.String("raw", raw), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (q *RedisMatchQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}
