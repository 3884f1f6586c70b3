// player/store/cached_store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
	redisu "github.com/Ftotnem/RPS64-SERVICES/shared/redis"
)

var errCorruptCacheEntry = errors.New("corrupt profile cache entry")

// CachedProfileStore is a Redis cache in front of a durable ProfileStore.
// Reads go cache, then durable, then fill the cache. A fill never replaces
// an existing entry, so a slow reader cannot clobber a newer write. Writes go
// to the durable store first and then to the cache even when the durable
// write failed, so the caller's view stays consistent with what it was told.
type CachedProfileStore struct {
	durable ProfileStore
	rdb     redis.UniversalClient
	ttl     time.Duration
	logger  *zap.Logger
}

func NewCachedProfileStore(durable ProfileStore, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedProfileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProfileStore{durable: durable, rdb: rdb, ttl: ttl, logger: logger}
}

func (cs *CachedProfileStore) GetProfile(ctx context.Context, uid string) (*models.PlayerProfile, error) {
	p, err := cs.readCache(ctx, uid)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, errCorruptCacheEntry):
		cs.logger.Warn("dropping corrupt profile cache entry", zap.String("uid", uid), zap.Error(err))
		if err := cs.Invalidate(ctx, uid); err != nil {
			cs.logger.Warn("profile cache invalidate failed", zap.String("uid", uid), zap.Error(err))
		}
	case !errors.Is(err, redisu.ErrRedisKeyNotFound):
		cs.logger.Warn("profile cache read failed", zap.String("uid", uid), zap.Error(err))
	}

	p, err = cs.durable.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	cs.fillCache(ctx, p)
	return p, nil
}

func (cs *CachedProfileStore) CreateProfile(ctx context.Context, profile *models.PlayerProfile) error {
	if err := cs.durable.CreateProfile(ctx, profile); err != nil {
		return err
	}
	cs.fillCache(ctx, profile)
	return nil
}

func (cs *CachedProfileStore) SaveProfile(ctx context.Context, profile *models.PlayerProfile) error {
	err := cs.durable.SaveProfile(ctx, profile)
	cs.writeCache(ctx, profile)
	return err
}

// Invalidate drops uid from the cache.
func (cs *CachedProfileStore) Invalidate(ctx context.Context, uid string) error {
	return cs.rdb.Del(ctx, redisu.ProfileCacheKey(uid)).Err()
}

func (cs *CachedProfileStore) readCache(ctx context.Context, uid string) (*models.PlayerProfile, error) {
	raw, err := cs.rdb.Get(ctx, redisu.ProfileCacheKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redisu.ErrRedisKeyNotFound
		}
		return nil, err
	}
	var p models.PlayerProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptCacheEntry, err)
	}
	if p.RecentMatches == nil {
		p.RecentMatches = []models.MatchSummary{}
	}
	return &p, nil
}

// writeCache stores p unconditionally. Only SaveProfile, which runs under the player lock, uses it.
func (cs *CachedProfileStore) writeCache(ctx context.Context, p *models.PlayerProfile) {
	raw, ok := cs.encode(p)
	if !ok {
		return
	}
	if err := cs.rdb.Set(ctx, redisu.ProfileCacheKey(p.UserID), raw, cs.ttl).Err(); err != nil {
		cs.logger.Warn("profile cache write failed", zap.String("uid", p.UserID), zap.Error(err))
	}
}

// fillCache stores a durable read only if no entry exists yet.
func (cs *CachedProfileStore) fillCache(ctx context.Context, p *models.PlayerProfile) {
	raw, ok := cs.encode(p)
	if !ok {
		return
	}
	if err := cs.rdb.SetNX(ctx, redisu.ProfileCacheKey(p.UserID), raw, cs.ttl).Err(); err != nil {
		cs.logger.Warn("profile cache fill failed", zap.String("uid", p.UserID), zap.Error(err))
	}
}

func (cs *CachedProfileStore) encode(p *models.PlayerProfile) ([]byte, bool) {
	raw, err := json.Marshal(p)
	if err != nil {
		cs.logger.Error("failed to encode profile for cache", zap.String("uid", p.UserID), zap.Error(err))
		return nil, false
	}
	return raw, true
}
