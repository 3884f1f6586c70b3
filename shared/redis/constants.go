// shared/redis/constants.go
package redis

import "fmt"

const (
	// Key constants for Redis player data. Hash tags keep every key of one
	// player on the same cluster slot.
	ProfileCacheKeyPrefix = "profile:{%s}:"       // Cached player profile JSON: profile:{uid}
	PlayerLockKeyPrefix   = "lock:player:{%s}:"   // Per-player mutation lock: lock:player:{uid}
	WebhookEventKeyPrefix = "webhook_event:{%s}:" // Processed payment event marker: webhook_event:{eventID}
	MatchQueueKey         = "match_queue"         // List of queued tournament entrants
)

// ErrRedisKeyNotFound is returned when a Redis key does not exist.
var ErrRedisKeyNotFound = fmt.Errorf("redis key not found")

// ProfileCacheKey returns the cache key for a player's profile.
func ProfileCacheKey(uid string) string { return fmt.Sprintf(ProfileCacheKeyPrefix, uid) }

// PlayerLockKey returns the lock key for a player.
func PlayerLockKey(uid string) string { return fmt.Sprintf(PlayerLockKeyPrefix, uid) }

// WebhookEventKey returns the marker key for a processed payment event.
func WebhookEventKey(eventID string) string { return fmt.Sprintf(WebhookEventKeyPrefix, eventID) }
