// player/store/memory_store.go
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// MemoryStore keeps profiles, streaks and the prize in process memory. It
// implements ProfileStore, StreakLedger and PrizeStore with the same
// semantics as the MongoDB stores and backs STORE_BACKEND=memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.PlayerProfile
	streaks  map[string]models.WeeklyStreakEntry
	prize    *models.WeeklyPrize
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*models.PlayerProfile),
		streaks:  make(map[string]models.WeeklyStreakEntry),
		now:      time.Now,
	}
}

func (ms *MemoryStore) GetProfile(ctx context.Context, uid string) (*models.PlayerProfile, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p, ok := ms.profiles[uid]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", uid, ErrProfileNotFound)
	}
	return p.Clone(), nil
}

func (ms *MemoryStore) CreateProfile(ctx context.Context, profile *models.PlayerProfile) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.profiles[profile.UserID]; ok {
		return fmt.Errorf("player %s: %w", profile.UserID, ErrProfileExists)
	}
	ms.profiles[profile.UserID] = profile.Clone()
	return nil
}

func (ms *MemoryStore) SaveProfile(ctx context.Context, profile *models.PlayerProfile) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	next := profile.Clone()
	next.UpdatedAt = &now

	if existing, ok := ms.profiles[profile.UserID]; ok {
		next.Username = existing.Username
		next.Email = existing.Email
		next.CreatedAt = existing.CreatedAt
	} else if next.CreatedAt == nil {
		next.CreatedAt = &now
	}
	ms.profiles[profile.UserID] = next
	return nil
}

func (ms *MemoryStore) UpsertWeeklyStreak(ctx context.Context, entry models.WeeklyStreakEntry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id := models.StreakEntryID(entry.WeekKey, entry.UserID)
	entry.ID = id
	if existing, ok := ms.streaks[id]; ok && existing.BestStreak >= entry.BestStreak {
		entry.BestStreak = existing.BestStreak
		entry.UpdatedAt = existing.UpdatedAt
	}
	ms.streaks[id] = entry
	return nil
}

func (ms *MemoryStore) TopWeeklyStreaks(ctx context.Context, weekKey string, limit int) ([]models.WeeklyStreakEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entries := []models.WeeklyStreakEntry{}
	for _, e := range ms.streaks {
		if e.WeekKey == weekKey {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BestStreak != entries[j].BestStreak {
			return entries[i].BestStreak > entries[j].BestStreak
		}
		return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (ms *MemoryStore) GetWeeklyPrize(ctx context.Context) (*models.WeeklyPrize, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.prize == nil {
		return nil, ErrPrizeNotFound
	}
	p := *ms.prize
	return &p, nil
}

func (ms *MemoryStore) ResetWeeklyPrize(ctx context.Context, now time.Time) (*models.WeeklyPrize, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	previous := ms.prize
	ms.prize = &models.WeeklyPrize{Amount: 0, WeekStart: now}
	return previous, nil
}

// SetWeeklyPrize overwrites the prize document.
func (ms *MemoryStore) SetWeeklyPrize(prize models.WeeklyPrize) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.prize = &prize
}
