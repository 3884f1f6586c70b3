// player/store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

var (
	ErrProfileNotFound = errors.New("player profile not found")
	ErrProfileExists   = errors.New("player profile already exists")
	ErrPrizeNotFound   = errors.New("weekly prize not found")
	ErrLockNotObtained = errors.New("player lock not obtained")
)

// ProfileStore is the durable record of player profiles.
type ProfileStore interface {
	// GetProfile returns ErrProfileNotFound when uid has no profile.
	GetProfile(ctx context.Context, uid string) (*models.PlayerProfile, error)
	// CreateProfile returns ErrProfileExists when uid already has one.
	CreateProfile(ctx context.Context, profile *models.PlayerProfile) error
	// SaveProfile merge-upserts the mutable fields. Identity fields and
	// createdAt are only written when the document is first inserted.
	SaveProfile(ctx context.Context, profile *models.PlayerProfile) error
}

// StreakLedger holds the best streak per (week, player).
type StreakLedger interface {
	// UpsertWeeklyStreak keeps the larger of the stored and the given best streak.
	UpsertWeeklyStreak(ctx context.Context, entry models.WeeklyStreakEntry) error
	// TopWeeklyStreaks orders by best streak desc, then earliest updatedAt.
	TopWeeklyStreaks(ctx context.Context, weekKey string, limit int) ([]models.WeeklyStreakEntry, error)
}

// PrizeStore holds the weekly prize singleton.
type PrizeStore interface {
	GetWeeklyPrize(ctx context.Context) (*models.WeeklyPrize, error)
	// ResetWeeklyPrize sets amount to zero and weekStart to now, creating the
	// document if needed. It returns the previous prize, nil if there was none.
	ResetWeeklyPrize(ctx context.Context, now time.Time) (*models.WeeklyPrize, error)
}

// Locker serializes mutations of one player's profile.
type Locker interface {
	// Obtain returns ErrLockNotObtained when the lock stays held past the retry budget.
	Obtain(ctx context.Context, uid string) (release func(), err error)
}

// EventLedger remembers processed payment events.
type EventLedger interface {
	// Claim returns true for the first caller with eventID and false afterwards.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release forgets eventID so a redelivery is processed again.
	Release(ctx context.Context, eventID string) error
}

// MatchQueue is the FIFO of paid tournament entrants.
type MatchQueue interface {
	Enqueue(ctx context.Context, entry models.QueueEntry) error
	// PopBatch removes and returns the first n entries, or nothing when fewer than n are queued.
	PopBatch(ctx context.Context, n int) ([]models.QueueEntry, error)
	Len(ctx context.Context) (int64, error)
}
