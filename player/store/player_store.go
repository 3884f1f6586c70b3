// player/store/player_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// PlayerStore represents the MongoDB data store for player profiles.
type PlayerStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewPlayerStore creates a new PlayerStore instance.
func NewPlayerStore(collection *mongo.Collection) *PlayerStore {
	return &PlayerStore{
		collection: collection,
		now:        time.Now,
	}
}

// CreateProfile inserts a new player document.
func (ps *PlayerStore) CreateProfile(ctx context.Context, profile *models.PlayerProfile) error {
	_, err := ps.collection.InsertOne(ctx, profile)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("player %s: %w", profile.UserID, ErrProfileExists)
		}
		return fmt.Errorf("failed to create player profile %s: %w", profile.UserID, err)
	}
	return nil
}

// GetProfile retrieves a player profile by uid.
func (ps *PlayerStore) GetProfile(ctx context.Context, uid string) (*models.PlayerProfile, error) {
	var profile models.PlayerProfile
	err := ps.collection.FindOne(ctx, bson.M{"_id": uid}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("player %s: %w", uid, ErrProfileNotFound)
		}
		return nil, fmt.Errorf("failed to get player profile %s: %w", uid, err)
	}
	if profile.RecentMatches == nil {
		profile.RecentMatches = []models.MatchSummary{}
	}
	return &profile, nil
}

// SaveProfile merge-upserts the profile's mutable fields.
func (ps *PlayerStore) SaveProfile(ctx context.Context, profile *models.PlayerProfile) error {
	now := ps.now()
	createdAt := now
	if profile.CreatedAt != nil {
		createdAt = *profile.CreatedAt
	}
	recent := profile.RecentMatches
	if recent == nil {
		recent = []models.MatchSummary{}
	}

	filter := bson.M{"_id": profile.UserID}
	update := bson.M{
		"$set": bson.M{
			"tier":              profile.Tier,
			"matches_remaining": profile.MatchesRemaining,
			"payout_per_win":    profile.PayoutPerWin,
			"vault":             profile.Vault,
			"lifetime_earnings": profile.LifetimeEarnings,
			"lifetime_wins":     profile.LifetimeWins,
			"lifetime_losses":   profile.LifetimeLosses,
			"win_rate":          profile.WinRate,
			"current_streak":    profile.CurrentStreak,
			"longest_streak":    profile.LongestStreak,
			"recent_matches":    recent,
			"updated_at":        now,
		},
		"$setOnInsert": bson.M{
			"username":   profile.Username,
			"email":      profile.Email,
			"created_at": createdAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := ps.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save player profile %s: %w", profile.UserID, err)
	}
	return nil
}
