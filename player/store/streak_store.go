// player/store/streak_store.go
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// WeeklyStreakStore is the MongoDB ledger of weekly best streaks.
type WeeklyStreakStore struct {
	collection *mongo.Collection
}

func NewWeeklyStreakStore(collection *mongo.Collection) *WeeklyStreakStore {
	return &WeeklyStreakStore{collection: collection}
}

// EnsureIndexes creates the index backing the leaderboard query.
func (ws *WeeklyStreakStore) EnsureIndexes(ctx context.Context) error {
	_, err := ws.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "week_key", Value: 1},
			{Key: "best_streak", Value: -1},
			{Key: "updated_at", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create weekly streak index: %w", err)
	}
	return nil
}

// UpsertWeeklyStreak raises best_streak to entry.BestStreak if it is higher.
// updated_at only moves when the best streak does, so the leaderboard tie
// break favors whoever reached a streak first.
func (ws *WeeklyStreakStore) UpsertWeeklyStreak(ctx context.Context, entry models.WeeklyStreakEntry) error {
	id := models.StreakEntryID(entry.WeekKey, entry.UserID)
	improved := bson.D{{Key: "$gt", Value: bson.A{entry.BestStreak, bson.D{{Key: "$ifNull", Value: bson.A{"$best_streak", -1}}}}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "user_id", Value: literal(entry.UserID)},
			{Key: "username", Value: literal(entry.Username)},
			{Key: "week_key", Value: literal(entry.WeekKey)},
			{Key: "best_streak", Value: bson.D{{Key: "$max", Value: bson.A{"$best_streak", entry.BestStreak}}}},
			{Key: "updated_at", Value: bson.D{{Key: "$cond", Value: bson.A{improved, entry.UpdatedAt, "$updated_at"}}}},
		}}},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := ws.collection.UpdateOne(ctx, bson.M{"_id": id}, pipeline, opts); err != nil {
		return fmt.Errorf("failed to upsert weekly streak %s: %w", id, err)
	}
	return nil
}

// literal stops user-supplied strings from being read as "$field" paths inside the pipeline.
func literal(v string) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

// TopWeeklyStreaks returns up to limit entries of weekKey.
func (ws *WeeklyStreakStore) TopWeeklyStreaks(ctx context.Context, weekKey string, limit int) ([]models.WeeklyStreakEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "best_streak", Value: -1}, {Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := ws.collection.Find(ctx, bson.M{"week_key": weekKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly streaks for %s: %w", weekKey, err)
	}
	defer cursor.Close(ctx)

	entries := []models.WeeklyStreakEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode weekly streaks for %s: %w", weekKey, err)
	}
	return entries, nil
}
