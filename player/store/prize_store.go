// player/store/prize_store.go
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

// WeeklyPrizeID is the _id of the prize document in the meta collection.
const WeeklyPrizeID = "weeklyPrize"

// MetaStore keeps singleton documents such as the weekly prize.
type MetaStore struct {
	collection *mongo.Collection
}

func NewMetaStore(collection *mongo.Collection) *MetaStore {
	return &MetaStore{collection: collection}
}

func (ms *MetaStore) GetWeeklyPrize(ctx context.Context) (*models.WeeklyPrize, error) {
	var prize models.WeeklyPrize
	err := ms.collection.FindOne(ctx, bson.M{"_id": WeeklyPrizeID}).Decode(&prize)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPrizeNotFound
		}
		return nil, fmt.Errorf("failed to get weekly prize: %w", err)
	}
	return &prize, nil
}

func (ms *MetaStore) ResetWeeklyPrize(ctx context.Context, now time.Time) (*models.WeeklyPrize, error) {
	update := bson.M{"$set": bson.M{"amount": models.Money(0), "week_start": now}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var previous models.WeeklyPrize
	err := ms.collection.FindOneAndUpdate(ctx, bson.M{"_id": WeeklyPrizeID}, update, opts).Decode(&previous)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reset weekly prize: %w", err)
	}
	return &previous, nil
}
