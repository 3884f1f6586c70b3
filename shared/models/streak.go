// shared/models/streak.go
package models

import "time"

// WeeklyStreakEntry is a player's best streak within one prize week.
// Stored in the weeklyStreaks collection under "<weekKey>:<uid>".
type WeeklyStreakEntry struct {
	ID         string    `bson:"_id" json:"-"`
	UserID     string    `bson:"user_id" json:"userId"`
	Username   string    `bson:"username" json:"username"`
	BestStreak int       `bson:"best_streak" json:"bestStreak"`
	WeekKey    string    `bson:"week_key" json:"weekKey"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

// StreakEntryID builds the document id of a weekly streak entry.
func StreakEntryID(weekKey, uid string) string {
	return weekKey + ":" + uid
}

// WeeklyPrize is the singleton prize accumulator reset every prize week.
type WeeklyPrize struct {
	Amount    Money     `bson:"amount" json:"amount"`
	WeekStart time.Time `bson:"week_start" json:"weekStart"`
}
