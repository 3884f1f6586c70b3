// player/service/leaderboard_service.go
package service

import (
	"context"
	"errors"

	"github.com/Ftotnem/RPS64-SERVICES/player/store"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
	"github.com/Ftotnem/RPS64-SERVICES/shared/weekkey"
)

// LeaderboardSize is the number of entries the public leaderboard shows.
const LeaderboardSize = 5

// Leaderboard is the ranked streak ledger of one prize week.
type Leaderboard struct {
	WeekKey string
	Entries []models.WeeklyStreakEntry
}

// LeaderboardService reads the weekly streak ledger and prize.
type LeaderboardService struct {
	streaks store.StreakLedger
	prizes  store.PrizeStore
	clock   *weekkey.Clock
}

func NewLeaderboardService(streaks store.StreakLedger, prizes store.PrizeStore, clock *weekkey.Clock) *LeaderboardService {
	return &LeaderboardService{streaks: streaks, prizes: prizes, clock: clock}
}

// Top returns the best limit streaks of the current week.
func (ls *LeaderboardService) Top(ctx context.Context, limit int) (*Leaderboard, error) {
	key := ls.clock.Current()
	entries, err := ls.streaks.TopWeeklyStreaks(ctx, key, limit)
	if err != nil {
		return nil, unavailable("top weekly streaks", err)
	}
	return &Leaderboard{WeekKey: key, Entries: entries}, nil
}

// WeeklyPrize returns the prize document. Before the first reset it reports
// an empty prize starting at the current week boundary.
func (ls *LeaderboardService) WeeklyPrize(ctx context.Context) (*models.WeeklyPrize, error) {
	prize, err := ls.prizes.GetWeeklyPrize(ctx)
	if err != nil {
		if errors.Is(err, store.ErrPrizeNotFound) {
			return &models.WeeklyPrize{WeekStart: weekkey.Boundary(ls.clock.Now(), ls.clock.Location())}, nil
		}
		return nil, unavailable("get weekly prize", err)
	}
	return prize, nil
}
