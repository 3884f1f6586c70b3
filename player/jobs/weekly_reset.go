// player/jobs/weekly_reset.go
package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/player/store"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/weekkey"
)

// WeeklyResetJob zeroes the weekly prize at the week boundary.
type WeeklyResetJob struct {
	prizes store.PrizeStore
	clock  *weekkey.Clock
	logger *zap.Logger
}

func NewWeeklyResetJob(prizes store.PrizeStore, clock *weekkey.Clock, logger *zap.Logger) *WeeklyResetJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeeklyResetJob{prizes: prizes, clock: clock, logger: logger}
}

func (j *WeeklyResetJob) Name() string { return "weekly-reset" }

// Run resets the prize. Streak entries are not touched; the new week key
// makes them fall off the current leaderboard on their own.
func (j *WeeklyResetJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	previous, err := j.prizes.ResetWeeklyPrize(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to reset weekly prize: %w", err)
	}

	fields := []zap.Field{zap.String("week", weekkey.For(now, j.clock.Location()))}
	if previous != nil {
		fields = append(fields, zap.Stringer("previous_amount", previous.Amount), zap.Time("previous_week_start", previous.WeekStart))
	}
	j.logger.Info("weekly prize reset", fields...)
	metrics.WeeklyResets.Inc()
	return nil
}
