// player/service/match.go
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// RecordMatch applies one match result to the caller's profile. A win also
// raises the caller's entry in the current week's streak ledger.
func (ps *PlayerService) RecordMatch(ctx context.Context, id auth.Identity, outcome models.Outcome, opponent *string) (*models.PlayerProfile, error) {
	if !validOutcome(outcome) {
		return nil, ErrInvalidOutcome
	}

	profile, err := ps.mutate(ctx, id, func(p *models.PlayerProfile) error {
		if p.MatchesRemaining <= 0 {
			return ErrNoMatchesRemaining
		}
		applyMatch(p, outcome, opponent)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.MatchesRecorded.WithLabelValues(string(outcome)).Inc()

	if outcome == models.OutcomeWin {
		entry := models.WeeklyStreakEntry{
			UserID:     profile.UserID,
			Username:   profile.Username,
			BestStreak: profile.CurrentStreak,
			WeekKey:    ps.clock.Current(),
			UpdatedAt:  ps.clock.Now(),
		}
		if err := ps.streaks.UpsertWeeklyStreak(ctx, entry); err != nil {
			metrics.PersistenceFailures.WithLabelValues("weekly_streaks").Inc()
			ps.logger.Error("failed to upsert weekly streak",
				zap.String("uid", profile.UserID), zap.String("week_key", entry.WeekKey), zap.Error(err))
		}
	}
	return profile, nil
}
