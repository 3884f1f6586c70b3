// player/service/player_service.go
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/player/store"
	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
	"github.com/Ftotnem/RPS64-SERVICES/shared/weekkey"
)

// PlayerService encapsulates the business logic for player profiles.
type PlayerService struct {
	profiles store.ProfileStore
	streaks  store.StreakLedger
	locker   store.Locker
	clock    *weekkey.Clock
	logger   *zap.Logger
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(profiles store.ProfileStore, streaks store.StreakLedger, locker store.Locker, clock *weekkey.Clock, logger *zap.Logger) *PlayerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlayerService{
		profiles: profiles,
		streaks:  streaks,
		locker:   locker,
		clock:    clock,
		logger:   logger,
	}
}

// GetOrCreateProfile returns the caller's profile, creating it with defaults on first access.
func (ps *PlayerService) GetOrCreateProfile(ctx context.Context, id auth.Identity) (*models.PlayerProfile, error) {
	profile, err := ps.profiles.GetProfile(ctx, id.UID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, store.ErrProfileNotFound) {
		return nil, unavailable("get profile", err)
	}

	profile = models.NewPlayerProfile(id.UID, id.Name, id.Email, ps.clock.Now())
	if err := ps.profiles.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, store.ErrProfileExists) {
			// Lost a creation race; the winner's document is authoritative.
			existing, getErr := ps.profiles.GetProfile(ctx, id.UID)
			if getErr != nil {
				return nil, unavailable("get profile", getErr)
			}
			return existing, nil
		}
		return nil, unavailable("create profile", err)
	}
	ps.logger.Info("created player profile", zap.String("uid", id.UID))
	return profile, nil
}

// mutate runs fn on a copy of the caller's profile while holding the player
// lock, then persists the result. When fn fails nothing is written.
func (ps *PlayerService) mutate(ctx context.Context, id auth.Identity, fn func(p *models.PlayerProfile) error) (*models.PlayerProfile, error) {
	release, err := ps.locker.Obtain(ctx, id.UID)
	if err != nil {
		return nil, unavailable("lock player", err)
	}
	defer release()

	current, err := ps.GetOrCreateProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	now := ps.clock.Now()
	next.UpdatedAt = &now

	ps.persist(ctx, next)
	return next, nil
}

// persist writes the profile. A failed durable write is logged and counted;
// the caller still gets the updated profile.
func (ps *PlayerService) persist(ctx context.Context, p *models.PlayerProfile) {
	if err := ps.profiles.SaveProfile(ctx, p); err != nil {
		metrics.PersistenceFailures.WithLabelValues("profiles").Inc()
		ps.logger.Error("failed to persist player profile", zap.String("uid", p.UserID), zap.Error(err))
	}
}
