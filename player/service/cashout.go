// player/service/cashout.go
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// CashoutMinimum is the smallest vault balance that can be withdrawn.
const CashoutMinimum = models.Money(5000)

// Cashout empties the caller's vault. Payout delivery is simulated and logged.
func (ps *PlayerService) Cashout(ctx context.Context, id auth.Identity) (*models.PlayerProfile, error) {
	var paid models.Money
	profile, err := ps.mutate(ctx, id, func(p *models.PlayerProfile) error {
		if p.Vault < CashoutMinimum {
			return ErrInsufficientFunds
		}
		paid = p.Vault
		p.Vault = 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Cashouts.Inc()
	ps.logger.Info("simulated payout", zap.String("uid", profile.UserID), zap.Stringer("amount", paid))
	return profile, nil
}
