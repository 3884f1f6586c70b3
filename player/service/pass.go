// player/service/pass.go
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// RebuyMethod is how a player pays for a new pass on their current tier.
type RebuyMethod string

const (
	RebuyVault RebuyMethod = "vault"
	RebuyCard  RebuyMethod = "card"
)

// Rebuy refreshes the caller's pass on their current tier.
// With RebuyVault the vault cost is debited; with RebuyCard the charge is
// recorded and its completion is confirmed later by the payment webhook.
func (ps *PlayerService) Rebuy(ctx context.Context, id auth.Identity, method RebuyMethod) (*models.PlayerProfile, error) {
	if method != RebuyVault && method != RebuyCard {
		return nil, ErrInvalidMethod
	}

	var def models.TierDefinition
	profile, err := ps.mutate(ctx, id, func(p *models.PlayerProfile) error {
		var ok bool
		def, ok = models.LookupTier(p.Tier)
		if !ok {
			return ErrInvalidTier
		}

		switch method {
		case RebuyVault:
			if p.Vault < def.VaultCost {
				return ErrInsufficientFunds
			}
			p.Vault -= def.VaultCost
		case RebuyCard:
			ps.logger.Info("card rebuy recorded",
				zap.String("uid", p.UserID),
				zap.String("tier", string(def.Name)),
				zap.Stringer("amount", def.EntryCash),
			)
			metrics.CardCharges.WithLabelValues(string(def.Name)).Inc()
		}
		applyPass(p, def)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.PassesGranted.WithLabelValues(string(def.Name), string(method)).Inc()
	return profile, nil
}

// GrantPass sets the player's tier and refreshes their pass. It is used when
// a payment for tier is confirmed and is idempotent.
func (ps *PlayerService) GrantPass(ctx context.Context, id auth.Identity, tier models.Tier) (*models.PlayerProfile, error) {
	def, ok := models.LookupTier(tier)
	if !ok {
		return nil, ErrInvalidTier
	}

	profile, err := ps.mutate(ctx, id, func(p *models.PlayerProfile) error {
		p.Tier = def.Name
		applyPass(p, def)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.PassesGranted.WithLabelValues(string(def.Name), "webhook").Inc()
	return profile, nil
}
