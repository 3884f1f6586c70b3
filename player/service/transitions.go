// player/service/transitions.go
package service

import (
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// winRate is round(100*wins/(wins+losses)) with halves rounded up, 0 with no matches.
func winRate(wins, losses int) int {
	total := wins + losses
	if total == 0 {
		return 0
	}
	return (200*wins + total) / (2 * total)
}

// applyMatch mutates p for one recorded match. The caller has already
// checked the outcome and the remaining allowance.
func applyMatch(p *models.PlayerProfile, outcome models.Outcome, opponent *string) {
	p.MatchesRemaining--

	summary := models.MatchSummary{Opponent: opponent}
	switch outcome {
	case models.OutcomeWin:
		p.LifetimeWins++
		p.CurrentStreak++
		p.Vault += p.PayoutPerWin
		p.LifetimeEarnings += p.PayoutPerWin
		if p.CurrentStreak > p.LongestStreak {
			p.LongestStreak = p.CurrentStreak
		}
		summary.Result = "W"
		summary.Payout = p.PayoutPerWin
	case models.OutcomeLoss:
		p.LifetimeLosses++
		p.CurrentStreak = 0
		summary.Result = "L"
	}
	p.WinRate = winRate(p.LifetimeWins, p.LifetimeLosses)

	p.RecentMatches = append(p.RecentMatches, summary)
	if over := len(p.RecentMatches) - models.RecentMatchLimit; over > 0 {
		p.RecentMatches = append([]models.MatchSummary{}, p.RecentMatches[over:]...)
	}
}

// applyPass refreshes the allowance and payout rate from def. Every
// assignment is absolute so applying the same pass twice is a no-op.
func applyPass(p *models.PlayerProfile, def models.TierDefinition) {
	p.MatchesRemaining = models.MatchesPerPass
	p.PayoutPerWin = def.PayoutPerWin
	p.RecentMatches = []models.MatchSummary{}
}

func validOutcome(o models.Outcome) bool {
	return o == models.OutcomeWin || o == models.OutcomeLoss
}
