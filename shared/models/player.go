// shared/models/player.go
package models

import (
	"time"
)

// Outcome is the result of a single match from the reporting player's point of view.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

const (
	MatchesPerPass   = 10 // allowance granted by every pass
	RecentMatchLimit = 10 // length of the recent match history
)

// MatchSummary is one entry of a player's recent match history.
type MatchSummary struct {
	Result   string  `bson:"result" json:"result"` // "W" or "L"
	Opponent *string `bson:"opponent" json:"opponent"`
	Payout   Money   `bson:"payout" json:"payout"`
}

// PlayerProfile is a player's economic and competitive state, stored in the players collection.
type PlayerProfile struct {
	UserID   string `bson:"_id" json:"userId"`
	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"`

	Tier             Tier  `bson:"tier" json:"tier"`
	MatchesRemaining int   `bson:"matches_remaining" json:"matchesRemaining"`
	PayoutPerWin     Money `bson:"payout_per_win" json:"payoutPerWin"`

	Vault            Money `bson:"vault" json:"vault"`
	LifetimeEarnings Money `bson:"lifetime_earnings" json:"lifetimeEarnings"`

	LifetimeWins   int `bson:"lifetime_wins" json:"lifetimeWins"`
	LifetimeLosses int `bson:"lifetime_losses" json:"lifetimeLosses"`
	WinRate        int `bson:"win_rate" json:"winRate"`
	CurrentStreak  int `bson:"current_streak" json:"currentStreak"`
	LongestStreak  int `bson:"longest_streak" json:"longestStreak"`

	RecentMatches []MatchSummary `bson:"recent_matches" json:"recentMatches"`

	CreatedAt *time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// NewPlayerProfile returns the profile a player starts with on first access.
func NewPlayerProfile(uid, username, email string, now time.Time) *PlayerProfile {
	if username == "" {
		username = "Player"
	}
	rookie := tierCatalog[TierRookie]
	return &PlayerProfile{
		UserID:           uid,
		Username:         username,
		Email:            email,
		Tier:             TierRookie,
		MatchesRemaining: MatchesPerPass,
		PayoutPerWin:     rookie.PayoutPerWin,
		RecentMatches:    []MatchSummary{},
		CreatedAt:        &now,
		UpdatedAt:        &now,
	}
}

// Clone returns a deep copy, so callers can mutate without aliasing a stored profile.
func (p *PlayerProfile) Clone() *PlayerProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.RecentMatches = make([]MatchSummary, len(p.RecentMatches))
	for i, m := range p.RecentMatches {
		c.RecentMatches[i] = m
		if m.Opponent != nil {
			opp := *m.Opponent
			c.RecentMatches[i].Opponent = &opp
		}
	}
	if p.CreatedAt != nil {
		t := *p.CreatedAt
		c.CreatedAt = &t
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}
