// shared/models/tier.go
package models

// Tier is a purchased pass level.
type Tier string

const (
	TierRookie Tier = "rookie"
	TierPro    Tier = "pro"
	TierElite  Tier = "elite"
)

// TierDefinition is the static pricing of a tier.
type TierDefinition struct {
	Name         Tier  `json:"name"`
	EntryCash    Money `json:"entryCash"`    // price charged by the payment gateway
	VaultCost    Money `json:"vaultCost"`    // price when rebuying from the vault
	PayoutPerWin Money `json:"payoutPerWin"` // credited to the vault on each win
}

var tierCatalog = map[Tier]TierDefinition{
	TierRookie: {Name: TierRookie, EntryCash: 1299, VaultCost: 1000, PayoutPerWin: 200},
	TierPro:    {Name: TierPro, EntryCash: 1799, VaultCost: 1500, PayoutPerWin: 300},
	TierElite:  {Name: TierElite, EntryCash: 2299, VaultCost: 2000, PayoutPerWin: 400},
}

// LookupTier returns the definition for a tier name.
func LookupTier(name Tier) (TierDefinition, bool) {
	def, ok := tierCatalog[name]
	return def, ok
}

// Tiers lists the catalog from cheapest to most expensive.
func Tiers() []TierDefinition {
	return []TierDefinition{tierCatalog[TierRookie], tierCatalog[TierPro], tierCatalog[TierElite]}
}
