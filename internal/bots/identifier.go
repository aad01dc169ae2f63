// Package bots identifies MEV bot addresses and maintains their cumulative
// activity profiles.
package bots

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/mevlens/mevlens/internal/domain"
)

// Confidence levels assigned by classification path.
const (
	knownBotConfidence     = 95
	heuristicBotConfidence = 70
)

// multiStrategyMinTypes and multiStrategyMinCount gate the multi-strategy
// heuristic: an unknown address running at least two patterns, each seen at
// least five times.
const (
	multiStrategyMinTypes = 2
	multiStrategyMinCount = 5
)

// KnownBot is a registry entry for a publicly identified bot.
type KnownBot struct {
	Address    string
	Name       string
	Strategies []domain.OpportunityType
	Verified   bool
	Chains     []string
}

// knownBots seeds the registry with publicly attributed searcher/builder
// addresses. A production deployment would refresh this from the database.
var knownBots = []KnownBot{
	{
		Address:    "0x000000000035B5e5ad9019092C665357240f594e",
		Name:       "Flashbots Alpha",
		Strategies: []domain.OpportunityType{domain.OpportunitySandwich, domain.OpportunityArbitrage, domain.OpportunityLiquidation},
		Verified:   true,
		Chains:     []string{"ethereum", "arbitrum", "optimism"},
	},
	{
		Address:    "0x6b75d8AF000000e20B7a7DDf000Ba900b4009A80",
		Name:       "Sandwich Master",
		Strategies: []domain.OpportunityType{domain.OpportunitySandwich},
		Verified:   true,
		Chains:     []string{"ethereum"},
	},
	{
		Address:    "0x00000000003b3cc22aF3aE1EAc0440BcEe416B40",
		Name:       "Arb Sniper",
		Strategies: []domain.OpportunityType{domain.OpportunityArbitrage},
		Verified:   true,
		Chains:     []string{"ethereum", "arbitrum", "base"},
	},
	{
		Address:    "0x5050f69a9786F081509234F1a7F4684b5E5b76C9",
		Name:       "Liquidation Bot Alpha",
		Strategies: []domain.OpportunityType{domain.OpportunityLiquidation},
		Verified:   true,
		Chains:     []string{"ethereum", "polygon"},
	},
	{
		Address:    "0x57757E3D981446D585Af0D9Ae4d7DF6D64647806",
		Name:       "Aave Liquidator",
		Strategies: []domain.OpportunityType{domain.OpportunityLiquidation},
		Verified:   true,
		Chains:     []string{"ethereum", "polygon", "avalanche"},
	},
}

// Identifier classifies addresses as known bots, multi-strategy operators,
// or unverified heuristic matches.
type Identifier struct {
	registry map[common.Address]KnownBot
}

// NewIdentifier builds the identifier from the seeded registry.
func NewIdentifier() *Identifier {
	reg := make(map[common.Address]KnownBot, len(knownBots))
	for _, b := range knownBots {
		reg[common.HexToAddress(b.Address)] = b
	}
	return &Identifier{registry: reg}
}

// Identify classifies an address. history maps pattern types to how many
// opportunities of that type the address has been observed running.
func (i *Identifier) Identify(address string, history map[domain.OpportunityType]int) domain.BotIdentity {
	normalized := domain.NormalizeAddress(address)

	if known, ok := i.registry[common.HexToAddress(address)]; ok {
		return domain.BotIdentity{
			Address:       normalized,
			Name:          known.Name,
			Verified:      known.Verified,
			MultiStrategy: len(known.Strategies) >= multiStrategyMinTypes,
			Strategies:    known.Strategies,
			Confidence:    knownBotConfidence,
		}
	}

	var strategies []domain.OpportunityType
	for _, t := range domain.OpportunityTypes() {
		if history[t] >= multiStrategyMinCount {
			strategies = append(strategies, t)
		}
	}

	return domain.BotIdentity{
		Address:       normalized,
		MultiStrategy: len(strategies) >= multiStrategyMinTypes,
		Strategies:    strategies,
		Confidence:    heuristicBotConfidence,
	}
}

// IsKnown reports whether the address is in the seeded registry.
func (i *Identifier) IsKnown(address string) bool {
	_, ok := i.registry[common.HexToAddress(address)]
	return ok
}
