// Package mev implements the MEV pattern detectors and their supporting
// scoring, profit, and simulation engines.
package mev

import (
	"fmt"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

// Tier is one profit bucket with its persistence confidence floor. Small
// profits need near-certain evidence; whale-sized extractions are worth
// recording at lower confidence.
type Tier struct {
	Name          domain.ProfitTier
	MinUSD        float64
	MaxUSD        float64 // exclusive; <= 0 means unbounded
	MinConfidence float64
}

// DefaultTiers returns the standard profit tier table.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: domain.TierMicro, MinUSD: 0, MaxUSD: 100, MinConfidence: 90},
		{Name: domain.TierSmall, MinUSD: 100, MaxUSD: 1_000, MinConfidence: 85},
		{Name: domain.TierMedium, MinUSD: 1_000, MaxUSD: 10_000, MinConfidence: 75},
		{Name: domain.TierLarge, MinUSD: 10_000, MaxUSD: 100_000, MinConfidence: 65},
		{Name: domain.TierWhale, MinUSD: 100_000, MaxUSD: 0, MinConfidence: 60},
	}
}

// Congestion describes network load derived from the prevailing gas price.
// Under load, frontrunners pay steeper premiums and patterns stretch over
// more blocks, so detection windows widen with congestion.
type Congestion struct {
	Name          string
	MaxGasGwei    float64 // exclusive upper bound; <= 0 means unbounded
	GasMultiplier float64 // attacker gas premium required over the victim
	WindowBlocks  int     // timing window for cross-block patterns
}

var congestionLevels = []Congestion{
	{Name: "low", MaxGasGwei: 30, GasMultiplier: 1.10, WindowBlocks: 2},
	{Name: "medium", MaxGasGwei: 100, GasMultiplier: 1.25, WindowBlocks: 3},
	{Name: "high", MaxGasGwei: 300, GasMultiplier: 1.50, WindowBlocks: 5},
	{Name: "extreme", MaxGasGwei: 0, GasMultiplier: 2.00, WindowBlocks: 8},
}

// CongestionFor classifies a baseline gas price.
func CongestionFor(gasGwei float64) Congestion {
	for _, c := range congestionLevels {
		if c.MaxGasGwei > 0 && gasGwei < c.MaxGasGwei {
			return c
		}
	}
	return congestionLevels[len(congestionLevels)-1]
}

// ChainParams holds per-chain detection parameters.
type ChainParams struct {
	ChainID          string
	BlockTime        time.Duration
	MinSwapVolumeUSD float64
}

// DefaultChains returns parameters for the supported chains.
func DefaultChains() map[string]ChainParams {
	return map[string]ChainParams{
		"ethereum": {ChainID: "ethereum", BlockTime: 12 * time.Second, MinSwapVolumeUSD: 10_000},
		"arbitrum": {ChainID: "arbitrum", BlockTime: 250 * time.Millisecond, MinSwapVolumeUSD: 5_000},
		"optimism": {ChainID: "optimism", BlockTime: 2 * time.Second, MinSwapVolumeUSD: 5_000},
		"base":     {ChainID: "base", BlockTime: 2 * time.Second, MinSwapVolumeUSD: 2_500},
		"polygon":  {ChainID: "polygon", BlockTime: 2100 * time.Millisecond, MinSwapVolumeUSD: 1_000},
	}
}

// ThresholdProvider adapts tier confidence floors using observed detector
// precision. The accuracy tracker implements this; StaticThresholds is the
// no-history fallback.
type ThresholdProvider interface {
	MinConfidence(detector domain.OpportunityType, tier domain.ProfitTier, base float64) float64
	HistoricalPrecision(detector domain.OpportunityType) float64
}

// StaticThresholds returns base thresholds unchanged and a neutral
// historical precision.
type StaticThresholds struct{}

func (StaticThresholds) MinConfidence(_ domain.OpportunityType, _ domain.ProfitTier, base float64) float64 {
	return base
}

func (StaticThresholds) HistoricalPrecision(domain.OpportunityType) float64 { return 0.5 }

// Config is the tuning surface shared by all detectors.
type Config struct {
	// MinNetProfitUSD is the floor below which detections are discarded.
	MinNetProfitUSD float64

	// MinSpreadPct is the arbitrage price spread threshold, in percent.
	MinSpreadPct float64

	// ArbDepthPct is the fraction of the shallower pool's liquidity assumed
	// tradable in an arbitrage leg.
	ArbDepthPct float64

	// ArbGasEstimateUSD approximates two-leg execution gas for latent
	// (not yet executed) arbitrage opportunities.
	ArbGasEstimateUSD float64

	// FeePctPerLeg is the swap fee per leg, in percent.
	FeePctPerLeg float64

	Tiers  []Tier
	Chains map[string]ChainParams

	Weights         FactorWeights
	EnhancedScoring bool
	Thresholds      ThresholdProvider
}

// DefaultConfig returns detection defaults.
func DefaultConfig() *Config {
	return &Config{
		MinNetProfitUSD:   100,
		MinSpreadPct:      0.5,
		ArbDepthPct:       0.01,
		ArbGasEstimateUSD: 25,
		FeePctPerLeg:      0.3,
		Tiers:             DefaultTiers(),
		Chains:            DefaultChains(),
		Weights:           DefaultFactorWeights(),
		EnhancedScoring:   true,
		Thresholds:        StaticThresholds{},
	}
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if c.MinNetProfitUSD < 0 {
		return fmt.Errorf("mev: min net profit must be >= 0, got %f", c.MinNetProfitUSD)
	}
	if c.MinSpreadPct <= 0 {
		return fmt.Errorf("mev: min spread must be > 0, got %f", c.MinSpreadPct)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("mev: at least one profit tier required")
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateChains checks that every chain id has detection parameters.
// Scanning a chain without them is a configuration error, caught before any
// work starts rather than silently scanned with another chain's tuning.
func (c *Config) ValidateChains(chainIDs []string) error {
	for _, id := range chainIDs {
		if _, ok := c.Chains[id]; !ok {
			return fmt.Errorf("mev: unknown chain %q: no chain parameters configured", id)
		}
	}
	return nil
}

// TierFor buckets a net profit into its tier.
func (c *Config) TierFor(netUSD float64) Tier {
	for _, t := range c.Tiers {
		if netUSD >= t.MinUSD && (t.MaxUSD <= 0 || netUSD < t.MaxUSD) {
			return t
		}
	}
	return c.Tiers[len(c.Tiers)-1]
}

// EffectiveMinConfidence returns the tier's confidence floor after adaptive
// adjustment, clamped to [0, 100].
func (c *Config) EffectiveMinConfidence(detector domain.OpportunityType, netUSD float64) float64 {
	tier := c.TierFor(netUSD)
	min := c.Thresholds.MinConfidence(detector, tier.Name, tier.MinConfidence)
	if min < 0 {
		return 0
	}
	if min > 100 {
		return 100
	}
	return min
}

// ChainParamsFor returns the chain's parameters, falling back to ethereum
// defaults for unknown chains.
func (c *Config) ChainParamsFor(chainID string) ChainParams {
	if p, ok := c.Chains[chainID]; ok {
		return p
	}
	return ChainParams{ChainID: chainID, BlockTime: 12 * time.Second, MinSwapVolumeUSD: 10_000}
}
