package mev

import (
	"testing"

	"github.com/mevlens/mevlens/internal/domain"
)

func TestTierFor(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		net  float64
		want domain.ProfitTier
	}{
		{0, domain.TierMicro},
		{99.99, domain.TierMicro},
		{100, domain.TierSmall},
		{999.99, domain.TierSmall},
		{1_000, domain.TierMedium},
		{10_000, domain.TierLarge},
		{99_999.99, domain.TierLarge},
		{100_000, domain.TierWhale},
		{5_000_000, domain.TierWhale},
	}
	for _, c := range cases {
		if got := cfg.TierFor(c.net); got.Name != c.want {
			t.Errorf("TierFor(%v) = %s, want %s", c.net, got.Name, c.want)
		}
	}
}

func TestTierConfidenceFloors(t *testing.T) {
	cfg := DefaultConfig()
	// Floors decrease as profit grows; small extractions need near-certain
	// evidence.
	if got := cfg.TierFor(50).MinConfidence; got != 90 {
		t.Errorf("micro floor = %v, want 90", got)
	}
	if got := cfg.TierFor(500_000).MinConfidence; got != 60 {
		t.Errorf("whale floor = %v, want 60", got)
	}
}

func TestCongestionFor(t *testing.T) {
	cases := []struct {
		gwei       float64
		wantName   string
		wantWindow int
	}{
		{10, "low", 2},
		{29.99, "low", 2},
		{30, "medium", 3},
		{99.99, "medium", 3},
		{100, "high", 5},
		{299.99, "high", 5},
		{300, "extreme", 8},
		{1_000, "extreme", 8},
	}
	for _, c := range cases {
		got := CongestionFor(c.gwei)
		if got.Name != c.wantName || got.WindowBlocks != c.wantWindow {
			t.Errorf("CongestionFor(%v) = %s/%d, want %s/%d",
				c.gwei, got.Name, got.WindowBlocks, c.wantName, c.wantWindow)
		}
	}
}

func TestCongestionMultipliers(t *testing.T) {
	if got := CongestionFor(10).GasMultiplier; got != 1.10 {
		t.Errorf("low multiplier = %v, want 1.10", got)
	}
	if got := CongestionFor(500).GasMultiplier; got != 2.00 {
		t.Errorf("extreme multiplier = %v, want 2.00", got)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg := DefaultConfig()
	cfg.MinSpreadPct = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero spread")
	}

	cfg = DefaultConfig()
	cfg.Tiers = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty tiers")
	}

	cfg = DefaultConfig()
	cfg.Weights.GasPrice = 0.9
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bad weights")
	}
}

func TestChainParamsFor(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ChainParamsFor("ethereum").MinSwapVolumeUSD; got != 10_000 {
		t.Errorf("ethereum threshold = %v, want 10000", got)
	}
	// Unknown chains fall back to ethereum-like defaults. ValidateChains
	// keeps configured scan targets from ever reaching this path.
	fallback := cfg.ChainParamsFor("unknownchain")
	if fallback.ChainID != "unknownchain" || fallback.MinSwapVolumeUSD != 10_000 {
		t.Errorf("fallback params = %+v", fallback)
	}
}

func TestValidateChains(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateChains([]string{"ethereum", "base"}); err != nil {
		t.Errorf("known chains should validate: %v", err)
	}
	if err := cfg.ValidateChains([]string{"ethereum", "unknownchain"}); err == nil {
		t.Error("expected error for chain without parameters")
	}
}

// raisingThresholds forces every floor above 100 to exercise the clamp.
type raisingThresholds struct{}

func (raisingThresholds) MinConfidence(domain.OpportunityType, domain.ProfitTier, float64) float64 {
	return 150
}
func (raisingThresholds) HistoricalPrecision(domain.OpportunityType) float64 { return 0.5 }

func TestEffectiveMinConfidenceClamped(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.EffectiveMinConfidence(domain.OpportunitySandwich, 50); got != 90 {
		t.Errorf("static thresholds should pass base through, got %v", got)
	}

	cfg.Thresholds = raisingThresholds{}
	if got := cfg.EffectiveMinConfidence(domain.OpportunitySandwich, 50); got != 100 {
		t.Errorf("expected clamp at 100, got %v", got)
	}
}
