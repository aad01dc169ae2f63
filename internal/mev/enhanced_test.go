package mev

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFactorWeightsValidate(t *testing.T) {
	if err := DefaultFactorWeights().Validate(); err != nil {
		t.Errorf("default weights should validate: %v", err)
	}

	bad := FactorWeights{GasPrice: 0.5, Timing: 0.5, Volume: 0.5}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for weights summing to 1.5")
	}

	negative := FactorWeights{GasPrice: 1.2, Timing: -0.2}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestNewEnhancedScorerRejectsBadWeights(t *testing.T) {
	if _, err := NewEnhancedScorer(FactorWeights{GasPrice: 1.5}); err == nil {
		t.Error("expected error for invalid weights")
	}
}

func TestEnhancedScore(t *testing.T) {
	scorer, err := NewEnhancedScorer(DefaultFactorWeights())
	if err != nil {
		t.Fatalf("NewEnhancedScorer: %v", err)
	}

	// Every factor saturated except historical (neutral 0.5):
	// (0.25 + 0.20 + 0.20 + 0.20 + 0.15*0.5) * 100 = 92.5
	strong := Factors{
		GasRatio:            3,
		BlockDistance:       0,
		WindowBlocks:        2,
		VolumeUSD:           10_000,
		VolumeThresholdUSD:  10_000,
		PoolLiquidityUSD:    1_000_000,
		TradeSizeUSD:        10_000,
		HistoricalPrecision: 0.5,
	}
	if got := scorer.Score(strong); !almostEqual(got, 92.5) {
		t.Errorf("expected 92.5 for saturated factors, got %v", got)
	}

	// Zero-value factors still land on the neutral fallbacks: timing with
	// no window defaults full, volume with no threshold is 0.5, historical
	// defaults to 0.5: (0.20 + 0.5*0.20 + 0.5*0.15) * 100 = 37.5
	if got := scorer.Score(Factors{}); !almostEqual(got, 37.5) {
		t.Errorf("expected 37.5 for zero factors, got %v", got)
	}
}

func TestEnhancedScoreClamped(t *testing.T) {
	scorer, err := NewEnhancedScorer(FactorWeights{GasPrice: 1})
	if err != nil {
		t.Fatalf("NewEnhancedScorer: %v", err)
	}
	f := Factors{GasRatio: 50}
	if got := scorer.Score(f); got != 100 {
		t.Errorf("expected clamp at 100, got %v", got)
	}
}

func TestGasFactor(t *testing.T) {
	if got := gasFactor(0); got != 0 {
		t.Errorf("zero ratio: expected 0, got %v", got)
	}
	if got := gasFactor(1.5); !almostEqual(got, 0.5) {
		t.Errorf("1.5x ratio: expected 0.5, got %v", got)
	}
	if got := gasFactor(6); got != 1 {
		t.Errorf("6x ratio: expected saturation at 1, got %v", got)
	}
}

func TestTimingFactor(t *testing.T) {
	if got := timingFactor(0, 4); got != 1 {
		t.Errorf("same block: expected 1, got %v", got)
	}
	if got := timingFactor(2, 4); !almostEqual(got, 0.5) {
		t.Errorf("half window: expected 0.5, got %v", got)
	}
	if got := timingFactor(10, 4); got != 0 {
		t.Errorf("beyond window: expected 0, got %v", got)
	}
}

func TestLiquidityFactor(t *testing.T) {
	// Trade at 1/10th of pool depth is fully trusted.
	if got := liquidityFactor(100_000, 10_000); got != 1 {
		t.Errorf("deep pool: expected 1, got %v", got)
	}
	// Trade matching pool depth scores 0.1.
	if got := liquidityFactor(10_000, 10_000); !almostEqual(got, 0.1) {
		t.Errorf("shallow pool: expected 0.1, got %v", got)
	}
	if got := liquidityFactor(0, 10_000); got != 0 {
		t.Errorf("unknown liquidity: expected 0, got %v", got)
	}
}

func TestHistoricalFactor(t *testing.T) {
	if got := historicalFactor(0); got != 0.5 {
		t.Errorf("no history: expected neutral 0.5, got %v", got)
	}
	if got := historicalFactor(0.8); !almostEqual(got, 0.8) {
		t.Errorf("expected pass-through 0.8, got %v", got)
	}
	if got := historicalFactor(1.3); got != 1 {
		t.Errorf("over 1: expected clamp to 1, got %v", got)
	}
}
