package mev

import (
	"fmt"
	"math"
)

// FactorWeights weight the five continuous scoring factors. They must sum
// to 1.0.
type FactorWeights struct {
	GasPrice   float64
	Timing     float64
	Volume     float64
	Liquidity  float64
	Historical float64
}

// DefaultFactorWeights returns the standard weighting.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		GasPrice:   0.25,
		Timing:     0.20,
		Volume:     0.20,
		Liquidity:  0.20,
		Historical: 0.15,
	}
}

// Validate checks that the weights sum to 1.0 within floating point noise.
func (w FactorWeights) Validate() error {
	sum := w.GasPrice + w.Timing + w.Volume + w.Liquidity + w.Historical
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("mev: factor weights must sum to 1.0, got %f", sum)
	}
	for name, v := range map[string]float64{
		"gas_price": w.GasPrice, "timing": w.Timing, "volume": w.Volume,
		"liquidity": w.Liquidity, "historical": w.Historical,
	} {
		if v < 0 {
			return fmt.Errorf("mev: factor weight %s must be >= 0, got %f", name, v)
		}
	}
	return nil
}

// Factors are the raw inputs to the enhanced scorer, filled by each detector
// from the pattern it matched.
type Factors struct {
	// GasRatio is attacker gas price over the block's baseline.
	GasRatio float64

	// BlockDistance is how many blocks separate the pattern's legs;
	// WindowBlocks is the congestion-derived detection window.
	BlockDistance int
	WindowBlocks  int

	// VolumeUSD against the chain's significance threshold.
	VolumeUSD          float64
	VolumeThresholdUSD float64

	// Pool depth versus the trade riding on it.
	PoolLiquidityUSD float64
	TradeSizeUSD     float64

	// HistoricalPrecision is the detector's observed precision in [0, 1].
	HistoricalPrecision float64
}

// EnhancedScorer converts continuous pattern factors into a confidence
// score. Each factor is normalized to [0, 1], weighted, and scaled to 100.
type EnhancedScorer struct {
	weights FactorWeights
}

// NewEnhancedScorer validates the weights and returns a scorer.
func NewEnhancedScorer(w FactorWeights) (*EnhancedScorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &EnhancedScorer{weights: w}, nil
}

// Score computes the weighted confidence, clamped to [0, 100].
func (s *EnhancedScorer) Score(f Factors) float64 {
	score := gasFactor(f.GasRatio)*s.weights.GasPrice +
		timingFactor(f.BlockDistance, f.WindowBlocks)*s.weights.Timing +
		volumeFactor(f.VolumeUSD, f.VolumeThresholdUSD)*s.weights.Volume +
		liquidityFactor(f.PoolLiquidityUSD, f.TradeSizeUSD)*s.weights.Liquidity +
		historicalFactor(f.HistoricalPrecision)*s.weights.Historical

	score *= 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// gasFactor saturates at a 3x premium over baseline.
func gasFactor(ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	return math.Min(ratio/3.0, 1)
}

// timingFactor decays linearly as legs drift apart within the window.
func timingFactor(distance, window int) float64 {
	if window <= 0 {
		window = 1
	}
	if distance < 0 {
		distance = 0
	}
	f := 1 - float64(distance)/float64(window)
	if f < 0 {
		return 0
	}
	return f
}

// volumeFactor is log-scaled so a volume at the chain threshold scores 1.0
// and smaller trades taper off rather than cliff.
func volumeFactor(volumeUSD, thresholdUSD float64) float64 {
	if thresholdUSD <= 0 {
		return 0.5
	}
	if volumeUSD <= 0 {
		return 0
	}
	f := math.Log10(1 + 9*volumeUSD/thresholdUSD)
	return math.Min(f, 1)
}

// liquidityFactor rewards trades small relative to pool depth, where price
// observations are trustworthy.
func liquidityFactor(liquidityUSD, tradeUSD float64) float64 {
	if tradeUSD <= 0 || liquidityUSD <= 0 {
		return 0
	}
	return math.Min(liquidityUSD/(tradeUSD*10), 1)
}

// historicalFactor passes through observed precision, defaulting to neutral
// when no validation history exists.
func historicalFactor(precision float64) float64 {
	if precision <= 0 {
		return 0.5
	}
	if precision > 1 {
		return 1
	}
	return precision
}
