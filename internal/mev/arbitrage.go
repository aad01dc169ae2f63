package mev

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mevlens/mevlens/internal/domain"
)

// ArbitrageDetector finds cross-DEX price discrepancies: the same token pair
// quoted on two or more pools in one block with a spread wide enough to
// clear fees and gas. These are latent opportunities; no bot has executed
// them yet, so records carry no bot address.
type ArbitrageDetector struct {
	cfg    *Config
	scorer *EnhancedScorer
	sim    *Simulator
}

// NewArbitrageDetector returns a detector using the shared tuning config.
func NewArbitrageDetector(cfg *Config, scorer *EnhancedScorer) *ArbitrageDetector {
	return &ArbitrageDetector{cfg: cfg, scorer: scorer, sim: NewSimulator()}
}

func (d *ArbitrageDetector) Name() domain.OpportunityType { return domain.OpportunityArbitrage }

// pairKey identifies a token pair regardless of pool ordering.
func pairKey(p domain.PoolPrice) string {
	a, b := p.Token0, p.Token1
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

// Detect compares every pool pair quoting the same tokens at the same block.
func (d *ArbitrageDetector) Detect(ctx context.Context, batch Batch) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	params := d.cfg.ChainParamsFor(batch.ChainID)

	type blockPair struct {
		Block int64
		Pair  string
	}
	groups := make(map[blockPair][]domain.PoolPrice)
	for _, p := range batch.PoolPrices {
		if p.Price <= 0 {
			continue
		}
		k := blockPair{Block: p.BlockNumber, Pair: pairKey(p)}
		groups[k] = append(groups[k], p)
	}

	for _, pools := range groups {
		if len(pools) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sort.Slice(pools, func(i, j int) bool { return pools[i].PoolAddress < pools[j].PoolAddress })

		for i := 0; i < len(pools)-1; i++ {
			for j := i + 1; j < len(pools); j++ {
				cheap, dear := pools[i], pools[j]
				if cheap.Price > dear.Price {
					cheap, dear = dear, cheap
				}
				spreadPct := (dear.Price - cheap.Price) / cheap.Price * 100
				if spreadPct < d.cfg.MinSpreadPct {
					continue
				}

				if opp, ok := d.build(batch, params, cheap, dear, spreadPct); ok {
					opps = append(opps, opp)
				}
			}
		}
	}
	return opps, nil
}

func (d *ArbitrageDetector) build(batch Batch, params ChainParams, cheap, dear domain.PoolPrice, spreadPct float64) (domain.Opportunity, bool) {
	depth := math.Min(cheap.LiquidityUSD, dear.LiquidityUSD)
	volume := depth * d.cfg.ArbDepthPct
	if volume <= 0 {
		return domain.Opportunity{}, false
	}

	breakdown := ProfitBreakdown{
		GrossUSD:        volume * spreadPct / 100,
		GasUSD:          d.cfg.ArbGasEstimateUSD,
		ProtocolFeesUSD: volume * (d.cfg.FeePctPerLeg * 2) / 100,
	}
	net := breakdown.Net()
	if net < d.cfg.MinNetProfitUSD {
		return domain.Opportunity{}, false
	}

	// The headline spread ignores the price impact of actually trading it.
	// Simulate the execution and drop candidates that would not survive it.
	sim := d.sim.SimulateArbitrage(spreadPct, volume, depth, d.cfg.ArbGasEstimateUSD, d.cfg.FeePctPerLeg*2)
	if !sim.Viable {
		return domain.Opportunity{}, false
	}

	evidence := []Evidence{
		{Name: "spread", Weight: 35, Present: spreadPct >= d.cfg.MinSpreadPct},
		{Name: "volume", Weight: 25, Present: volume >= params.MinSwapVolumeUSD},
		{Name: "same_block", Weight: 20, Present: cheap.BlockNumber == dear.BlockNumber},
		{Name: "profit", Weight: 20, Present: net > 0},
	}

	factors := Factors{
		// Latent opportunities have no attacker tx; treat gas as baseline.
		GasRatio:            1,
		BlockDistance:       0,
		WindowBlocks:        CongestionFor(batch.BaselineGasGwei).WindowBlocks,
		VolumeUSD:           volume,
		VolumeThresholdUSD:  params.MinSwapVolumeUSD,
		PoolLiquidityUSD:    depth,
		TradeSizeUSD:        volume,
		HistoricalPrecision: d.cfg.Thresholds.HistoricalPrecision(d.Name()),
	}

	conf := confidence(d.cfg, d.scorer, evidence, factors)
	if conf < d.cfg.EffectiveMinConfidence(d.Name(), net) {
		return domain.Opportunity{}, false
	}

	// No tx anchors a latent spread, so the dedup key is synthesized from
	// the block and the two pools.
	target := fmt.Sprintf("%d:%s:%s", cheap.BlockNumber, cheap.PoolAddress, dear.PoolAddress)

	return domain.Opportunity{
		ID:              uuid.NewString(),
		ChainID:         batch.ChainID,
		OpportunityType: domain.OpportunityArbitrage,
		BlockNumber:     cheap.BlockNumber,
		Timestamp:       time.Now().UTC(),
		TargetTxHash:    target,
		ProtocolID:      cheap.ProtocolID,
		ProtocolName:    cheap.ProtocolName,
		DEXName:         cheap.DEXName + "/" + dear.DEXName,
		TokenAddresses:  []string{cheap.Token0, cheap.Token1},
		TokenSymbols:    []string{cheap.Token0Symbol, cheap.Token1Symbol},
		GrossProfitUSD:  breakdown.GrossUSD,
		GasCostUSD:      breakdown.GasUSD,
		NetProfitUSD:    net,
		ProfitTier:      d.cfg.TierFor(net).Name,
		ConfidenceScore: conf,
		DetectedAt:      time.Now().UTC(),
	}, true
}
