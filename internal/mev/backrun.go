package mev

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mevlens/mevlens/internal/domain"
)

// maxBackrunIndexGap is how many tx slots behind the target a same-block
// backrun may land and still count as adjacent.
const maxBackrunIndexGap = 2

// BackrunDetector finds swaps that capture the price displacement left by a
// preceding target swap: opposite direction on the same pool, landing right
// behind the target at equal or lower gas. Backruns have no victim; the
// follower trades against a stale price, not against a person.
type BackrunDetector struct {
	cfg    *Config
	scorer *EnhancedScorer
}

// NewBackrunDetector returns a detector using the shared tuning config.
func NewBackrunDetector(cfg *Config, scorer *EnhancedScorer) *BackrunDetector {
	return &BackrunDetector{cfg: cfg, scorer: scorer}
}

func (d *BackrunDetector) Name() domain.OpportunityType { return domain.OpportunityBackrun }

// Detect scans each pool's swap sequence for target/follower pairs.
func (d *BackrunDetector) Detect(ctx context.Context, batch Batch) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	params := d.cfg.ChainParamsFor(batch.ChainID)

	for _, group := range groupByPool(batch.Swaps) {
		if len(group) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for ti := 0; ti < len(group)-1; ti++ {
			target := group[ti]
			if target.AmountInUSD < params.MinSwapVolumeUSD {
				continue
			}
			for bi := ti + 1; bi < len(group); bi++ {
				follower := group[bi]
				dist := int(follower.BlockNumber - target.BlockNumber)
				if dist > 1 {
					break
				}
				if dist == 0 && follower.TxIndex-target.TxIndex > maxBackrunIndexGap {
					continue
				}
				if follower.Sender == target.Sender {
					continue
				}
				if !follower.OppositeDirection(target) {
					continue
				}
				if follower.GasPriceGwei > target.GasPriceGwei {
					continue
				}

				if opp, ok := d.build(batch, params, target, follower, dist); ok {
					opps = append(opps, opp)
				}
				break
			}
		}
	}
	return opps, nil
}

func (d *BackrunDetector) build(batch Batch, params ChainParams, target, follower domain.Swap, dist int) (domain.Opportunity, bool) {
	impact := PriceImpact(target.AmountInUSD, target.PoolLiquidityUSD)
	breakdown := ProfitBreakdown{
		GrossUSD: follower.AmountInUSD * impact,
		GasUSD:   follower.GasCostUSD,
	}
	net := breakdown.Net()
	if net < d.cfg.MinNetProfitUSD {
		return domain.Opportunity{}, false
	}

	adjacent := dist == 0 && follower.TxIndex-target.TxIndex <= maxBackrunIndexGap
	evidence := []Evidence{
		{Name: "adjacency", Weight: 30, Present: adjacent || dist == 1},
		{Name: "gas_pattern", Weight: 25, Present: follower.GasPriceGwei <= target.GasPriceGwei},
		{Name: "direction", Weight: 25, Present: follower.OppositeDirection(target)},
		{Name: "profit", Weight: 20, Present: net > 0},
	}

	gasRatio := 0.0
	if batch.BaselineGasGwei > 0 {
		gasRatio = follower.GasPriceGwei / batch.BaselineGasGwei
	}
	factors := Factors{
		GasRatio:            gasRatio,
		BlockDistance:       dist,
		WindowBlocks:        CongestionFor(batch.BaselineGasGwei).WindowBlocks,
		VolumeUSD:           follower.AmountInUSD,
		VolumeThresholdUSD:  params.MinSwapVolumeUSD,
		PoolLiquidityUSD:    target.PoolLiquidityUSD,
		TradeSizeUSD:        follower.AmountInUSD,
		HistoricalPrecision: d.cfg.Thresholds.HistoricalPrecision(d.Name()),
	}

	conf := confidence(d.cfg, d.scorer, evidence, factors)
	if conf < d.cfg.EffectiveMinConfidence(d.Name(), net) {
		return domain.Opportunity{}, false
	}

	return domain.Opportunity{
		ID:              uuid.NewString(),
		ChainID:         batch.ChainID,
		OpportunityType: domain.OpportunityBackrun,
		BlockNumber:     follower.BlockNumber,
		Timestamp:       follower.Timestamp,
		BotAddress:      domain.NormalizeAddress(follower.Sender),
		TargetTxHash:    domain.NormalizeHash(target.TxHash),
		MEVTxHashes:     []string{domain.NormalizeHash(follower.TxHash)},
		ProtocolID:      follower.ProtocolID,
		ProtocolName:    follower.ProtocolName,
		DEXName:         follower.DEXName,
		TokenAddresses:  []string{follower.TokenIn, follower.TokenOut},
		TokenSymbols:    []string{follower.TokenInSymbol, follower.TokenOutSymbol},
		GrossProfitUSD:  breakdown.GrossUSD,
		GasCostUSD:      breakdown.GasUSD,
		NetProfitUSD:    net,
		ProfitTier:      d.cfg.TierFor(net).Name,
		ConfidenceScore: conf,
		DetectedAt:      time.Now().UTC(),
	}, true
}
