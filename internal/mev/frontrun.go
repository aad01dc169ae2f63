package mev

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mevlens/mevlens/internal/domain"
)

// Frontrun floors. Congestion can raise the premium bar and shrink the
// block window, but never admits pairs below these.
const (
	minTargetValueUSD = 10_000
	minPriceImpactPct = 1.0
	minGasPremium     = 1.2
	maxFrontrunLead   = 30 * time.Second
)

// FrontrunDetector finds attacker/victim pairs where the attacker copies a
// pending high-value swap and outbids it on gas, landing first on the same
// pool in the same direction within seconds of the victim.
type FrontrunDetector struct {
	cfg    *Config
	scorer *EnhancedScorer
}

// NewFrontrunDetector returns a detector using the shared tuning config.
func NewFrontrunDetector(cfg *Config, scorer *EnhancedScorer) *FrontrunDetector {
	return &FrontrunDetector{cfg: cfg, scorer: scorer}
}

func (d *FrontrunDetector) Name() domain.OpportunityType { return domain.OpportunityFrontrun }

// Detect scans each pool's swap sequence for frontrun pairs.
func (d *FrontrunDetector) Detect(ctx context.Context, batch Batch) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	params := d.cfg.ChainParamsFor(batch.ChainID)
	cong := CongestionFor(batch.BaselineGasGwei)
	valueFloor := targetValueFloor(params)
	premium := gasPremiumFor(cong)

	for _, group := range groupByPool(batch.Swaps) {
		if len(group) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for vi := 1; vi < len(group); vi++ {
			victim := group[vi]
			if victim.AmountInUSD < valueFloor {
				continue
			}
			for ai := vi - 1; ai >= 0; ai-- {
				attacker := group[ai]
				dist := int(victim.BlockNumber - attacker.BlockNumber)
				if dist > cong.WindowBlocks {
					break // group is ordered; everything earlier is further away
				}
				if dist == 0 && attacker.TxIndex >= victim.TxIndex {
					continue
				}
				lead := victim.Timestamp.Sub(attacker.Timestamp)
				if lead < 0 || lead > maxFrontrunLead {
					continue
				}
				if attacker.Sender == victim.Sender {
					continue
				}
				if !attacker.SameDirection(victim) {
					continue
				}
				if attacker.GasPriceGwei < victim.GasPriceGwei*premium {
					continue
				}

				if opp, ok := d.build(batch, params, cong, attacker, victim, dist); ok {
					opps = append(opps, opp)
				}
				break // nearest qualifying attacker wins
			}
		}
	}
	return opps, nil
}

// targetValueFloor keeps the high-value bar at the larger of the chain's
// significance floor and the global minimum.
func targetValueFloor(params ChainParams) float64 {
	if params.MinSwapVolumeUSD > minTargetValueUSD {
		return params.MinSwapVolumeUSD
	}
	return minTargetValueUSD
}

// gasPremiumFor raises the premium bar with congestion without ever letting
// it drop below the global floor.
func gasPremiumFor(cong Congestion) float64 {
	if cong.GasMultiplier > minGasPremium {
		return cong.GasMultiplier
	}
	return minGasPremium
}

func (d *FrontrunDetector) build(batch Batch, params ChainParams, cong Congestion, attacker, victim domain.Swap, dist int) (domain.Opportunity, bool) {
	// The attacker profits from the price move its own swap induces, which
	// the victim then pays. Moves under the impact floor are noise.
	impact := PriceImpact(attacker.AmountInUSD, attacker.PoolLiquidityUSD)
	if impact*100 < minPriceImpactPct {
		return domain.Opportunity{}, false
	}
	breakdown := ProfitBreakdown{
		GrossUSD: attacker.AmountInUSD * impact,
		GasUSD:   attacker.GasCostUSD,
	}
	net := breakdown.Net()
	if net < d.cfg.MinNetProfitUSD {
		return domain.Opportunity{}, false
	}

	victimLoss := victim.AmountInUSD * impact

	evidence := []Evidence{
		{Name: "high_value_target", Weight: 25, Present: victim.AmountInUSD >= targetValueFloor(params)},
		{Name: "price_impact", Weight: 25, Present: impact*100 >= minPriceImpactPct},
		{Name: "gas_premium", Weight: 20, Present: attacker.GasPriceGwei >= victim.GasPriceGwei*gasPremiumFor(cong)},
		{Name: "timing", Weight: 15, Present: victim.Timestamp.Sub(attacker.Timestamp) <= maxFrontrunLead},
		{Name: "profit", Weight: 15, Present: net > 0},
	}

	gasRatio := 0.0
	if victim.GasPriceGwei > 0 {
		gasRatio = attacker.GasPriceGwei / victim.GasPriceGwei
	}
	factors := Factors{
		GasRatio:            gasRatio,
		BlockDistance:       dist,
		WindowBlocks:        cong.WindowBlocks,
		VolumeUSD:           attacker.AmountInUSD,
		VolumeThresholdUSD:  params.MinSwapVolumeUSD,
		PoolLiquidityUSD:    attacker.PoolLiquidityUSD,
		TradeSizeUSD:        attacker.AmountInUSD,
		HistoricalPrecision: d.cfg.Thresholds.HistoricalPrecision(d.Name()),
	}

	conf := confidence(d.cfg, d.scorer, evidence, factors)
	if conf < d.cfg.EffectiveMinConfidence(d.Name(), net) {
		return domain.Opportunity{}, false
	}

	return domain.Opportunity{
		ID:              uuid.NewString(),
		ChainID:         batch.ChainID,
		OpportunityType: domain.OpportunityFrontrun,
		BlockNumber:     attacker.BlockNumber,
		Timestamp:       attacker.Timestamp,
		BotAddress:      domain.NormalizeAddress(attacker.Sender),
		VictimAddress:   domain.NormalizeAddress(victim.Sender),
		TargetTxHash:    domain.NormalizeHash(victim.TxHash),
		MEVTxHashes:     []string{domain.NormalizeHash(attacker.TxHash)},
		ProtocolID:      attacker.ProtocolID,
		ProtocolName:    attacker.ProtocolName,
		DEXName:         attacker.DEXName,
		TokenAddresses:  []string{attacker.TokenIn, attacker.TokenOut},
		TokenSymbols:    []string{attacker.TokenInSymbol, attacker.TokenOutSymbol},
		GrossProfitUSD:  breakdown.GrossUSD,
		GasCostUSD:      breakdown.GasUSD,
		NetProfitUSD:    net,
		VictimLossUSD:   victimLoss,
		ProfitTier:      d.cfg.TierFor(net).Name,
		ConfidenceScore: conf,
		DetectedAt:      time.Now().UTC(),
	}, true
}
