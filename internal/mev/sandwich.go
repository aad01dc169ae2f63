package mev

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mevlens/mevlens/internal/domain"
)

// sandwichMaxSpan caps the wall-clock distance between the two attacker
// legs. Bundles land within a block or two; anything wider is coincidence.
const sandwichMaxSpan = 60 * time.Second

// SandwichDetector finds frontrun/victim/backrun triples on one pool: an
// attacker brackets a victim swap, buying ahead of it and selling straight
// after, with both legs priced above the victim's gas.
type SandwichDetector struct {
	cfg    *Config
	scorer *EnhancedScorer
}

// NewSandwichDetector returns a detector using the shared tuning config.
func NewSandwichDetector(cfg *Config, scorer *EnhancedScorer) *SandwichDetector {
	return &SandwichDetector{cfg: cfg, scorer: scorer}
}

func (d *SandwichDetector) Name() domain.OpportunityType { return domain.OpportunitySandwich }

// Detect scans each pool's swap sequence for sandwich triples.
func (d *SandwichDetector) Detect(ctx context.Context, batch Batch) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	params := d.cfg.ChainParamsFor(batch.ChainID)

	for _, group := range groupByPool(batch.Swaps) {
		if len(group) < 3 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := 0; i < len(group)-2; i++ {
			front := group[i]
			matched := false
			for j := i + 1; j < len(group)-1 && !matched; j++ {
				victim := group[j]
				// An attacker cannot victimize its own wallet.
				if victim.Sender == front.Sender {
					continue
				}
				// Victim rides the same direction at lower gas.
				if !front.SameDirection(victim) || front.GasPriceGwei <= victim.GasPriceGwei {
					continue
				}
				for k := j + 1; k < len(group); k++ {
					back := group[k]
					if back.Sender != front.Sender {
						continue
					}
					if !back.OppositeDirection(front) {
						continue
					}
					// Both legs outbid the victim; a backrun priced below it
					// could not have been bundled with the frontrun.
					if back.GasPriceGwei <= victim.GasPriceGwei {
						continue
					}
					span := back.Timestamp.Sub(front.Timestamp)
					if span < 0 || span > sandwichMaxSpan {
						continue
					}

					if opp, ok := d.build(batch, params, front, victim, back); ok {
						opps = append(opps, opp)
					}
					matched = true
					break
				}
			}
		}
	}
	return opps, nil
}

func (d *SandwichDetector) build(batch Batch, params ChainParams, front, victim, back domain.Swap) (domain.Opportunity, bool) {
	breakdown := ProfitBreakdown{
		GrossUSD: back.AmountOutUSD - front.AmountInUSD,
		GasUSD:   front.GasCostUSD + back.GasCostUSD,
	}
	net := breakdown.Net()
	if net < d.cfg.MinNetProfitUSD {
		return domain.Opportunity{}, false
	}

	impact := PriceImpact(front.AmountInUSD, front.PoolLiquidityUSD)
	victimLoss := victim.AmountInUSD * impact

	evidence := []Evidence{
		{Name: "pattern_match", Weight: 30, Present: true},
		{Name: "gas_ordering", Weight: 20, Present: front.GasPriceGwei > victim.GasPriceGwei && back.GasPriceGwei > victim.GasPriceGwei},
		{Name: "token_pair", Weight: 20, Present: front.OppositeDirection(back)},
		{Name: "timing", Weight: 15, Present: back.Timestamp.Sub(front.Timestamp) <= sandwichMaxSpan},
		{Name: "profit", Weight: 15, Present: net > 0},
	}

	gasRatio := 0.0
	if batch.BaselineGasGwei > 0 {
		gasRatio = front.GasPriceGwei / batch.BaselineGasGwei
	}
	factors := Factors{
		GasRatio:            gasRatio,
		BlockDistance:       int(back.BlockNumber - front.BlockNumber),
		WindowBlocks:        CongestionFor(batch.BaselineGasGwei).WindowBlocks,
		VolumeUSD:           front.AmountInUSD,
		VolumeThresholdUSD:  params.MinSwapVolumeUSD,
		PoolLiquidityUSD:    front.PoolLiquidityUSD,
		TradeSizeUSD:        front.AmountInUSD,
		HistoricalPrecision: d.cfg.Thresholds.HistoricalPrecision(d.Name()),
	}

	conf := confidence(d.cfg, d.scorer, evidence, factors)
	if conf < d.cfg.EffectiveMinConfidence(d.Name(), net) {
		return domain.Opportunity{}, false
	}

	return domain.Opportunity{
		ID:              uuid.NewString(),
		ChainID:         batch.ChainID,
		OpportunityType: domain.OpportunitySandwich,
		BlockNumber:     front.BlockNumber,
		Timestamp:       victim.Timestamp,
		BotAddress:      domain.NormalizeAddress(front.Sender),
		VictimAddress:   domain.NormalizeAddress(victim.Sender),
		TargetTxHash:    domain.NormalizeHash(victim.TxHash),
		MEVTxHashes:     []string{domain.NormalizeHash(front.TxHash), domain.NormalizeHash(back.TxHash)},
		ProtocolID:      front.ProtocolID,
		ProtocolName:    front.ProtocolName,
		DEXName:         front.DEXName,
		TokenAddresses:  []string{front.TokenIn, front.TokenOut},
		TokenSymbols:    []string{front.TokenInSymbol, front.TokenOutSymbol},
		GrossProfitUSD:  breakdown.GrossUSD,
		GasCostUSD:      breakdown.GasUSD,
		NetProfitUSD:    net,
		VictimLossUSD:   victimLoss,
		ProfitTier:      d.cfg.TierFor(net).Name,
		ConfidenceScore: conf,
		DetectedAt:      time.Now().UTC(),
	}, true
}
