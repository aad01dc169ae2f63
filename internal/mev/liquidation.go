package mev

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mevlens/mevlens/internal/domain"
)

// LiquidationDetector matches executed liquidations against the underwater
// positions that triggered them. Profit is the liquidation bonus captured on
// the seized collateral, net of gas.
type LiquidationDetector struct {
	cfg    *Config
	scorer *EnhancedScorer
}

// NewLiquidationDetector returns a detector using the shared tuning config.
func NewLiquidationDetector(cfg *Config, scorer *EnhancedScorer) *LiquidationDetector {
	return &LiquidationDetector{cfg: cfg, scorer: scorer}
}

func (d *LiquidationDetector) Name() domain.OpportunityType { return domain.OpportunityLiquidation }

type positionKey struct {
	Borrower string
	Protocol string
}

// Detect joins liquidation events to lending positions by borrower and
// protocol.
func (d *LiquidationDetector) Detect(ctx context.Context, batch Batch) ([]domain.Opportunity, error) {
	positions := make(map[positionKey]domain.LendingPosition, len(batch.Positions))
	for _, p := range batch.Positions {
		positions[positionKey{
			Borrower: domain.NormalizeAddress(p.Borrower),
			Protocol: p.ProtocolID,
		}] = p
	}

	var opps []domain.Opportunity
	for _, ev := range batch.Liquidations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos, hasPos := positions[positionKey{
			Borrower: domain.NormalizeAddress(ev.Borrower),
			Protocol: ev.ProtocolID,
		}]
		if opp, ok := d.build(batch, ev, pos, hasPos); ok {
			opps = append(opps, opp)
		}
	}
	return opps, nil
}

func (d *LiquidationDetector) build(batch Batch, ev domain.LiquidationEvent, pos domain.LendingPosition, hasPos bool) (domain.Opportunity, bool) {
	// The protocol's bonus rate on the seized collateral is the liquidator's
	// take. Without a matched position the seized/repaid gap approximates it.
	gross := ev.SeizedUSD - ev.RepaidUSD
	if hasPos && pos.LiquidationBonusPct > 0 {
		gross = ev.SeizedUSD * pos.LiquidationBonusPct / 100
	}
	breakdown := ProfitBreakdown{
		GrossUSD: gross,
		GasUSD:   ev.GasCostUSD,
	}
	net := breakdown.Net()
	if net < d.cfg.MinNetProfitUSD {
		return domain.Opportunity{}, false
	}

	underwater := hasPos && pos.Liquidatable()
	repayMatch := hasPos && ev.RepaidUSD > 0 && ev.RepaidUSD <= pos.DebtUSD*1.05
	evidence := []Evidence{
		{Name: "health_factor", Weight: 35, Present: underwater},
		{Name: "bonus", Weight: 25, Present: ev.SeizedUSD > ev.RepaidUSD},
		{Name: "repay_match", Weight: 25, Present: repayMatch},
		{Name: "timing", Weight: 15, Present: !hasPos || ev.BlockNumber >= pos.BlockNumber},
	}

	gasRatio := 0.0
	if batch.BaselineGasGwei > 0 {
		gasRatio = ev.GasPriceGwei / batch.BaselineGasGwei
	}
	blockDist := 0
	if hasPos && ev.BlockNumber > pos.BlockNumber {
		blockDist = int(ev.BlockNumber - pos.BlockNumber)
	}
	params := d.cfg.ChainParamsFor(batch.ChainID)
	factors := Factors{
		GasRatio:            gasRatio,
		BlockDistance:       blockDist,
		WindowBlocks:        CongestionFor(batch.BaselineGasGwei).WindowBlocks,
		VolumeUSD:           ev.SeizedUSD,
		VolumeThresholdUSD:  params.MinSwapVolumeUSD,
		PoolLiquidityUSD:    pos.CollateralUSD,
		TradeSizeUSD:        ev.SeizedUSD,
		HistoricalPrecision: d.cfg.Thresholds.HistoricalPrecision(d.Name()),
	}

	conf := confidence(d.cfg, d.scorer, evidence, factors)
	if conf < d.cfg.EffectiveMinConfidence(d.Name(), net) {
		return domain.Opportunity{}, false
	}

	tokens := []string{}
	symbols := []string{}
	if hasPos {
		tokens = []string{pos.CollateralToken, pos.DebtToken}
		symbols = []string{pos.CollateralSymbol, pos.DebtSymbol}
	}

	return domain.Opportunity{
		ID:              uuid.NewString(),
		ChainID:         batch.ChainID,
		OpportunityType: domain.OpportunityLiquidation,
		BlockNumber:     ev.BlockNumber,
		Timestamp:       ev.Timestamp,
		BotAddress:      domain.NormalizeAddress(ev.Liquidator),
		VictimAddress:   domain.NormalizeAddress(ev.Borrower),
		TargetTxHash:    domain.NormalizeHash(ev.TxHash),
		MEVTxHashes:     []string{domain.NormalizeHash(ev.TxHash)},
		ProtocolID:      ev.ProtocolID,
		ProtocolName:    ev.ProtocolName,
		TokenAddresses:  tokens,
		TokenSymbols:    symbols,
		GrossProfitUSD:  breakdown.GrossUSD,
		GasCostUSD:      breakdown.GasUSD,
		NetProfitUSD:    net,
		VictimLossUSD:   ev.SeizedUSD - ev.RepaidUSD,
		ProfitTier:      d.cfg.TierFor(net).Name,
		ConfidenceScore: conf,
		DetectedAt:      time.Now().UTC(),
	}, true
}
