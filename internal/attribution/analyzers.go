package attribution

import (
	"context"
	"fmt"

	"github.com/mevlens/mevlens/internal/domain"
)

// Analyzer serves profit rollups by bot, strategy, and protocol. The store
// returns raw grouped totals ordered by profit; derived metrics (shares,
// averages, ROI, ranks) are computed here.
type Analyzer struct {
	store domain.AttributionStore
}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer(store domain.AttributionStore) *Analyzer {
	return &Analyzer{store: store}
}

func grandTotal(rows []domain.RollupRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.TotalProfitUSD
	}
	return total
}

func sharePct(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func avgPerTx(total float64, tx int64) float64 {
	if tx == 0 {
		return 0
	}
	return total / float64(tx)
}

// ByBot ranks bots by total attributed profit.
func (a *Analyzer) ByBot(ctx context.Context, chainID string, tr domain.TimeRange, limit int) ([]domain.BotAttribution, error) {
	rows, err := a.store.RollupByBot(ctx, chainID, tr, limit)
	if err != nil {
		return nil, fmt.Errorf("attribution: rollup by bot: %w", err)
	}
	total := grandTotal(rows)
	out := make([]domain.BotAttribution, 0, len(rows))
	for i, r := range rows {
		out = append(out, domain.BotAttribution{
			BotAddress:        r.BotAddress,
			BotName:           r.BotName,
			ChainID:           r.ChainID,
			TotalProfitUSD:    r.TotalProfitUSD,
			TotalTx:           r.TotalTx,
			AvgProfitPerTxUSD: avgPerTx(r.TotalProfitUSD, r.TotalTx),
			SharePct:          sharePct(r.TotalProfitUSD, total),
			Rank:              i + 1,
		})
	}
	return out, nil
}

// ByStrategy ranks opportunity types by total attributed profit, with
// success rate and gas ROI.
func (a *Analyzer) ByStrategy(ctx context.Context, chainID string, tr domain.TimeRange) ([]domain.StrategyAttribution, error) {
	rows, err := a.store.RollupByStrategy(ctx, chainID, tr)
	if err != nil {
		return nil, fmt.Errorf("attribution: rollup by strategy: %w", err)
	}
	total := grandTotal(rows)
	out := make([]domain.StrategyAttribution, 0, len(rows))
	for i, r := range rows {
		successRate := 0.0
		if r.TotalTx > 0 {
			successRate = float64(r.SuccessfulTx) / float64(r.TotalTx) * 100
		}
		roi := 0.0
		if r.TotalGasCostUSD > 0 {
			roi = r.TotalProfitUSD / r.TotalGasCostUSD * 100
		}
		out = append(out, domain.StrategyAttribution{
			Type:              r.Type,
			TotalProfitUSD:    r.TotalProfitUSD,
			TotalTx:           r.TotalTx,
			AvgProfitPerTxUSD: avgPerTx(r.TotalProfitUSD, r.TotalTx),
			SharePct:          sharePct(r.TotalProfitUSD, total),
			SuccessRatePct:    successRate,
			AvgGasCostUSD:     avgPerTx(r.TotalGasCostUSD, r.TotalTx),
			ROIPct:            roi,
			Rank:              i + 1,
		})
	}
	return out, nil
}

// ByProtocol ranks protocols by MEV extracted from their users.
func (a *Analyzer) ByProtocol(ctx context.Context, chainID string, tr domain.TimeRange, limit int) ([]domain.ProtocolAttribution, error) {
	rows, err := a.store.RollupByProtocol(ctx, chainID, tr, limit)
	if err != nil {
		return nil, fmt.Errorf("attribution: rollup by protocol: %w", err)
	}
	total := grandTotal(rows)
	out := make([]domain.ProtocolAttribution, 0, len(rows))
	for i, r := range rows {
		out = append(out, domain.ProtocolAttribution{
			ProtocolID:        r.ProtocolID,
			ProtocolName:      r.ProtocolName,
			TotalProfitUSD:    r.TotalProfitUSD,
			TotalTx:           r.TotalTx,
			AvgProfitPerTxUSD: avgPerTx(r.TotalProfitUSD, r.TotalTx),
			SharePct:          sharePct(r.TotalProfitUSD, total),
			MEVLeakageUSD:     r.TotalProfitUSD,
			UserLossUSD:       r.TotalUserLossUSD,
			Rank:              i + 1,
		})
	}
	return out, nil
}
