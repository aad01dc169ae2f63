// Package trend computes daily MEV market aggregates, opportunity
// distributions, and bot competition structure.
package trend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

// CompetitionSource yields market-structure metrics for one chain-day. The
// CompetitionAnalyzer implements it over the attribution store.
type CompetitionSource interface {
	Analyze(ctx context.Context, chainID string, day time.Time) (domain.BotCompetition, error)
}

// MarketCalculator materializes one chain-day of MEV activity into the
// trend table, optionally warming the trend cache.
type MarketCalculator struct {
	store       domain.TrendStore
	competition CompetitionSource // nil leaves market-structure metrics zero
	cache       domain.TrendCache // nil disables caching
	logger      *slog.Logger
}

// NewMarketCalculator returns a MarketCalculator. competition and cache may
// be nil.
func NewMarketCalculator(store domain.TrendStore, competition CompetitionSource, cache domain.TrendCache, logger *slog.Logger) *MarketCalculator {
	return &MarketCalculator{
		store:       store,
		competition: competition,
		cache:       cache,
		logger:      logger.With(slog.String("component", "trend_calculator")),
	}
}

// ComputeDaily aggregates one chain-day, folds in the pattern distribution
// and bot competition structure, and upserts the trend row. Recomputing an
// existing day overwrites it, so late-arriving detections are folded in on
// the next run.
func (c *MarketCalculator) ComputeDaily(ctx context.Context, chainID string, day time.Time) (domain.MarketTrend, error) {
	day = day.UTC().Truncate(24 * time.Hour)

	trend, err := c.store.AggregateDaily(ctx, chainID, day)
	if err != nil {
		return domain.MarketTrend{}, fmt.Errorf("trend: aggregate %s %s: %w", chainID, day.Format("2006-01-02"), err)
	}

	if top, ok := FromTrendCounts(trend).Top(); ok {
		trend.DominantType = domain.OpportunityType(top.Key)
		trend.DominantSharePct = top.SharePct
	}

	if c.competition != nil {
		comp, err := c.competition.Analyze(ctx, chainID, day)
		if err != nil {
			return domain.MarketTrend{}, fmt.Errorf("trend: competition %s %s: %w", chainID, day.Format("2006-01-02"), err)
		}
		trend.HHI = comp.HHI
		trend.Concentration = comp.Concentration
		trend.Top10SharePct = comp.Top10SharePct
		trend.Intensity = comp.Intensity
	}

	if err := c.store.UpsertDaily(ctx, trend); err != nil {
		return domain.MarketTrend{}, fmt.Errorf("trend: upsert %s %s: %w", chainID, day.Format("2006-01-02"), err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, trend); err != nil {
			c.logger.Warn("trend cache write failed",
				slog.String("chain", chainID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.logger.Info("daily trend computed",
		slog.String("chain", chainID),
		slog.String("day", day.Format("2006-01-02")),
		slog.Int64("opportunities", trend.TotalOpportunities),
		slog.Float64("total_profit_usd", trend.TotalProfitUSD),
	)
	return trend, nil
}

// Range returns trend rows for a chain over a time range, reading through
// the cache per day when available.
func (c *MarketCalculator) Range(ctx context.Context, chainID string, tr domain.TimeRange) ([]domain.MarketTrend, error) {
	trends, err := c.store.ListRange(ctx, chainID, tr)
	if err != nil {
		return nil, fmt.Errorf("trend: list range %s: %w", chainID, err)
	}
	return trends, nil
}
