package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mevlens/mevlens/internal/domain"
)

// TrendStore implements domain.TrendStore.
type TrendStore struct {
	pool *pgxpool.Pool
}

// NewTrendStore creates a TrendStore.
func NewTrendStore(pool *pgxpool.Pool) *TrendStore {
	return &TrendStore{pool: pool}
}

// AggregateDaily computes one chain-day of trend metrics straight from the
// opportunities table: pattern counts, profit totals and percentiles, and
// bot activity. Market-structure metrics are filled in by the calculator.
func (s *TrendStore) AggregateDaily(ctx context.Context, chainID string, day time.Time) (domain.MarketTrend, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	t := domain.MarketTrend{ChainID: chainID, Date: day}

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE opportunity_type = 'sandwich'),
			COUNT(*) FILTER (WHERE opportunity_type = 'frontrun'),
			COUNT(*) FILTER (WHERE opportunity_type = 'backrun'),
			COUNT(*) FILTER (WHERE opportunity_type = 'arbitrage'),
			COUNT(*) FILTER (WHERE opportunity_type = 'liquidation'),
			COALESCE(SUM(net_profit_usd), 0),
			COALESCE(AVG(net_profit_usd), 0),
			COALESCE(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY net_profit_usd), 0),
			COALESCE(PERCENTILE_CONT(0.9) WITHIN GROUP (ORDER BY net_profit_usd), 0),
			COALESCE(PERCENTILE_CONT(0.99) WITHIN GROUP (ORDER BY net_profit_usd), 0),
			COALESCE(SUM(victim_loss_usd), 0),
			COALESCE(SUM(gas_cost_usd), 0),
			COUNT(DISTINCT bot_address) FILTER (WHERE bot_address <> '')
		FROM mev_opportunities
		WHERE chain_id = $1 AND ts >= $2 AND ts < $2 + INTERVAL '1 day'`,
		chainID, day,
	).Scan(
		&t.TotalOpportunities,
		&t.SandwichCount, &t.FrontrunCount, &t.BackrunCount,
		&t.ArbitrageCount, &t.LiquidationCount,
		&t.TotalProfitUSD, &t.AvgProfitUSD,
		&t.ProfitP50USD, &t.ProfitP90USD, &t.ProfitP99USD,
		&t.TotalVictimLoss, &t.TotalGasSpentUSD,
		&t.UniqueBots,
	)
	if err != nil {
		return domain.MarketTrend{}, fmt.Errorf("postgres: aggregate trend %s %s: %w",
			chainID, day.Format("2006-01-02"), err)
	}

	// Bots active this day with no earlier activity on the chain.
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT bot_address FROM mev_opportunities
			WHERE chain_id = $1 AND ts >= $2 AND ts < $2 + INTERVAL '1 day'
				AND bot_address <> ''
			GROUP BY bot_address
		) today
		WHERE NOT EXISTS (
			SELECT 1 FROM mev_opportunities prior
			WHERE prior.chain_id = $1
				AND prior.bot_address = today.bot_address
				AND prior.ts < $2
		)`,
		chainID, day,
	).Scan(&t.NewBots)
	if err != nil {
		return domain.MarketTrend{}, fmt.Errorf("postgres: aggregate new bots %s %s: %w",
			chainID, day.Format("2006-01-02"), err)
	}
	return t, nil
}

// UpsertDaily writes one chain-day row, replacing any previous aggregate so
// recomputation folds in late detections.
func (s *TrendStore) UpsertDaily(ctx context.Context, t domain.MarketTrend) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mev_market_trends (
			chain_id, date, total_opportunities,
			sandwich_count, frontrun_count, backrun_count, arbitrage_count, liquidation_count,
			total_profit_usd, avg_profit_usd, profit_p50_usd, profit_p90_usd, profit_p99_usd,
			total_victim_loss_usd, total_gas_spent_usd,
			unique_bots, new_bots,
			hhi, concentration, top10_share_pct, intensity,
			dominant_type, dominant_share_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (chain_id, date) DO UPDATE SET
			total_opportunities = EXCLUDED.total_opportunities,
			sandwich_count = EXCLUDED.sandwich_count,
			frontrun_count = EXCLUDED.frontrun_count,
			backrun_count = EXCLUDED.backrun_count,
			arbitrage_count = EXCLUDED.arbitrage_count,
			liquidation_count = EXCLUDED.liquidation_count,
			total_profit_usd = EXCLUDED.total_profit_usd,
			avg_profit_usd = EXCLUDED.avg_profit_usd,
			profit_p50_usd = EXCLUDED.profit_p50_usd,
			profit_p90_usd = EXCLUDED.profit_p90_usd,
			profit_p99_usd = EXCLUDED.profit_p99_usd,
			total_victim_loss_usd = EXCLUDED.total_victim_loss_usd,
			total_gas_spent_usd = EXCLUDED.total_gas_spent_usd,
			unique_bots = EXCLUDED.unique_bots,
			new_bots = EXCLUDED.new_bots,
			hhi = EXCLUDED.hhi,
			concentration = EXCLUDED.concentration,
			top10_share_pct = EXCLUDED.top10_share_pct,
			intensity = EXCLUDED.intensity,
			dominant_type = EXCLUDED.dominant_type,
			dominant_share_pct = EXCLUDED.dominant_share_pct`,
		t.ChainID, t.Date.UTC().Truncate(24*time.Hour), t.TotalOpportunities,
		t.SandwichCount, t.FrontrunCount, t.BackrunCount, t.ArbitrageCount, t.LiquidationCount,
		t.TotalProfitUSD, t.AvgProfitUSD, t.ProfitP50USD, t.ProfitP90USD, t.ProfitP99USD,
		t.TotalVictimLoss, t.TotalGasSpentUSD,
		t.UniqueBots, t.NewBots,
		t.HHI, t.Concentration, t.Top10SharePct, t.Intensity,
		t.DominantType, t.DominantSharePct,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert trend %s %s: %w",
			t.ChainID, t.Date.Format("2006-01-02"), err)
	}
	return nil
}

// ListRange returns trend rows for a chain in ascending date order.
func (s *TrendStore) ListRange(ctx context.Context, chainID string, tr domain.TimeRange) ([]domain.MarketTrend, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, date, total_opportunities,
			sandwich_count, frontrun_count, backrun_count, arbitrage_count, liquidation_count,
			total_profit_usd, avg_profit_usd, profit_p50_usd, profit_p90_usd, profit_p99_usd,
			total_victim_loss_usd, total_gas_spent_usd,
			unique_bots, new_bots,
			hhi, concentration, top10_share_pct, intensity,
			dominant_type, dominant_share_pct
		FROM mev_market_trends
		WHERE chain_id = $1
			AND ($2::date IS NULL OR date >= $2)
			AND ($3::date IS NULL OR date <= $3)
		ORDER BY date`,
		chainID, nullableTime(tr.Start), nullableTime(tr.End))
	if err != nil {
		return nil, fmt.Errorf("postgres: list trends %s: %w", chainID, err)
	}
	defer rows.Close()

	var trends []domain.MarketTrend
	for rows.Next() {
		var t domain.MarketTrend
		if err := rows.Scan(
			&t.ChainID, &t.Date, &t.TotalOpportunities,
			&t.SandwichCount, &t.FrontrunCount, &t.BackrunCount, &t.ArbitrageCount, &t.LiquidationCount,
			&t.TotalProfitUSD, &t.AvgProfitUSD, &t.ProfitP50USD, &t.ProfitP90USD, &t.ProfitP99USD,
			&t.TotalVictimLoss, &t.TotalGasSpentUSD,
			&t.UniqueBots, &t.NewBots,
			&t.HHI, &t.Concentration, &t.Top10SharePct, &t.Intensity,
			&t.DominantType, &t.DominantSharePct,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trend: %w", err)
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Compile-time interface check.
var _ domain.TrendStore = (*TrendStore)(nil)
