package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mevlens/mevlens/internal/domain"
)

const attrCols = `id, opportunity_id, bot_id, bot_address, chain_id, opportunity_type,
	protocol_id, protocol_name, dex_name,
	token_addresses, token_symbols, primary_token_address, primary_token_symbol,
	block_number, ts, date, hour,
	gross_profit_usd, gas_cost_usd, protocol_fees_usd, slippage_cost_usd,
	other_costs_usd, net_profit_usd, victim_loss_usd, victim_address,
	mev_tx_hashes, target_tx_hash, confidence_score, attribution_quality`

// AttributionStore implements domain.AttributionStore.
type AttributionStore struct {
	pool *pgxpool.Pool
}

// NewAttributionStore creates an AttributionStore.
func NewAttributionStore(pool *pgxpool.Pool) *AttributionStore {
	return &AttributionStore{pool: pool}
}

// Insert stores one attribution record and returns its ID.
func (s *AttributionStore) Insert(ctx context.Context, a domain.Attribution) (string, error) {
	var botID *string
	if a.BotID != "" {
		botID = &a.BotID
	}
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO mev_profit_attribution (`+attrCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
		RETURNING id`,
		a.ID, a.OpportunityID, botID, a.BotAddress, a.ChainID, a.OpportunityType,
		a.ProtocolID, a.ProtocolName, a.DEXName,
		a.TokenAddresses, a.TokenSymbols, a.PrimaryTokenAddr, a.PrimaryTokenSymbol,
		a.BlockNumber, a.Timestamp, a.Date, a.Hour,
		a.GrossProfitUSD, a.GasCostUSD, a.ProtocolFeesUSD, a.SlippageUSD,
		a.OtherCostsUSD, a.NetProfitUSD, a.VictimLossUSD, a.VictimAddress,
		a.MEVTxHashes, a.TargetTxHash, a.ConfidenceScore, a.Quality,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres: insert attribution for opportunity %s: %w", a.OpportunityID, err)
	}
	return id, nil
}

func scanAttribution(row pgx.Row) (domain.Attribution, error) {
	var a domain.Attribution
	var botID *string
	err := row.Scan(
		&a.ID, &a.OpportunityID, &botID, &a.BotAddress, &a.ChainID, &a.OpportunityType,
		&a.ProtocolID, &a.ProtocolName, &a.DEXName,
		&a.TokenAddresses, &a.TokenSymbols, &a.PrimaryTokenAddr, &a.PrimaryTokenSymbol,
		&a.BlockNumber, &a.Timestamp, &a.Date, &a.Hour,
		&a.GrossProfitUSD, &a.GasCostUSD, &a.ProtocolFeesUSD, &a.SlippageUSD,
		&a.OtherCostsUSD, &a.NetProfitUSD, &a.VictimLossUSD, &a.VictimAddress,
		&a.MEVTxHashes, &a.TargetTxHash, &a.ConfidenceScore, &a.Quality,
	)
	if botID != nil {
		a.BotID = *botID
	}
	return a, err
}

// GetByOpportunity retrieves the attribution for one opportunity.
func (s *AttributionStore) GetByOpportunity(ctx context.Context, opportunityID string) (domain.Attribution, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attrCols+` FROM mev_profit_attribution WHERE opportunity_id = $1`,
		opportunityID)
	a, err := scanAttribution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attribution{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Attribution{}, fmt.Errorf("postgres: get attribution for %s: %w", opportunityID, err)
	}
	return a, nil
}

func (s *AttributionStore) listAttrs(ctx context.Context, query string, args ...any) ([]domain.Attribution, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attrs []domain.Attribution
	for rows.Next() {
		a, err := scanAttribution(rows)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

// ListByBot returns one bot's attributions, newest first.
func (s *AttributionStore) ListByBot(ctx context.Context, botAddress, chainID string, opts domain.ListOpts) ([]domain.Attribution, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	attrs, err := s.listAttrs(ctx, `
		SELECT `+attrCols+` FROM mev_profit_attribution
		WHERE bot_address = $1 AND chain_id = $2
		ORDER BY ts DESC
		LIMIT $3 OFFSET $4`,
		botAddress, chainID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list attributions for bot %s: %w", botAddress, err)
	}
	return attrs, nil
}

// ListBefore returns attributions older than the cutoff, oldest first, for
// archival.
func (s *AttributionStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Attribution, error) {
	if limit <= 0 {
		limit = 10000
	}
	attrs, err := s.listAttrs(ctx, `
		SELECT `+attrCols+` FROM mev_profit_attribution
		WHERE ts < $1
		ORDER BY ts
		LIMIT $2`,
		before, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list attributions before %v: %w", before, err)
	}
	return attrs, nil
}

// rollupFilters renders optional chain/time filters for rollup queries,
// qualifying columns with the given table alias. Positional args start at $1.
func rollupFilters(alias, chainID string, tr domain.TimeRange) (string, []any) {
	clause := "WHERE 1=1"
	var args []any
	if chainID != "" {
		args = append(args, chainID)
		clause += fmt.Sprintf(" AND %s.chain_id = $%d", alias, len(args))
	}
	if !tr.Start.IsZero() {
		args = append(args, tr.Start)
		clause += fmt.Sprintf(" AND %s.date >= $%d", alias, len(args))
	}
	if !tr.End.IsZero() {
		args = append(args, tr.End)
		clause += fmt.Sprintf(" AND %s.date <= $%d", alias, len(args))
	}
	return clause, args
}

// RollupByBot groups attributed profit per bot, joined to tracked bot names.
func (s *AttributionStore) RollupByBot(ctx context.Context, chainID string, tr domain.TimeRange, limit int) ([]domain.RollupRow, error) {
	if limit <= 0 {
		limit = 100
	}
	clause, args := rollupFilters("pa", chainID, tr)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT pa.bot_address, COALESCE(mb.bot_name, '') AS bot_name, pa.chain_id,
			SUM(pa.net_profit_usd) AS total_profit,
			SUM(pa.gas_cost_usd) AS total_gas,
			COUNT(*) AS total_tx,
			COUNT(*) FILTER (WHERE pa.net_profit_usd > 0) AS successful_tx,
			SUM(pa.victim_loss_usd) AS user_loss
		FROM mev_profit_attribution pa
		LEFT JOIN mev_bots mb ON pa.bot_id = mb.id
		%s
		GROUP BY pa.bot_address, pa.chain_id, mb.bot_name
		ORDER BY total_profit DESC
		LIMIT $%d`, clause, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: rollup by bot: %w", err)
	}
	defer rows.Close()

	var out []domain.RollupRow
	for rows.Next() {
		var r domain.RollupRow
		if err := rows.Scan(&r.BotAddress, &r.BotName, &r.ChainID,
			&r.TotalProfitUSD, &r.TotalGasCostUSD, &r.TotalTx, &r.SuccessfulTx, &r.TotalUserLossUSD); err != nil {
			return nil, fmt.Errorf("postgres: scan bot rollup: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RollupByStrategy groups attributed profit per opportunity type.
func (s *AttributionStore) RollupByStrategy(ctx context.Context, chainID string, tr domain.TimeRange) ([]domain.RollupRow, error) {
	clause, args := rollupFilters("pa", chainID, tr)

	rows, err := s.pool.Query(ctx, `
		SELECT opportunity_type,
			SUM(net_profit_usd) AS total_profit,
			SUM(gas_cost_usd) AS total_gas,
			COUNT(*) AS total_tx,
			COUNT(*) FILTER (WHERE net_profit_usd > 0) AS successful_tx,
			SUM(victim_loss_usd) AS user_loss
		FROM mev_profit_attribution pa
		`+clause+`
		GROUP BY opportunity_type
		ORDER BY total_profit DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: rollup by strategy: %w", err)
	}
	defer rows.Close()

	var out []domain.RollupRow
	for rows.Next() {
		var r domain.RollupRow
		if err := rows.Scan(&r.Type,
			&r.TotalProfitUSD, &r.TotalGasCostUSD, &r.TotalTx, &r.SuccessfulTx, &r.TotalUserLossUSD); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy rollup: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RollupByProtocol groups attributed profit per protocol.
func (s *AttributionStore) RollupByProtocol(ctx context.Context, chainID string, tr domain.TimeRange, limit int) ([]domain.RollupRow, error) {
	if limit <= 0 {
		limit = 50
	}
	clause, args := rollupFilters("pa", chainID, tr)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT protocol_id, protocol_name,
			SUM(net_profit_usd) AS total_profit,
			SUM(gas_cost_usd) AS total_gas,
			COUNT(*) AS total_tx,
			COUNT(*) FILTER (WHERE net_profit_usd > 0) AS successful_tx,
			SUM(victim_loss_usd) AS user_loss
		FROM mev_profit_attribution pa
		%s AND protocol_id <> ''
		GROUP BY protocol_id, protocol_name
		ORDER BY total_profit DESC
		LIMIT $%d`, clause, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: rollup by protocol: %w", err)
	}
	defer rows.Close()

	var out []domain.RollupRow
	for rows.Next() {
		var r domain.RollupRow
		if err := rows.Scan(&r.ProtocolID, &r.ProtocolName,
			&r.TotalProfitUSD, &r.TotalGasCostUSD, &r.TotalTx, &r.SuccessfulTx, &r.TotalUserLossUSD); err != nil {
			return nil, fmt.Errorf("postgres: scan protocol rollup: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BotShares returns per-bot profit volume and percentage share for one
// chain-day, ordered by volume descending.
func (s *AttributionStore) BotShares(ctx context.Context, chainID string, day time.Time) ([]domain.BotShare, error) {
	rows, err := s.pool.Query(ctx, `
		WITH bot_volumes AS (
			SELECT bot_address, SUM(net_profit_usd) AS volume
			FROM mev_profit_attribution
			WHERE chain_id = $1 AND date = $2
			GROUP BY bot_address
		),
		total_volume AS (
			SELECT SUM(volume) AS total FROM bot_volumes
		)
		SELECT bv.bot_address, bv.volume,
			COALESCE(bv.volume / NULLIF(tv.total, 0) * 100, 0) AS share
		FROM bot_volumes bv
		CROSS JOIN total_volume tv
		ORDER BY bv.volume DESC`,
		chainID, day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("postgres: bot shares %s: %w", chainID, err)
	}
	defer rows.Close()

	var shares []domain.BotShare
	for rows.Next() {
		var sh domain.BotShare
		if err := rows.Scan(&sh.BotAddress, &sh.VolumeUSD, &sh.SharePct); err != nil {
			return nil, fmt.Errorf("postgres: scan bot share: %w", err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

// Compile-time interface check.
var _ domain.AttributionStore = (*AttributionStore)(nil)
