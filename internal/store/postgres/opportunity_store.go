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

const oppCols = `id, chain_id, opportunity_type, block_number, ts,
	bot_address, victim_address, target_tx_hash, mev_tx_hashes,
	protocol_id, protocol_name, dex_name, token_addresses, token_symbols,
	gross_profit_usd, gas_cost_usd, net_profit_usd, victim_loss_usd,
	profit_tier, confidence_score, status, detected_at`

// OpportunityStore implements domain.OpportunityStore.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Insert stores an opportunity. The (chain_id, target_tx_hash,
// opportunity_type) unique constraint makes re-detection a no-op; in that
// case domain.ErrAlreadyExists is returned.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) (string, error) {
	status := opp.Status
	if status == "" {
		status = domain.StatusDetected
	}
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO mev_opportunities (`+oppCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT ON CONSTRAINT mev_opportunities_dedup DO NOTHING
		RETURNING id`,
		opp.ID, opp.ChainID, opp.OpportunityType, opp.BlockNumber, opp.Timestamp,
		opp.BotAddress, opp.VictimAddress, opp.TargetTxHash, opp.MEVTxHashes,
		opp.ProtocolID, opp.ProtocolName, opp.DEXName, opp.TokenAddresses, opp.TokenSymbols,
		opp.GrossProfitUSD, opp.GasCostUSD, opp.NetProfitUSD, opp.VictimLossUSD,
		opp.ProfitTier, opp.ConfidenceScore, status, opp.DetectedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrAlreadyExists
	}
	if err != nil {
		return "", fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return id, nil
}

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var o domain.Opportunity
	err := row.Scan(
		&o.ID, &o.ChainID, &o.OpportunityType, &o.BlockNumber, &o.Timestamp,
		&o.BotAddress, &o.VictimAddress, &o.TargetTxHash, &o.MEVTxHashes,
		&o.ProtocolID, &o.ProtocolName, &o.DEXName, &o.TokenAddresses, &o.TokenSymbols,
		&o.GrossProfitUSD, &o.GasCostUSD, &o.NetProfitUSD, &o.VictimLossUSD,
		&o.ProfitTier, &o.ConfidenceScore, &o.Status, &o.DetectedAt,
	)
	return o, err
}

// UpdateStatus transitions an opportunity's lifecycle status.
func (s *OpportunityStore) UpdateStatus(ctx context.Context, id string, status domain.OpportunityStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE mev_opportunities SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("postgres: update opportunity %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves one opportunity.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.Opportunity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+oppCols+` FROM mev_opportunities WHERE id = $1`, id)
	o, err := scanOpportunity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	return o, nil
}

func (s *OpportunityStore) list(ctx context.Context, query string, args ...any) ([]domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// ListByChain returns opportunities on one chain, newest first.
func (s *OpportunityStore) ListByChain(ctx context.Context, chainID string, opts domain.ListOpts) ([]domain.Opportunity, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	opps, err := s.list(ctx, `
		SELECT `+oppCols+` FROM mev_opportunities
		WHERE chain_id = $1
			AND ($2::timestamptz IS NULL OR ts >= $2)
			AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY ts DESC
		LIMIT $4 OFFSET $5`,
		chainID, opts.Since, opts.Until, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities for %s: %w", chainID, err)
	}
	return opps, nil
}

// ListByBlockRange returns opportunities within [fromBlock, toBlock].
func (s *OpportunityStore) ListByBlockRange(ctx context.Context, chainID string, fromBlock, toBlock int64) ([]domain.Opportunity, error) {
	opps, err := s.list(ctx, `
		SELECT `+oppCols+` FROM mev_opportunities
		WHERE chain_id = $1 AND block_number BETWEEN $2 AND $3
		ORDER BY block_number, ts`,
		chainID, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities %s blocks %d-%d: %w", chainID, fromBlock, toBlock, err)
	}
	return opps, nil
}

// ListByBot returns one bot's opportunities, newest first.
func (s *OpportunityStore) ListByBot(ctx context.Context, botAddress, chainID string, opts domain.ListOpts) ([]domain.Opportunity, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	opps, err := s.list(ctx, `
		SELECT `+oppCols+` FROM mev_opportunities
		WHERE bot_address = $1 AND chain_id = $2
		ORDER BY ts DESC
		LIMIT $3 OFFSET $4`,
		botAddress, chainID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities for bot %s: %w", botAddress, err)
	}
	return opps, nil
}

// CountByDay counts one chain-day of opportunities.
func (s *OpportunityStore) CountByDay(ctx context.Context, chainID string, day time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM mev_opportunities
		WHERE chain_id = $1 AND ts >= $2 AND ts < $2 + INTERVAL '1 day'`,
		chainID, day.UTC().Truncate(24*time.Hour),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count opportunities %s: %w", chainID, err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
