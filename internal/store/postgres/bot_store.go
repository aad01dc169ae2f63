package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mevlens/mevlens/internal/domain"
)

// preferredK is how many top entries each preferred dimension keeps.
const preferredK = 3

const botCols = `id, bot_address, chain_id, bot_name, verified,
	first_seen, last_active, total_opportunities, successful, failed,
	total_extracted_usd, total_gas_spent_usd, active_days, confidence_score`

// BotStore implements domain.BotStore. Profile updates go through a single
// upsert with increment expressions so concurrent writers compose instead
// of clobbering each other.
type BotStore struct {
	pool *pgxpool.Pool
}

// NewBotStore creates a BotStore.
func NewBotStore(pool *pgxpool.Pool) *BotStore {
	return &BotStore{pool: pool}
}

// ApplyDelta folds one opportunity into a bot's profile atomically.
func (s *BotStore) ApplyDelta(ctx context.Context, d domain.BotDelta) error {
	if d.Address == "" || d.ChainID == "" {
		return fmt.Errorf("postgres: apply bot delta: %w", domain.ErrInvalidInput)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin bot delta: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var success, failed int64
	if d.Success {
		success = 1
	} else {
		failed = 1
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO mev_bots (
			bot_address, chain_id, bot_name, verified, first_seen, last_active,
			total_opportunities, successful, failed,
			total_extracted_usd, total_gas_spent_usd, active_days, confidence_score
		) VALUES ($1, $2, $3, $4, $5, $5, 1, $6, $7, $8, $9, 1, $10)
		ON CONFLICT ON CONSTRAINT mev_bots_addr_chain DO UPDATE SET
			bot_name = COALESCE(NULLIF(EXCLUDED.bot_name, ''), mev_bots.bot_name),
			verified = mev_bots.verified OR EXCLUDED.verified,
			first_seen = LEAST(mev_bots.first_seen, EXCLUDED.first_seen),
			active_days = mev_bots.active_days + CASE
				WHEN date(EXCLUDED.last_active) > date(mev_bots.last_active) THEN 1 ELSE 0 END,
			last_active = GREATEST(mev_bots.last_active, EXCLUDED.last_active),
			total_opportunities = mev_bots.total_opportunities + 1,
			successful = mev_bots.successful + EXCLUDED.successful,
			failed = mev_bots.failed + EXCLUDED.failed,
			total_extracted_usd = mev_bots.total_extracted_usd + EXCLUDED.total_extracted_usd,
			total_gas_spent_usd = mev_bots.total_gas_spent_usd + EXCLUDED.total_gas_spent_usd,
			confidence_score = GREATEST(mev_bots.confidence_score, EXCLUDED.confidence_score)`,
		d.Address, d.ChainID, d.Name, d.Verified, d.ObservedAt,
		success, failed, d.ProfitUSD, d.GasUSD, d.Confidence,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert bot %s on %s: %w", d.Address, d.ChainID, err)
	}

	for dim, value := range map[string]string{
		"type":     string(d.Type),
		"protocol": d.ProtocolName,
		"token":    d.PrimaryToken,
	} {
		if value == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO mev_bot_dimensions (bot_address, chain_id, dimension, value, occurrences)
			VALUES ($1, $2, $3, $4, 1)
			ON CONFLICT (bot_address, chain_id, dimension, value)
			DO UPDATE SET occurrences = mev_bot_dimensions.occurrences + 1`,
			d.Address, d.ChainID, dim, value,
		); err != nil {
			return fmt.Errorf("postgres: upsert bot dimension %s=%s: %w", dim, value, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit bot delta: %w", err)
	}
	return nil
}

func scanBot(row pgx.Row) (domain.Bot, error) {
	var b domain.Bot
	err := row.Scan(
		&b.ID, &b.Address, &b.ChainID, &b.Name, &b.Verified,
		&b.FirstSeen, &b.LastActive, &b.TotalOpportunities, &b.Successful, &b.Failed,
		&b.TotalExtractedUSD, &b.TotalGasSpentUSD, &b.ActiveDays, &b.ConfidenceScore,
	)
	if err != nil {
		return domain.Bot{}, err
	}
	if b.TotalOpportunities > 0 {
		b.AvgProfitUSD = b.TotalExtractedUSD / float64(b.TotalOpportunities)
	}
	return b, nil
}

// loadPreferred fills the top-k preferred dimension lists.
func (s *BotStore) loadPreferred(ctx context.Context, b *domain.Bot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT dimension, value FROM (
			SELECT dimension, value,
				ROW_NUMBER() OVER (PARTITION BY dimension ORDER BY occurrences DESC, value) AS rn
			FROM mev_bot_dimensions
			WHERE bot_address = $1 AND chain_id = $2
		) ranked
		WHERE rn <= $3
		ORDER BY dimension, rn`,
		b.Address, b.ChainID, preferredK)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var dim, value string
		if err := rows.Scan(&dim, &value); err != nil {
			return err
		}
		switch dim {
		case "type":
			b.PreferredTypes = append(b.PreferredTypes, value)
		case "protocol":
			b.PreferredProtocols = append(b.PreferredProtocols, value)
		case "token":
			b.PreferredTokens = append(b.PreferredTokens, value)
		}
	}
	return rows.Err()
}

// GetProfile retrieves one bot's full profile.
func (s *BotStore) GetProfile(ctx context.Context, botAddress, chainID string) (domain.Bot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+botCols+` FROM mev_bots WHERE bot_address = $1 AND chain_id = $2`,
		botAddress, chainID)
	b, err := scanBot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Bot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Bot{}, fmt.Errorf("postgres: get bot %s on %s: %w", botAddress, chainID, err)
	}
	if err := s.loadPreferred(ctx, &b); err != nil {
		return domain.Bot{}, fmt.Errorf("postgres: load bot dimensions %s: %w", botAddress, err)
	}
	return b, nil
}

// ListTop returns the highest-extracting bots on a chain.
func (s *BotStore) ListTop(ctx context.Context, chainID string, limit int) ([]domain.Bot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+botCols+` FROM mev_bots
		WHERE chain_id = $1
		ORDER BY total_extracted_usd DESC
		LIMIT $2`,
		chainID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list top bots %s: %w", chainID, err)
	}
	defer rows.Close()

	var bots []domain.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bot: %w", err)
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

// Compile-time interface check.
var _ domain.BotStore = (*BotStore)(nil)
