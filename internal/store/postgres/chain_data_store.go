package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mevlens/mevlens/internal/domain"
)

// ChainDataStore implements domain.BlockDataProvider on top of the indexed
// chain data tables. The tables are written by an external indexer; this
// store only reads.
type ChainDataStore struct {
	pool *pgxpool.Pool
}

// NewChainDataStore creates a ChainDataStore.
func NewChainDataStore(pool *pgxpool.Pool) *ChainDataStore {
	return &ChainDataStore{pool: pool}
}

// HeadBlock returns the highest indexed block for a chain.
func (s *ChainDataStore) HeadBlock(ctx context.Context, chainID string) (int64, error) {
	var head *int64
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(block_number) FROM chain_swaps WHERE chain_id = $1`,
		chainID,
	).Scan(&head)
	if err != nil {
		return 0, fmt.Errorf("postgres: head block %s: %w", chainID, err)
	}
	if head == nil {
		return 0, fmt.Errorf("postgres: head block %s: %w", chainID, domain.ErrNoData)
	}
	return *head, nil
}

// SwapsByBlockRange returns all swaps in [fromBlock, toBlock] ordered by
// (block_number, tx_index).
func (s *ChainDataStore) SwapsByBlockRange(ctx context.Context, chainID string, fromBlock, toBlock int64) ([]domain.Swap, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, block_number, tx_index, ts, sender, recipient,
			pool_address, protocol_id, protocol_name, dex_name,
			token_in, token_out, token_in_symbol, token_out_symbol,
			amount_in_usd, amount_out_usd, gas_price_gwei, gas_cost_usd,
			pool_liquidity_usd
		FROM chain_swaps
		WHERE chain_id = $1 AND block_number BETWEEN $2 AND $3
		ORDER BY block_number, tx_index`,
		chainID, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("postgres: swaps %s %d-%d: %w", chainID, fromBlock, toBlock, err)
	}
	defer rows.Close()

	var swaps []domain.Swap
	for rows.Next() {
		var sw domain.Swap
		if err := rows.Scan(
			&sw.TxHash, &sw.BlockNumber, &sw.TxIndex, &sw.Timestamp, &sw.Sender, &sw.Recipient,
			&sw.PoolAddress, &sw.ProtocolID, &sw.ProtocolName, &sw.DEXName,
			&sw.TokenIn, &sw.TokenOut, &sw.TokenInSymbol, &sw.TokenOutSymbol,
			&sw.AmountInUSD, &sw.AmountOutUSD, &sw.GasPriceGwei, &sw.GasCostUSD,
			&sw.PoolLiquidityUSD,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan swap: %w", err)
		}
		swaps = append(swaps, sw)
	}
	return swaps, rows.Err()
}

// PoolPrices returns the latest indexed price per pool at or before the
// given block.
func (s *ChainDataStore) PoolPrices(ctx context.Context, chainID string, blockNumber int64) ([]domain.PoolPrice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (pool_address)
			pool_address, dex_name, protocol_id, protocol_name,
			token0, token1, token0_symbol, token1_symbol,
			price, liquidity_usd, block_number
		FROM chain_pool_prices
		WHERE chain_id = $1 AND block_number <= $2
		ORDER BY pool_address, block_number DESC`,
		chainID, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool prices %s @%d: %w", chainID, blockNumber, err)
	}
	defer rows.Close()

	var prices []domain.PoolPrice
	for rows.Next() {
		var p domain.PoolPrice
		if err := rows.Scan(
			&p.PoolAddress, &p.DEXName, &p.ProtocolID, &p.ProtocolName,
			&p.Token0, &p.Token1, &p.Token0Symbol, &p.Token1Symbol,
			&p.Price, &p.LiquidityUSD, &p.BlockNumber,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan pool price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// LendingPositions returns open lending positions as of the given block.
func (s *ChainDataStore) LendingPositions(ctx context.Context, chainID string, blockNumber int64) ([]domain.LendingPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT borrower, protocol_id, protocol_name,
			collateral_token, collateral_symbol, debt_token, debt_symbol,
			collateral_usd, debt_usd, health_factor, liquidation_bonus_pct,
			block_number
		FROM chain_lending_positions
		WHERE chain_id = $1 AND block_number <= $2`,
		chainID, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("postgres: lending positions %s @%d: %w", chainID, blockNumber, err)
	}
	defer rows.Close()

	var positions []domain.LendingPosition
	for rows.Next() {
		var p domain.LendingPosition
		if err := rows.Scan(
			&p.Borrower, &p.ProtocolID, &p.ProtocolName,
			&p.CollateralToken, &p.CollateralSymbol, &p.DebtToken, &p.DebtSymbol,
			&p.CollateralUSD, &p.DebtUSD, &p.HealthFactor, &p.LiquidationBonusPct,
			&p.BlockNumber,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan lending position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Liquidations returns executed liquidations in [fromBlock, toBlock].
func (s *ChainDataStore) Liquidations(ctx context.Context, chainID string, fromBlock, toBlock int64) ([]domain.LiquidationEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, block_number, tx_index, ts, liquidator, borrower,
			protocol_id, protocol_name, repaid_usd, seized_usd,
			gas_price_gwei, gas_cost_usd
		FROM chain_liquidations
		WHERE chain_id = $1 AND block_number BETWEEN $2 AND $3
		ORDER BY block_number, tx_index`,
		chainID, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("postgres: liquidations %s %d-%d: %w", chainID, fromBlock, toBlock, err)
	}
	defer rows.Close()

	var events []domain.LiquidationEvent
	for rows.Next() {
		var e domain.LiquidationEvent
		if err := rows.Scan(
			&e.TxHash, &e.BlockNumber, &e.TxIndex, &e.Timestamp, &e.Liquidator, &e.Borrower,
			&e.ProtocolID, &e.ProtocolName, &e.RepaidUSD, &e.SeizedUSD,
			&e.GasPriceGwei, &e.GasCostUSD,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan liquidation: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// BaselineGasGwei returns the indexed median gas price at the nearest block
// at or before blockNumber.
func (s *ChainDataStore) BaselineGasGwei(ctx context.Context, chainID string, blockNumber int64) (float64, error) {
	var gwei float64
	err := s.pool.QueryRow(ctx, `
		SELECT median_gas_gwei FROM chain_gas_baselines
		WHERE chain_id = $1 AND block_number <= $2
		ORDER BY block_number DESC
		LIMIT 1`,
		chainID, blockNumber,
	).Scan(&gwei)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: baseline gas %s @%d: %w", chainID, blockNumber, err)
	}
	return gwei, nil
}

// Compile-time interface check.
var _ domain.BlockDataProvider = (*ChainDataStore)(nil)
