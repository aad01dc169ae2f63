package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress canonicalizes a hex address to its EIP-55 checksum form so
// registry lookups and store keys never depend on input casing.
func NormalizeAddress(addr string) string {
	if addr == "" {
		return ""
	}
	return common.HexToAddress(addr).Hex()
}

// NormalizeHash canonicalizes a tx hash to 0x-prefixed lowercase hex.
func NormalizeHash(h string) string {
	if h == "" {
		return ""
	}
	return common.HexToHash(h).Hex()
}

// Swap is a single DEX swap as indexed from chain data.
type Swap struct {
	TxHash      string
	BlockNumber int64
	TxIndex     int
	Timestamp   time.Time

	Sender    string
	Recipient string

	PoolAddress  string
	ProtocolID   string
	ProtocolName string
	DEXName      string

	TokenIn        string
	TokenOut       string
	TokenInSymbol  string
	TokenOutSymbol string

	AmountInUSD  float64
	AmountOutUSD float64

	GasPriceGwei float64
	GasCostUSD   float64

	// PoolLiquidityUSD is the pool depth at the swap's block.
	PoolLiquidityUSD float64
}

// SameDirection reports whether two swaps move through a pool the same way.
func (s Swap) SameDirection(other Swap) bool {
	return s.TokenIn == other.TokenIn && s.TokenOut == other.TokenOut
}

// OppositeDirection reports whether other reverses this swap's token flow.
func (s Swap) OppositeDirection(other Swap) bool {
	return s.TokenIn == other.TokenOut && s.TokenOut == other.TokenIn
}

// PoolPrice is a pool's quoted price for its token pair at a block.
type PoolPrice struct {
	PoolAddress  string
	DEXName      string
	ProtocolID   string
	ProtocolName string
	Token0       string
	Token1       string
	Token0Symbol string
	Token1Symbol string
	Price        float64
	LiquidityUSD float64
	BlockNumber  int64
}

// LendingPosition is a borrower's position on a lending protocol.
type LendingPosition struct {
	Borrower            string
	ProtocolID          string
	ProtocolName        string
	CollateralToken     string
	CollateralSymbol    string
	DebtToken           string
	DebtSymbol          string
	CollateralUSD       float64
	DebtUSD             float64
	HealthFactor        float64
	LiquidationBonusPct float64
	BlockNumber         int64
}

// Liquidatable reports whether the position is below the liquidation
// threshold (health factor under 1.0).
func (p LendingPosition) Liquidatable() bool {
	return p.HealthFactor > 0 && p.HealthFactor < 1.0
}

// LiquidationEvent is an executed liquidation observed on chain.
type LiquidationEvent struct {
	TxHash       string
	BlockNumber  int64
	TxIndex      int
	Timestamp    time.Time
	Liquidator   string
	Borrower     string
	ProtocolID   string
	ProtocolName string
	RepaidUSD    float64
	SeizedUSD    float64
	GasPriceGwei float64
	GasCostUSD   float64
}

// BlockDataProvider supplies indexed chain data to the detectors. Retrieval
// and indexing live outside this module; implementations adapt whatever
// indexer is available.
type BlockDataProvider interface {
	// HeadBlock returns the highest indexed block for a chain.
	HeadBlock(ctx context.Context, chainID string) (int64, error)

	// SwapsByBlockRange returns all swaps in [fromBlock, toBlock], ordered by
	// (block_number, tx_index).
	SwapsByBlockRange(ctx context.Context, chainID string, fromBlock, toBlock int64) ([]Swap, error)

	// PoolPrices returns per-pool prices at the given block.
	PoolPrices(ctx context.Context, chainID string, blockNumber int64) ([]PoolPrice, error)

	// LendingPositions returns open lending positions as of the given block.
	LendingPositions(ctx context.Context, chainID string, blockNumber int64) ([]LendingPosition, error)

	// Liquidations returns executed liquidations in [fromBlock, toBlock].
	Liquidations(ctx context.Context, chainID string, fromBlock, toBlock int64) ([]LiquidationEvent, error)

	// BaselineGasGwei returns the prevailing (median) gas price at a block,
	// used for congestion classification and gas premium factors.
	BaselineGasGwei(ctx context.Context, chainID string, blockNumber int64) (float64, error)
}
