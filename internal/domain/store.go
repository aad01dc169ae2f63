package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// OpportunityStore persists detected MEV opportunities.
type OpportunityStore interface {
	// Insert stores a new opportunity and returns its ID. Inserting a
	// duplicate (chain_id, target_tx_hash, opportunity_type) returns
	// ErrAlreadyExists.
	Insert(ctx context.Context, opp Opportunity) (string, error)
	// UpdateStatus transitions an opportunity's lifecycle status. A missing
	// id returns ErrNotFound.
	UpdateStatus(ctx context.Context, id string, status OpportunityStatus) error
	GetByID(ctx context.Context, id string) (Opportunity, error)
	ListByChain(ctx context.Context, chainID string, opts ListOpts) ([]Opportunity, error)
	ListByBlockRange(ctx context.Context, chainID string, fromBlock, toBlock int64) ([]Opportunity, error)
	ListByBot(ctx context.Context, botAddress, chainID string, opts ListOpts) ([]Opportunity, error)
	CountByDay(ctx context.Context, chainID string, day time.Time) (int64, error)
}

// BotStore persists cumulative bot profiles.
type BotStore interface {
	// ApplyDelta folds one opportunity into a bot profile atomically
	// (upsert with increment expressions, never read-modify-write).
	ApplyDelta(ctx context.Context, delta BotDelta) error
	GetProfile(ctx context.Context, botAddress, chainID string) (Bot, error)
	ListTop(ctx context.Context, chainID string, limit int) ([]Bot, error)
}

// AttributionStore persists profit attribution records and serves rollups.
type AttributionStore interface {
	Insert(ctx context.Context, attr Attribution) (string, error)
	GetByOpportunity(ctx context.Context, opportunityID string) (Attribution, error)
	ListByBot(ctx context.Context, botAddress, chainID string, opts ListOpts) ([]Attribution, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Attribution, error)

	// Rollup* group by one dimension and return raw totals ordered by
	// profit descending; derived metrics are computed by the analyzers.
	RollupByBot(ctx context.Context, chainID string, tr TimeRange, limit int) ([]RollupRow, error)
	RollupByStrategy(ctx context.Context, chainID string, tr TimeRange) ([]RollupRow, error)
	RollupByProtocol(ctx context.Context, chainID string, tr TimeRange, limit int) ([]RollupRow, error)

	// BotShares returns per-bot profit volume for one chain-day, ordered by
	// volume descending, for competition analysis.
	BotShares(ctx context.Context, chainID string, day time.Time) ([]BotShare, error)
}

// TrendStore persists daily market trend aggregates.
type TrendStore interface {
	// AggregateDaily computes one chain-day aggregate from opportunities.
	AggregateDaily(ctx context.Context, chainID string, day time.Time) (MarketTrend, error)
	UpsertDaily(ctx context.Context, trend MarketTrend) error
	ListRange(ctx context.Context, chainID string, tr TimeRange) ([]MarketTrend, error)
}

// AccuracyStore persists detection events, validation records, and daily
// metrics.
type AccuracyStore interface {
	InsertDetection(ctx context.Context, rec DetectionRecord) error
	InsertValidation(ctx context.Context, rec ValidationRecord) error
	// IncrementDaily adds TP/FP counts to one detector-day row (upsert).
	IncrementDaily(ctx context.Context, detector OpportunityType, day time.Time, tp, fp int64) error
	ListDaily(ctx context.Context, detector OpportunityType, tr TimeRange) ([]DetectorDailyMetric, error)
}
