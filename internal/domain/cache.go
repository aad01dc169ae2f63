package domain

import (
	"context"
	"time"
)

// OpportunityCache is a read-through accelerator in front of the
// opportunity store. Optional: a nil cache is valid and callers fall back
// to the store.
type OpportunityCache interface {
	Set(ctx context.Context, opp Opportunity) error
	Get(ctx context.Context, id string) (Opportunity, error)
	Invalidate(ctx context.Context, id string) error
}

// TrendCache caches daily trend aggregates keyed by (chain, day).
type TrendCache interface {
	Set(ctx context.Context, trend MarketTrend) error
	Get(ctx context.Context, chainID string, day time.Time) (MarketTrend, error)
}
