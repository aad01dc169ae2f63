package redis

import (
	"context"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

const trendTTL = time.Hour

// TrendCache implements domain.TrendCache, keyed by chain and day. Daily
// aggregates change only when a chain-day is recomputed, so a one-hour TTL
// keeps reads warm without chasing every rewrite.
//
// Key schema:
//
//	mev:trend:{chainID}:{YYYY-MM-DD} - JSON-encoded MarketTrend
type TrendCache struct {
	c *Client
}

// NewTrendCache creates a TrendCache backed by the given Client.
func NewTrendCache(c *Client) *TrendCache {
	return &TrendCache{c: c}
}

func trendKey(chainID string, day time.Time) string {
	return "trend:" + chainID + ":" + day.UTC().Format("2006-01-02")
}

// Set stores one chain-day trend aggregate.
func (tc *TrendCache) Set(ctx context.Context, trend domain.MarketTrend) error {
	return tc.c.setJSON(ctx, trendKey(trend.ChainID, trend.Date), trend, trendTTL)
}

// Get retrieves one chain-day trend aggregate. It returns domain.ErrNotFound
// when the key does not exist or has expired.
func (tc *TrendCache) Get(ctx context.Context, chainID string, day time.Time) (domain.MarketTrend, error) {
	var trend domain.MarketTrend
	if err := tc.c.getJSON(ctx, trendKey(chainID, day), &trend); err != nil {
		return domain.MarketTrend{}, err
	}
	return trend, nil
}

// Compile-time interface check.
var _ domain.TrendCache = (*TrendCache)(nil)
