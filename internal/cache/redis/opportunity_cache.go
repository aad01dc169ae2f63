package redis

import (
	"context"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

const opportunityTTL = 15 * time.Minute

// OpportunityCache implements domain.OpportunityCache using JSON-serialized
// opportunities with a per-key TTL.
//
// Key schema:
//
//	mev:opp:{id} - JSON-encoded Opportunity
type OpportunityCache struct {
	c *Client
}

// NewOpportunityCache creates an OpportunityCache backed by the given Client.
func NewOpportunityCache(c *Client) *OpportunityCache {
	return &OpportunityCache{c: c}
}

func opportunityKey(id string) string { return "opp:" + id }

// Set stores an opportunity with a 15-minute TTL.
func (oc *OpportunityCache) Set(ctx context.Context, opp domain.Opportunity) error {
	return oc.c.setJSON(ctx, opportunityKey(opp.ID), opp, opportunityTTL)
}

// Get retrieves an opportunity by ID. It returns domain.ErrNotFound when the
// key does not exist or has expired.
func (oc *OpportunityCache) Get(ctx context.Context, id string) (domain.Opportunity, error) {
	var opp domain.Opportunity
	if err := oc.c.getJSON(ctx, opportunityKey(id), &opp); err != nil {
		return domain.Opportunity{}, err
	}
	return opp, nil
}

// Invalidate removes an opportunity from the cache.
func (oc *OpportunityCache) Invalidate(ctx context.Context, id string) error {
	return oc.c.del(ctx, opportunityKey(id))
}

// Compile-time interface check.
var _ domain.OpportunityCache = (*OpportunityCache)(nil)
