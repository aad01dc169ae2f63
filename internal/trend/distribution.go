package trend

import "github.com/mevlens/mevlens/internal/domain"

// Slice is one bucket of a distribution.
type Slice struct {
	Key      string
	Count    int64
	SharePct float64
}

// Distribution breaks a set of opportunities down along one dimension.
type Distribution struct {
	Total  int64
	Slices []Slice
}

func distribute(opps []domain.Opportunity, key func(domain.Opportunity) string) Distribution {
	counts := make(map[string]int64)
	order := make([]string, 0)
	for _, o := range opps {
		k := key(o)
		if k == "" {
			k = "unknown"
		}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	d := Distribution{Total: int64(len(opps))}
	for _, k := range order {
		share := 0.0
		if d.Total > 0 {
			share = float64(counts[k]) / float64(d.Total) * 100
		}
		d.Slices = append(d.Slices, Slice{Key: k, Count: counts[k], SharePct: share})
	}
	return d
}

// FromTrendCounts breaks a daily aggregate down by pattern using the counts
// it already carries, without re-reading opportunities.
func FromTrendCounts(t domain.MarketTrend) Distribution {
	d := Distribution{Total: t.TotalOpportunities}
	for _, s := range []struct {
		key   domain.OpportunityType
		count int64
	}{
		{domain.OpportunitySandwich, t.SandwichCount},
		{domain.OpportunityFrontrun, t.FrontrunCount},
		{domain.OpportunityBackrun, t.BackrunCount},
		{domain.OpportunityArbitrage, t.ArbitrageCount},
		{domain.OpportunityLiquidation, t.LiquidationCount},
	} {
		if s.count == 0 {
			continue
		}
		share := 0.0
		if d.Total > 0 {
			share = float64(s.count) / float64(d.Total) * 100
		}
		d.Slices = append(d.Slices, Slice{Key: string(s.key), Count: s.count, SharePct: share})
	}
	return d
}

// Top returns the largest slice, or false for an empty distribution.
func (d Distribution) Top() (Slice, bool) {
	var top Slice
	found := false
	for _, s := range d.Slices {
		if !found || s.Count > top.Count {
			top = s
			found = true
		}
	}
	return top, found
}

// ByType breaks opportunities down by pattern.
func ByType(opps []domain.Opportunity) Distribution {
	return distribute(opps, func(o domain.Opportunity) string { return string(o.OpportunityType) })
}

// ByTier breaks opportunities down by profit tier.
func ByTier(opps []domain.Opportunity) Distribution {
	return distribute(opps, func(o domain.Opportunity) string { return string(o.ProfitTier) })
}

// ByProtocol breaks opportunities down by protocol name.
func ByProtocol(opps []domain.Opportunity) Distribution {
	return distribute(opps, func(o domain.Opportunity) string { return o.ProtocolName })
}
