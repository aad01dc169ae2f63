package trend

import (
	"context"
	"fmt"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

// HHI computes the Herfindahl-Hirschman Index from percentage shares:
// the sum of squared shares. 10000 is a monopoly; under 1500 reads as a
// competitive market.
func HHI(sharesPct []float64) float64 {
	var hhi float64
	for _, s := range sharesPct {
		hhi += s * s
	}
	return hhi
}

// ConcentrationFor classifies an HHI value.
func ConcentrationFor(hhi float64) domain.ConcentrationLevel {
	switch {
	case hhi < 1500:
		return domain.ConcentrationLow
	case hhi < 2500:
		return domain.ConcentrationModerate
	case hhi < 5000:
		return domain.ConcentrationHigh
	default:
		return domain.ConcentrationVeryHigh
	}
}

// IntensityFor classifies competition from bot count and concentration.
// Many bots fighting over a fragmented market is the most intense regime.
func IntensityFor(botCount int, hhi float64) domain.CompetitionIntensity {
	switch {
	case botCount >= 100 && hhi < 1500:
		return domain.IntensityExtreme
	case botCount >= 50 && hhi < 2500:
		return domain.IntensityHigh
	case botCount >= 20 && hhi < 5000:
		return domain.IntensityMedium
	default:
		return domain.IntensityLow
	}
}

// CompetitionAnalyzer derives market-structure metrics from per-bot profit
// shares.
type CompetitionAnalyzer struct {
	store domain.AttributionStore
}

// NewCompetitionAnalyzer returns a CompetitionAnalyzer.
func NewCompetitionAnalyzer(store domain.AttributionStore) *CompetitionAnalyzer {
	return &CompetitionAnalyzer{store: store}
}

// Analyze computes competition metrics for one chain-day.
func (a *CompetitionAnalyzer) Analyze(ctx context.Context, chainID string, day time.Time) (domain.BotCompetition, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	shares, err := a.store.BotShares(ctx, chainID, day)
	if err != nil {
		return domain.BotCompetition{}, fmt.Errorf("trend: bot shares %s %s: %w", chainID, day.Format("2006-01-02"), err)
	}
	return Compete(chainID, day, shares), nil
}

// Compete computes competition metrics from already-fetched shares. Shares
// are expected ordered by volume descending.
func Compete(chainID string, day time.Time, shares []domain.BotShare) domain.BotCompetition {
	pcts := make([]float64, len(shares))
	for i, s := range shares {
		pcts[i] = s.SharePct
	}
	hhi := HHI(pcts)

	top10 := 0.0
	for i, s := range shares {
		if i >= 10 {
			break
		}
		top10 += s.SharePct
	}

	return domain.BotCompetition{
		ChainID:       chainID,
		Date:          day,
		UniqueBots:    len(shares),
		HHI:           hhi,
		Concentration: ConcentrationFor(hhi),
		Intensity:     IntensityFor(len(shares), hhi),
		Top10SharePct: top10,
		TopShares:     shares,
	}
}
