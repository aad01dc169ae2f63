package domain

import "time"

// MarketTrend is one chain-day of aggregated MEV activity: pattern counts,
// profit totals and percentiles, bot activity, and the market-structure
// metrics derived from profit attribution.
type MarketTrend struct {
	ChainID string
	Date    time.Time

	TotalOpportunities int64
	SandwichCount      int64
	FrontrunCount      int64
	BackrunCount       int64
	ArbitrageCount     int64
	LiquidationCount   int64

	TotalProfitUSD   float64
	AvgProfitUSD     float64
	ProfitP50USD     float64
	ProfitP90USD     float64
	ProfitP99USD     float64
	TotalVictimLoss  float64
	TotalGasSpentUSD float64

	// UniqueBots is bots active this day; NewBots those never seen before.
	UniqueBots int64
	NewBots    int64

	// Market structure from per-bot profit shares.
	HHI           float64
	Concentration ConcentrationLevel
	Top10SharePct float64
	Intensity     CompetitionIntensity

	// DominantType is the most common pattern and its share of the day.
	DominantType     OpportunityType
	DominantSharePct float64
}

// ConcentrationLevel classifies a market's HHI.
type ConcentrationLevel string

const (
	ConcentrationLow      ConcentrationLevel = "low"
	ConcentrationModerate ConcentrationLevel = "moderate"
	ConcentrationHigh     ConcentrationLevel = "high"
	ConcentrationVeryHigh ConcentrationLevel = "very_high"
)

// CompetitionIntensity classifies how contested MEV extraction is.
type CompetitionIntensity string

const (
	IntensityLow     CompetitionIntensity = "low"
	IntensityMedium  CompetitionIntensity = "medium"
	IntensityHigh    CompetitionIntensity = "high"
	IntensityExtreme CompetitionIntensity = "extreme"
)

// BotCompetition summarizes bot market structure for one chain-day.
type BotCompetition struct {
	ChainID string
	Date    time.Time

	UniqueBots int
	HHI        float64

	Concentration ConcentrationLevel
	Intensity     CompetitionIntensity

	Top10SharePct float64
	TopShares     []BotShare
}

// ValidationOutcome records whether a detection was later confirmed.
type ValidationOutcome string

const (
	OutcomeTruePositive  ValidationOutcome = "true_positive"
	OutcomeFalsePositive ValidationOutcome = "false_positive"
)

// ValidationRecord is one ground-truth verdict on a persisted detection.
type ValidationRecord struct {
	ID            string
	OpportunityID string
	Detector      OpportunityType
	PredictedTier ProfitTier
	Confidence    float64
	Outcome       ValidationOutcome
	ValidatedAt   time.Time
}

// DetectionRecord is one detection-time event, logged when an opportunity is
// persisted so detection volume can be compared against later validations.
type DetectionRecord struct {
	ID            string
	OpportunityID string
	Detector      OpportunityType
	Tier          ProfitTier
	Confidence    float64
	DetectedAt    time.Time
}

// DetectorDailyMetric is one detector-day of validation counts.
type DetectorDailyMetric struct {
	Detector       OpportunityType
	Date           time.Time
	TruePositives  int64
	FalsePositives int64
}

// Precision returns TP/(TP+FP), or 0 when no validations exist.
func (m DetectorDailyMetric) Precision() float64 {
	total := m.TruePositives + m.FalsePositives
	if total == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(total)
}
