package domain

import "time"

// AttributionQuality grades how complete an attribution record is.
type AttributionQuality string

const (
	QualityHigh   AttributionQuality = "high"
	QualityMedium AttributionQuality = "medium"
	QualityLow    AttributionQuality = "low"
)

// Attribution assigns an opportunity's profit to bot, strategy, protocol,
// token, and time dimensions. Append-only; one row per opportunity.
type Attribution struct {
	ID            string
	OpportunityID string

	BotID      string
	BotAddress string
	ChainID    string

	OpportunityType OpportunityType

	ProtocolID   string
	ProtocolName string
	DEXName      string

	TokenAddresses     []string
	TokenSymbols       []string
	PrimaryTokenAddr   string
	PrimaryTokenSymbol string

	BlockNumber int64
	Timestamp   time.Time
	Date        time.Time
	Hour        int

	GrossProfitUSD  float64
	GasCostUSD      float64
	ProtocolFeesUSD float64
	SlippageUSD     float64
	OtherCostsUSD   float64
	NetProfitUSD    float64

	VictimLossUSD float64
	VictimAddress string

	MEVTxHashes  []string
	TargetTxHash string

	ConfidenceScore float64
	Quality         AttributionQuality
}

// AttributionResult is the summary returned after attributing one
// opportunity.
type AttributionResult struct {
	AttributionID string
	OpportunityID string
	BotAddress    string
	NetProfitUSD  float64
	Quality       AttributionQuality
}

// TimeRange bounds rollup queries. Zero values mean unbounded.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// RollupRow is a raw aggregation row from the attribution store, before
// derived metrics (share, rank, ROI) are computed.
type RollupRow struct {
	// Key fields; which ones are set depends on the grouping dimension.
	BotAddress   string
	BotName      string
	ChainID      string
	Type         OpportunityType
	ProtocolID   string
	ProtocolName string

	TotalProfitUSD   float64
	TotalGasCostUSD  float64
	TotalTx          int64
	SuccessfulTx     int64
	TotalUserLossUSD float64
}

// BotAttribution is a per-bot profit rollup.
type BotAttribution struct {
	BotAddress        string
	BotName           string
	ChainID           string
	TotalProfitUSD    float64
	TotalTx           int64
	AvgProfitPerTxUSD float64
	SharePct          float64
	Rank              int
}

// StrategyAttribution is a per-opportunity-type profit rollup.
type StrategyAttribution struct {
	Type              OpportunityType
	TotalProfitUSD    float64
	TotalTx           int64
	AvgProfitPerTxUSD float64
	SharePct          float64
	SuccessRatePct    float64
	AvgGasCostUSD     float64
	ROIPct            float64
	Rank              int
}

// ProtocolAttribution is a per-protocol profit rollup including MEV leakage
// extracted from the protocol's users.
type ProtocolAttribution struct {
	ProtocolID        string
	ProtocolName      string
	TotalProfitUSD    float64
	TotalTx           int64
	AvgProfitPerTxUSD float64
	SharePct          float64
	MEVLeakageUSD     float64
	UserLossUSD       float64
	Rank              int
}

// BotShare is one bot's slice of daily extracted profit, used by the
// competition analyzer.
type BotShare struct {
	BotAddress string
	VolumeUSD  float64
	SharePct   float64
}
