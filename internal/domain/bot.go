package domain

import "time"

// BotIdentity is the result of classifying an address.
type BotIdentity struct {
	Address       string
	Name          string
	Verified      bool
	MultiStrategy bool
	Strategies    []OpportunityType
	Confidence    float64
}

// Bot is the cumulative tracked profile of a MEV bot on one chain.
type Bot struct {
	ID      string
	Address string
	ChainID string

	Name     string
	Verified bool

	FirstSeen  time.Time
	LastActive time.Time

	TotalOpportunities int64
	Successful         int64
	Failed             int64

	TotalExtractedUSD float64
	TotalGasSpentUSD  float64
	AvgProfitUSD      float64

	// Preferred* are the top entries by occurrence count.
	PreferredTypes     []string
	PreferredProtocols []string
	PreferredTokens    []string

	ActiveDays      int
	ConfidenceScore float64
}

// BotDelta is the increment a single opportunity contributes to a bot
// profile. Applied atomically by the store so concurrent trackers never lose
// updates.
type BotDelta struct {
	Address string
	ChainID string

	Name     string
	Verified bool

	ObservedAt time.Time

	Success      bool
	ProfitUSD    float64
	GasUSD       float64
	Type         OpportunityType
	ProtocolName string
	PrimaryToken string

	Confidence float64
}
