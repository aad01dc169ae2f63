package domain

import "time"

// OpportunityType identifies the MEV extraction pattern a record describes.
type OpportunityType string

const (
	OpportunitySandwich    OpportunityType = "sandwich"
	OpportunityFrontrun    OpportunityType = "frontrun"
	OpportunityBackrun     OpportunityType = "backrun"
	OpportunityArbitrage   OpportunityType = "arbitrage"
	OpportunityLiquidation OpportunityType = "liquidation"
)

// OpportunityTypes lists every detector pattern in a stable order.
func OpportunityTypes() []OpportunityType {
	return []OpportunityType{
		OpportunitySandwich,
		OpportunityFrontrun,
		OpportunityBackrun,
		OpportunityArbitrage,
		OpportunityLiquidation,
	}
}

// OpportunityStatus tracks an opportunity through its validation lifecycle.
// Every record starts as detected; validation moves it to validated or
// false_positive, and confirmed on-chain execution marks it executed.
type OpportunityStatus string

const (
	StatusDetected      OpportunityStatus = "detected"
	StatusValidated     OpportunityStatus = "validated"
	StatusFalsePositive OpportunityStatus = "false_positive"
	StatusExecuted      OpportunityStatus = "executed"
)

// ProfitTier buckets opportunities by extracted net profit.
type ProfitTier string

const (
	TierMicro  ProfitTier = "micro"
	TierSmall  ProfitTier = "small"
	TierMedium ProfitTier = "medium"
	TierLarge  ProfitTier = "large"
	TierWhale  ProfitTier = "whale"
)

// Opportunity is a detected MEV extraction event, the central record of the
// system. One row per (chain, target tx, pattern).
type Opportunity struct {
	ID              string
	ChainID         string
	OpportunityType OpportunityType
	BlockNumber     int64
	Timestamp       time.Time

	BotAddress    string
	VictimAddress string

	// TargetTxHash is the tx the MEV activity keyed on (the victim swap, the
	// arbed pool update, the liquidated position's trigger).
	TargetTxHash string
	MEVTxHashes  []string

	ProtocolID   string
	ProtocolName string
	DEXName      string

	TokenAddresses []string
	TokenSymbols   []string

	GrossProfitUSD float64
	GasCostUSD     float64
	NetProfitUSD   float64
	VictimLossUSD  float64

	ProfitTier      ProfitTier
	ConfidenceScore float64
	Status          OpportunityStatus

	DetectedAt time.Time
}

// PrimaryToken returns the first token address/symbol pair, when known.
func (o Opportunity) PrimaryToken() (addr, symbol string) {
	if len(o.TokenAddresses) > 0 {
		addr = o.TokenAddresses[0]
	}
	if len(o.TokenSymbols) > 0 {
		symbol = o.TokenSymbols[0]
	}
	return addr, symbol
}
