// Package attribution assigns detected MEV profits to bot, strategy,
// protocol, token, and time dimensions, and serves rollups over them.
package attribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mevlens/mevlens/internal/domain"
)

// Quality score weights. Sub-weights grant partial credit when only one of
// a dimension's fields is known.
const (
	weightBotID        = 30
	weightBotAddrOnly  = 15
	weightProtocolFull = 25
	weightProtocolPart = 12
	weightTokensFull   = 20
	weightTokensPart   = 10
	weightFinancials   = 15
	weightProfitOnly   = 7
	weightConfidence   = 10

	confidenceBonusFloor = 80

	qualityHighFloor   = 80
	qualityMediumFloor = 50
)

// QualityScore grades how completely an opportunity can be attributed.
// botID is the tracked bot's row ID, empty when the address has no profile.
func QualityScore(opp domain.Opportunity, botID string) (int, domain.AttributionQuality) {
	score := 0

	switch {
	case botID != "":
		score += weightBotID
	case opp.BotAddress != "":
		score += weightBotAddrOnly
	}

	switch {
	case opp.ProtocolID != "" && opp.ProtocolName != "":
		score += weightProtocolFull
	case opp.ProtocolID != "" || opp.ProtocolName != "":
		score += weightProtocolPart
	}

	switch {
	case len(opp.TokenAddresses) > 0 && len(opp.TokenSymbols) > 0:
		score += weightTokensFull
	case len(opp.TokenAddresses) > 0 || len(opp.TokenSymbols) > 0:
		score += weightTokensPart
	}

	switch {
	case opp.GrossProfitUSD != 0 && opp.GasCostUSD != 0:
		score += weightFinancials
	case opp.GrossProfitUSD != 0:
		score += weightProfitOnly
	}

	if opp.ConfidenceScore >= confidenceBonusFloor {
		score += weightConfidence
	}

	switch {
	case score >= qualityHighFloor:
		return score, domain.QualityHigh
	case score >= qualityMediumFloor:
		return score, domain.QualityMedium
	default:
		return score, domain.QualityLow
	}
}

// Build constructs the attribution record for an opportunity. Pure; callers
// supply the bot row ID (or empty).
func Build(opp domain.Opportunity, botID string) domain.Attribution {
	net := opp.NetProfitUSD
	if net == 0 {
		net = opp.GrossProfitUSD - opp.GasCostUSD
	}

	primaryAddr, primarySymbol := opp.PrimaryToken()
	ts := opp.Timestamp.UTC()
	_, quality := QualityScore(opp, botID)

	return domain.Attribution{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,

		BotID:      botID,
		BotAddress: opp.BotAddress,
		ChainID:    opp.ChainID,

		OpportunityType: opp.OpportunityType,

		ProtocolID:   opp.ProtocolID,
		ProtocolName: opp.ProtocolName,
		DEXName:      opp.DEXName,

		TokenAddresses:     opp.TokenAddresses,
		TokenSymbols:       opp.TokenSymbols,
		PrimaryTokenAddr:   primaryAddr,
		PrimaryTokenSymbol: primarySymbol,

		BlockNumber: opp.BlockNumber,
		Timestamp:   ts,
		Date:        ts.Truncate(24 * time.Hour),
		Hour:        ts.Hour(),

		GrossProfitUSD: opp.GrossProfitUSD,
		GasCostUSD:     opp.GasCostUSD,
		NetProfitUSD:   net,

		VictimLossUSD: opp.VictimLossUSD,
		VictimAddress: opp.VictimAddress,

		MEVTxHashes:  opp.MEVTxHashes,
		TargetTxHash: opp.TargetTxHash,

		ConfidenceScore: opp.ConfidenceScore,
		Quality:         quality,
	}
}

// Attributor builds and persists attribution records.
type Attributor struct {
	bots   domain.BotStore
	store  domain.AttributionStore
	logger *slog.Logger
}

// NewAttributor returns an Attributor.
func NewAttributor(bots domain.BotStore, store domain.AttributionStore, logger *slog.Logger) *Attributor {
	return &Attributor{
		bots:   bots,
		store:  store,
		logger: logger.With(slog.String("component", "attributor")),
	}
}

// Attribute builds and persists the attribution for one opportunity.
func (a *Attributor) Attribute(ctx context.Context, opp domain.Opportunity) (domain.AttributionResult, error) {
	var botID string
	if opp.BotAddress != "" {
		bot, err := a.bots.GetProfile(ctx, domain.NormalizeAddress(opp.BotAddress), opp.ChainID)
		switch {
		case err == nil:
			botID = bot.ID
		case errors.Is(err, domain.ErrNotFound):
			// Untracked bot; address-only credit.
		default:
			return domain.AttributionResult{}, fmt.Errorf("attribution: bot lookup for %s: %w", opp.BotAddress, err)
		}
	}

	attr := Build(opp, botID)
	id, err := a.store.Insert(ctx, attr)
	if err != nil {
		return domain.AttributionResult{}, fmt.Errorf("attribution: insert for opportunity %s: %w", opp.ID, err)
	}

	return domain.AttributionResult{
		AttributionID: id,
		OpportunityID: opp.ID,
		BotAddress:    attr.BotAddress,
		NetProfitUSD:  attr.NetProfitUSD,
		Quality:       attr.Quality,
	}, nil
}

// AttributeBatch attributes a batch, logging and skipping per-item failures.
func (a *Attributor) AttributeBatch(ctx context.Context, opps []domain.Opportunity) []domain.AttributionResult {
	results := make([]domain.AttributionResult, 0, len(opps))
	for _, opp := range opps {
		res, err := a.Attribute(ctx, opp)
		if err != nil {
			a.logger.Warn("attribution failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		results = append(results, res)
	}
	return results
}
