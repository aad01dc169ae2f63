package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mevlens/mevlens/internal/accuracy"
	"github.com/mevlens/mevlens/internal/attribution"
	"github.com/mevlens/mevlens/internal/bots"
	"github.com/mevlens/mevlens/internal/mev"
	"github.com/mevlens/mevlens/internal/pipeline"
	"github.com/mevlens/mevlens/internal/trend"
)

// historyLookback is how far back detector validation history is replayed
// into the accuracy tracker at startup.
const historyLookback = 30 * 24 * time.Hour

// buildDetection assembles the detector registry and the accuracy tracker
// from the runtime configuration. The tracker always records detections and
// lifecycle transitions; it only feeds thresholds back when adaptive
// thresholding is enabled.
func (a *App) buildDetection(ctx context.Context, deps *Dependencies) (*mev.Registry, *accuracy.Tracker, error) {
	det := a.cfg.Detection

	mevCfg := mev.DefaultConfig()
	mevCfg.MinNetProfitUSD = det.MinNetProfitUSD
	mevCfg.MinSpreadPct = det.MinSpreadPct
	mevCfg.ArbDepthPct = det.ArbDepthPct
	mevCfg.ArbGasEstimateUSD = det.ArbGasEstimateUSD
	mevCfg.FeePctPerLeg = det.FeePctPerLeg
	mevCfg.EnhancedScoring = det.EnhancedScoring
	mevCfg.Weights = mev.FactorWeights{
		GasPrice:   det.Weights.Gas,
		Timing:     det.Weights.Timing,
		Volume:     det.Weights.Volume,
		Liquidity:  det.Weights.Liquidity,
		Historical: det.Weights.Historical,
	}

	tracker := accuracy.NewTracker(deps.AccuracyStore, deps.OpportunityStore, a.logger)
	if det.AdaptiveThreshold {
		if err := tracker.LoadHistory(ctx, time.Now().UTC().Add(-historyLookback)); err != nil {
			a.logger.WarnContext(ctx, "accuracy history load failed, starting with static thresholds",
				slog.String("error", err.Error()),
			)
		}
		mevCfg.Thresholds = tracker
	}

	if err := mevCfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("detection config: %w", err)
	}
	// A chain without detection parameters is a config error; refuse to
	// start rather than scan it with another chain's tuning.
	if err := mevCfg.ValidateChains(a.cfg.Pipeline.Chains); err != nil {
		return nil, nil, fmt.Errorf("detection config: %w", err)
	}
	registry, err := mev.DefaultRegistry(mevCfg)
	if err != nil {
		return nil, nil, err
	}
	return registry, tracker, nil
}

// buildScanner assembles the scan loop with bot tracking, attribution
// fan-out, and detection-event recording.
func (a *App) buildScanner(registry *mev.Registry, tracker *accuracy.Tracker, deps *Dependencies) *pipeline.Scanner {
	botTracker := bots.NewTracker(bots.NewIdentifier(), deps.BotStore, a.logger)
	attributor := attribution.NewAttributor(deps.BotStore, deps.AttributionStore, a.logger)

	return pipeline.NewScanner(
		a.provider,
		registry,
		deps.OpportunityStore,
		deps.OpportunityCache,
		botTracker,
		attributor,
		tracker,
		a.cfg.Pipeline.BlocksPerScan,
		a.logger,
	)
}

// buildArchiver returns the archival loop, or nil when S3 is not wired.
func (a *App) buildArchiver(deps *Dependencies) *pipeline.Archiver {
	if deps.SnapshotArchiver == nil {
		return nil
	}
	return pipeline.NewArchiver(deps.SnapshotArchiver, a.cfg.Pipeline.ArchiveRetentionDays, a.logger)
}

// ScanMode runs detection only: per-chain scan loops plus archival. Trend
// rollups are left to a separate rollup instance.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	if a.provider == nil {
		return fmt.Errorf("scan mode: no block data provider configured")
	}

	registry, tracker, err := a.buildDetection(ctx, deps)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	orch := pipeline.NewOrchestrator(
		a.buildScanner(registry, tracker, deps),
		nil,
		a.buildArchiver(deps),
		a.cfg.Pipeline.Chains,
		a.cfg.Pipeline.ScanInterval.Duration,
		a.cfg.Pipeline.ArchiveCron,
		a.logger,
	)
	return orch.Run(ctx)
}

// RollupMode runs analytics only: the daily trend rollup loop over already
// detected opportunities.
func (a *App) RollupMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting rollup mode")

	competition := trend.NewCompetitionAnalyzer(deps.AttributionStore)
	trends := trend.NewMarketCalculator(deps.TrendStore, competition, deps.TrendCache, a.logger)
	orch := pipeline.NewOrchestrator(
		nil,
		trends,
		nil,
		a.cfg.Pipeline.Chains,
		a.cfg.Pipeline.ScanInterval.Duration,
		"",
		a.logger,
	)
	return orch.Run(ctx)
}

// FullMode runs every subsystem: scan loops, trend rollups, and archival.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if a.provider == nil {
		return fmt.Errorf("full mode: no block data provider configured")
	}

	registry, tracker, err := a.buildDetection(ctx, deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	competition := trend.NewCompetitionAnalyzer(deps.AttributionStore)
	trends := trend.NewMarketCalculator(deps.TrendStore, competition, deps.TrendCache, a.logger)
	orch := pipeline.NewOrchestrator(
		a.buildScanner(registry, tracker, deps),
		trends,
		a.buildArchiver(deps),
		a.cfg.Pipeline.Chains,
		a.cfg.Pipeline.ScanInterval.Duration,
		a.cfg.Pipeline.ArchiveCron,
		a.logger,
	)
	return orch.Run(ctx)
}
