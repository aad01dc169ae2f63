package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mevlens/mevlens/internal/trend"
)

// rollupInterval is how often daily trend aggregates are recomputed. Each
// pass recomputes the current and previous day so late detections near
// midnight are folded in.
const rollupInterval = time.Hour

// Orchestrator manages the pipeline goroutines: one scan loop per chain, the
// trend rollup loop, and cold-storage archival. Any component may be nil to
// disable it.
type Orchestrator struct {
	scanner      *Scanner
	trends       *trend.MarketCalculator
	archiver     *Archiver
	chains       []string
	scanInterval time.Duration
	archiveCron  string
	logger       *slog.Logger
}

// NewOrchestrator creates an Orchestrator coordinating all pipeline
// sub-systems.
func NewOrchestrator(
	scanner *Scanner,
	trends *trend.MarketCalculator,
	archiver *Archiver,
	chains []string,
	scanInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scanner:      scanner,
		trends:       trends,
		archiver:     archiver,
		chains:       chains,
		scanInterval: scanInterval,
		archiveCron:  archiveCron,
		logger:       logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts all sub-pipelines as concurrent goroutines using an errgroup.
// Each goroutine respects ctx cancellation. If any goroutine returns a
// non-context error, the errgroup cancels the shared context and Run returns
// that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Any("chains", o.chains),
		slog.Duration("scan_interval", o.scanInterval),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.scanner != nil {
		for _, chainID := range o.chains {
			chainID := chainID
			g.Go(func() error {
				o.logger.Info("starting scan loop", slog.String("chain", chainID))
				err := o.scanner.RunLoop(ctx, chainID, o.scanInterval)
				if ctx.Err() != nil {
					return nil // clean shutdown
				}
				return fmt.Errorf("scanner %s: %w", chainID, err)
			})
		}
	}

	if o.trends != nil {
		g.Go(func() error {
			o.logger.Info("starting trend rollup loop")
			err := o.runRollups(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("trend rollup: %w", err)
		})
	}

	if o.archiver != nil && o.archiveCron != "" {
		g.Go(func() error {
			o.logger.Info("starting archiver cron")
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

// runRollups recomputes daily trend aggregates on a fixed interval. Rollup
// failures are logged per chain-day; the loop keeps running.
func (o *Orchestrator) runRollups(ctx context.Context) error {
	o.rollupAll(ctx)

	ticker := time.NewTicker(rollupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("trend rollup loop stopped")
			return ctx.Err()
		case <-ticker.C:
			o.rollupAll(ctx)
		}
	}
}

// rollupAll recomputes today's and yesterday's aggregates for every chain.
func (o *Orchestrator) rollupAll(ctx context.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	yesterday := today.Add(-24 * time.Hour)

	for _, chainID := range o.chains {
		for _, day := range []time.Time{yesterday, today} {
			if _, err := o.trends.ComputeDaily(ctx, chainID, day); err != nil {
				o.logger.Error("trend rollup failed",
					slog.String("chain", chainID),
					slog.String("day", day.Format("2006-01-02")),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
