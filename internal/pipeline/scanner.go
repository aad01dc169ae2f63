// Package pipeline runs the scan, rollup, and archival loops that feed the
// MEV analytics stores.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mevlens/mevlens/internal/attribution"
	"github.com/mevlens/mevlens/internal/bots"
	"github.com/mevlens/mevlens/internal/domain"
	"github.com/mevlens/mevlens/internal/mev"
)

// DetectionRecorder logs one detection-time event per stored opportunity.
// The accuracy tracker implements it.
type DetectionRecorder interface {
	RecordDetection(ctx context.Context, opp domain.Opportunity) error
}

// Scanner pulls indexed chain data, runs every registered detector over it,
// and fans confirmed opportunities out to the stores, the bot tracker, and
// the attributor. Per-opportunity failures are logged, counted, and skipped;
// only provider and detector failures abort a scan.
type Scanner struct {
	provider   domain.BlockDataProvider
	registry   *mev.Registry
	opps       domain.OpportunityStore
	oppCache   domain.OpportunityCache // nil disables caching
	botTracker *bots.Tracker
	attributor *attribution.Attributor
	detections DetectionRecorder // nil disables detection events
	blocksPer  int64
	logger     *slog.Logger

	mu      sync.Mutex
	cursors map[string]int64 // chainID -> next from-block
}

// NewScanner creates a Scanner. oppCache and detections may be nil.
func NewScanner(
	provider domain.BlockDataProvider,
	registry *mev.Registry,
	opps domain.OpportunityStore,
	oppCache domain.OpportunityCache,
	botTracker *bots.Tracker,
	attributor *attribution.Attributor,
	detections DetectionRecorder,
	blocksPerScan int64,
	logger *slog.Logger,
) *Scanner {
	if blocksPerScan < 1 {
		blocksPerScan = 25
	}
	return &Scanner{
		provider:   provider,
		registry:   registry,
		opps:       opps,
		oppCache:   oppCache,
		botTracker: botTracker,
		attributor: attributor,
		detections: detections,
		blocksPer:  blocksPerScan,
		logger:     logger.With(slog.String("component", "scanner")),
		cursors:    make(map[string]int64),
	}
}

// nextRange picks the block window for a chain. The first scan on a chain
// starts one window back from the head; later scans resume from the cursor.
func (s *Scanner) nextRange(chainID string, head int64) (int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.cursors[chainID]
	if !ok {
		from = head - s.blocksPer + 1
		if from < 0 {
			from = 0
		}
	}
	if from > head {
		return from, from - 1 // nothing new yet
	}
	to := from + s.blocksPer - 1
	if to > head {
		to = head
	}
	return from, to
}

func (s *Scanner) advanceCursor(chainID string, to int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[chainID] = to + 1
}

// ScanOnce runs one detection pass over the chain's next block window and
// returns the number of newly stored opportunities and the number that
// failed processing and were skipped.
func (s *Scanner) ScanOnce(ctx context.Context, chainID string) (stored, failed int, err error) {
	head, err := s.provider.HeadBlock(ctx, chainID)
	if err != nil {
		return 0, 0, fmt.Errorf("pipeline: head block for %s: %w", chainID, err)
	}

	from, to := s.nextRange(chainID, head)
	if to < from {
		return 0, 0, nil
	}

	batch, err := s.fetchBatch(ctx, chainID, from, to)
	if err != nil {
		return 0, 0, err
	}

	var detected []domain.Opportunity
	for _, d := range s.registry.List() {
		found, err := d.Detect(ctx, batch)
		if err != nil {
			return 0, 0, fmt.Errorf("pipeline: detector %s on %s blocks %d-%d: %w",
				d.Name(), chainID, from, to, err)
		}
		detected = append(detected, found...)
	}

	for _, opp := range detected {
		if err := s.handleOpportunity(ctx, opp); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			failed++
			s.logger.Warn("opportunity processing failed",
				slog.String("chain", chainID),
				slog.String("type", string(opp.OpportunityType)),
				slog.String("target_tx", opp.TargetTxHash),
				slog.String("error", err.Error()),
			)
			continue
		}
		stored++
	}

	s.advanceCursor(chainID, to)

	s.logger.Info("scan complete",
		slog.String("chain", chainID),
		slog.Int64("from_block", from),
		slog.Int64("to_block", to),
		slog.Int("detected", len(detected)),
		slog.Int("stored", stored),
		slog.Int("failed", failed),
	)
	return stored, failed, nil
}

// fetchBatch assembles one detection batch from the provider.
func (s *Scanner) fetchBatch(ctx context.Context, chainID string, from, to int64) (mev.Batch, error) {
	swaps, err := s.provider.SwapsByBlockRange(ctx, chainID, from, to)
	if err != nil {
		return mev.Batch{}, fmt.Errorf("pipeline: swaps %s %d-%d: %w", chainID, from, to, err)
	}
	prices, err := s.provider.PoolPrices(ctx, chainID, to)
	if err != nil {
		return mev.Batch{}, fmt.Errorf("pipeline: pool prices %s @%d: %w", chainID, to, err)
	}
	positions, err := s.provider.LendingPositions(ctx, chainID, to)
	if err != nil {
		return mev.Batch{}, fmt.Errorf("pipeline: lending positions %s @%d: %w", chainID, to, err)
	}
	liquidations, err := s.provider.Liquidations(ctx, chainID, from, to)
	if err != nil {
		return mev.Batch{}, fmt.Errorf("pipeline: liquidations %s %d-%d: %w", chainID, from, to, err)
	}
	gas, err := s.provider.BaselineGasGwei(ctx, chainID, to)
	if err != nil {
		return mev.Batch{}, fmt.Errorf("pipeline: baseline gas %s @%d: %w", chainID, to, err)
	}

	return mev.Batch{
		ChainID:         chainID,
		FromBlock:       from,
		ToBlock:         to,
		Swaps:           swaps,
		PoolPrices:      prices,
		Positions:       positions,
		Liquidations:    liquidations,
		BaselineGasGwei: gas,
	}, nil
}

// handleOpportunity persists one detection and fans it out. The store insert
// is the dedup point: a redetected opportunity returns ErrAlreadyExists and
// nothing downstream runs.
func (s *Scanner) handleOpportunity(ctx context.Context, opp domain.Opportunity) error {
	id, err := s.opps.Insert(ctx, opp)
	if err != nil {
		return err
	}
	opp.ID = id

	if s.oppCache != nil {
		if err := s.oppCache.Set(ctx, opp); err != nil {
			s.logger.Warn("opportunity cache write failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.botTracker.Track(ctx, opp); err != nil {
		return err
	}
	if _, err := s.attributor.Attribute(ctx, opp); err != nil {
		return err
	}

	if s.detections != nil {
		if err := s.detections.RecordDetection(ctx, opp); err != nil {
			s.logger.Warn("detection event record failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// RunLoop scans the chain on a fixed interval until the context is
// cancelled. Scan failures are logged; the loop keeps running.
func (s *Scanner) RunLoop(ctx context.Context, chainID string, interval time.Duration) error {
	if _, _, err := s.ScanOnce(ctx, chainID); err != nil {
		s.logger.Error("scan failed",
			slog.String("chain", chainID),
			slog.String("error", err.Error()),
		)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan loop stopped", slog.String("chain", chainID))
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := s.ScanOnce(ctx, chainID); err != nil {
				s.logger.Error("scan failed",
					slog.String("chain", chainID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
