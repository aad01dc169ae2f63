// Package accuracy tracks detector precision from ground-truth validations
// and adapts per-tier confidence thresholds from it.
package accuracy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mevlens/mevlens/internal/domain"
)

// counterKey identifies one (detector, tier) precision bucket.
type counterKey struct {
	Detector domain.OpportunityType
	Tier     domain.ProfitTier
}

type counts struct {
	truePositives  int64
	falsePositives int64
}

func (c counts) precision() (float64, bool) {
	total := c.truePositives + c.falsePositives
	if total == 0 {
		return 0, false
	}
	return float64(c.truePositives) / float64(total), true
}

// StatusStore is the narrow surface the tracker needs to move opportunities
// through their lifecycle as verdicts come in.
type StatusStore interface {
	UpdateStatus(ctx context.Context, id string, status domain.OpportunityStatus) error
}

// Tracker accumulates validation outcomes per (detector, tier) and derives
// adaptive confidence thresholds. In-memory counters are authoritative for
// the running process; the store keeps the durable daily metric rows.
// Safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	counts map[counterKey]*counts

	store    domain.AccuracyStore // nil disables persistence
	statuses StatusStore          // nil disables lifecycle transitions
	logger   *slog.Logger
}

// NewTracker returns a Tracker. store and statuses may be nil for purely
// in-memory use.
func NewTracker(store domain.AccuracyStore, statuses StatusStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		counts:   make(map[counterKey]*counts),
		store:    store,
		statuses: statuses,
		logger:   logger.With(slog.String("component", "accuracy_tracker")),
	}
}

// RecordDetection logs one detection-time event for a freshly persisted
// opportunity, so daily detection volume can be compared against later
// validation verdicts.
func (t *Tracker) RecordDetection(ctx context.Context, opp domain.Opportunity) error {
	if opp.ID == "" || opp.OpportunityType == "" {
		return fmt.Errorf("accuracy: record detection: %w", domain.ErrInvalidInput)
	}
	if t.store == nil {
		return nil
	}
	rec := domain.DetectionRecord{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		Detector:      opp.OpportunityType,
		Tier:          opp.ProfitTier,
		Confidence:    opp.ConfidenceScore,
		DetectedAt:    opp.DetectedAt,
	}
	if rec.DetectedAt.IsZero() {
		rec.DetectedAt = time.Now().UTC()
	}
	if err := t.store.InsertDetection(ctx, rec); err != nil {
		return fmt.Errorf("accuracy: insert detection: %w", err)
	}
	return nil
}

// RecordValidation folds one ground-truth verdict into the counters and
// persists the validation record plus the daily metric increment.
func (t *Tracker) RecordValidation(ctx context.Context, rec domain.ValidationRecord) error {
	if rec.Detector == "" || rec.OpportunityID == "" {
		return fmt.Errorf("accuracy: record validation: %w", domain.ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ValidatedAt.IsZero() {
		rec.ValidatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	key := counterKey{Detector: rec.Detector, Tier: rec.PredictedTier}
	c, ok := t.counts[key]
	if !ok {
		c = &counts{}
		t.counts[key] = c
	}
	var tp, fp int64
	switch rec.Outcome {
	case domain.OutcomeTruePositive:
		c.truePositives++
		tp = 1
	case domain.OutcomeFalsePositive:
		c.falsePositives++
		fp = 1
	default:
		t.mu.Unlock()
		return fmt.Errorf("accuracy: unknown outcome %q: %w", rec.Outcome, domain.ErrInvalidInput)
	}
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.InsertValidation(ctx, rec); err != nil {
			return fmt.Errorf("accuracy: insert validation: %w", err)
		}
		day := rec.ValidatedAt.UTC().Truncate(24 * time.Hour)
		if err := t.store.IncrementDaily(ctx, rec.Detector, day, tp, fp); err != nil {
			return fmt.Errorf("accuracy: increment daily metric: %w", err)
		}
	}

	// The verdict moves the opportunity through its lifecycle.
	if t.statuses != nil {
		status := domain.StatusValidated
		if rec.Outcome == domain.OutcomeFalsePositive {
			status = domain.StatusFalsePositive
		}
		if err := t.statuses.UpdateStatus(ctx, rec.OpportunityID, status); err != nil {
			return fmt.Errorf("accuracy: update opportunity %s status: %w", rec.OpportunityID, err)
		}
	}
	return nil
}

// Precision returns the observed precision for one (detector, tier) bucket
// and whether any validations exist for it.
func (t *Tracker) Precision(detector domain.OpportunityType, tier domain.ProfitTier) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.counts[counterKey{Detector: detector, Tier: tier}]
	if !ok {
		return 0, false
	}
	return c.precision()
}

// HistoricalPrecision returns the detector's precision across all tiers, or
// the neutral 0.5 when no history exists.
func (t *Tracker) HistoricalPrecision(detector domain.OpportunityType) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var tp, fp int64
	for k, c := range t.counts {
		if k.Detector != detector {
			continue
		}
		tp += c.truePositives
		fp += c.falsePositives
	}
	if tp+fp == 0 {
		return 0.5
	}
	return float64(tp) / float64(tp+fp)
}

// MinConfidence adapts a tier's base confidence floor from observed
// precision: sloppy detectors get stricter floors, reliable ones earn a
// small relaxation. Result is clamped to [0, 100].
func (t *Tracker) MinConfidence(detector domain.OpportunityType, tier domain.ProfitTier, base float64) float64 {
	precision, ok := t.Precision(detector, tier)
	adjusted := base
	if ok {
		switch {
		case precision < 0.5:
			adjusted = base + 10
		case precision < 0.7:
			adjusted = base + 5
		case precision > 0.9:
			adjusted = base - 5
		}
	}
	if adjusted < 0 {
		return 0
	}
	if adjusted > 100 {
		return 100
	}
	return adjusted
}

// LoadHistory seeds the in-memory counters from persisted daily metrics so
// adaptive thresholds survive restarts. Tier attribution is lost in the
// daily rollup, so history is loaded into the zero-tier bucket used by
// HistoricalPrecision only.
func (t *Tracker) LoadHistory(ctx context.Context, since time.Time) error {
	if t.store == nil {
		return nil
	}
	for _, det := range domain.OpportunityTypes() {
		metrics, err := t.store.ListDaily(ctx, det, domain.TimeRange{Start: since})
		if err != nil {
			return fmt.Errorf("accuracy: load history for %s: %w", det, err)
		}
		var tp, fp int64
		for _, m := range metrics {
			tp += m.TruePositives
			fp += m.FalsePositives
		}
		if tp+fp == 0 {
			continue
		}
		t.mu.Lock()
		key := counterKey{Detector: det}
		c, ok := t.counts[key]
		if !ok {
			c = &counts{}
			t.counts[key] = c
		}
		c.truePositives += tp
		c.falsePositives += fp
		t.mu.Unlock()
		t.logger.Info("loaded validation history",
			slog.String("detector", string(det)),
			slog.Int64("true_positives", tp),
			slog.Int64("false_positives", fp),
		)
	}
	return nil
}
