package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mevlens/mevlens/internal/domain"
)

// AccuracyStore implements domain.AccuracyStore.
type AccuracyStore struct {
	pool *pgxpool.Pool
}

// NewAccuracyStore creates an AccuracyStore.
func NewAccuracyStore(pool *pgxpool.Pool) *AccuracyStore {
	return &AccuracyStore{pool: pool}
}

// InsertDetection stores one detection-time event.
func (s *AccuracyStore) InsertDetection(ctx context.Context, rec domain.DetectionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mev_detector_detections (
			id, opportunity_id, detector, tier, confidence, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.OpportunityID, rec.Detector, rec.Tier, rec.Confidence, rec.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert detection %s: %w", rec.ID, err)
	}
	return nil
}

// InsertValidation stores one ground-truth validation record.
func (s *AccuracyStore) InsertValidation(ctx context.Context, rec domain.ValidationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mev_detector_validations (
			id, opportunity_id, detector, predicted_tier, confidence, outcome, validated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.OpportunityID, rec.Detector, rec.PredictedTier,
		rec.Confidence, rec.Outcome, rec.ValidatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert validation %s: %w", rec.ID, err)
	}
	return nil
}

// IncrementDaily adds TP/FP counts to one detector-day row.
func (s *AccuracyStore) IncrementDaily(ctx context.Context, detector domain.OpportunityType, day time.Time, tp, fp int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mev_detector_daily_metrics (detector, date, true_positives, false_positives)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (detector, date) DO UPDATE SET
			true_positives = mev_detector_daily_metrics.true_positives + EXCLUDED.true_positives,
			false_positives = mev_detector_daily_metrics.false_positives + EXCLUDED.false_positives`,
		detector, day.UTC().Truncate(24*time.Hour), tp, fp,
	)
	if err != nil {
		return fmt.Errorf("postgres: increment daily metric %s: %w", detector, err)
	}
	return nil
}

// ListDaily returns detector-day metrics in ascending date order.
func (s *AccuracyStore) ListDaily(ctx context.Context, detector domain.OpportunityType, tr domain.TimeRange) ([]domain.DetectorDailyMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT detector, date, true_positives, false_positives
		FROM mev_detector_daily_metrics
		WHERE detector = $1
			AND ($2::date IS NULL OR date >= $2)
			AND ($3::date IS NULL OR date <= $3)
		ORDER BY date`,
		detector, nullableTime(tr.Start), nullableTime(tr.End))
	if err != nil {
		return nil, fmt.Errorf("postgres: list daily metrics %s: %w", detector, err)
	}
	defer rows.Close()

	var metrics []domain.DetectorDailyMetric
	for rows.Next() {
		var m domain.DetectorDailyMetric
		if err := rows.Scan(&m.Detector, &m.Date, &m.TruePositives, &m.FalsePositives); err != nil {
			return nil, fmt.Errorf("postgres: scan daily metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// Compile-time interface check.
var _ domain.AccuracyStore = (*AccuracyStore)(nil)
