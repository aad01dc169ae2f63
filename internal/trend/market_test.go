package trend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

type fakeTrendStore struct {
	aggregated domain.MarketTrend
	aggErr     error
	upserted   []domain.MarketTrend
	upsertErr  error
	listed     []domain.MarketTrend
}

func (s *fakeTrendStore) AggregateDaily(_ context.Context, chainID string, day time.Time) (domain.MarketTrend, error) {
	if s.aggErr != nil {
		return domain.MarketTrend{}, s.aggErr
	}
	out := s.aggregated
	out.ChainID = chainID
	out.Date = day
	return out, nil
}

func (s *fakeTrendStore) UpsertDaily(_ context.Context, trend domain.MarketTrend) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, trend)
	return nil
}

func (s *fakeTrendStore) ListRange(context.Context, string, domain.TimeRange) ([]domain.MarketTrend, error) {
	return s.listed, nil
}

type fakeTrendCache struct {
	sets   []domain.MarketTrend
	setErr error
}

func (c *fakeTrendCache) Set(_ context.Context, trend domain.MarketTrend) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.sets = append(c.sets, trend)
	return nil
}

func (c *fakeTrendCache) Get(context.Context, string, time.Time) (domain.MarketTrend, error) {
	return domain.MarketTrend{}, domain.ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComputeDaily(t *testing.T) {
	store := &fakeTrendStore{
		aggregated: domain.MarketTrend{TotalOpportunities: 42, TotalProfitUSD: 12_345},
	}
	cache := &fakeTrendCache{}
	calc := NewMarketCalculator(store, nil, cache, testLogger())

	// Mid-day input is truncated to the UTC day boundary.
	day := time.Date(2026, 8, 15, 17, 30, 0, 0, time.UTC)
	trend, err := calc.ComputeDaily(context.Background(), "ethereum", day)
	if err != nil {
		t.Fatalf("ComputeDaily: %v", err)
	}

	wantDay := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	if !trend.Date.Equal(wantDay) {
		t.Errorf("date = %v, want %v", trend.Date, wantDay)
	}
	if trend.TotalOpportunities != 42 {
		t.Errorf("opportunities = %d, want 42", trend.TotalOpportunities)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserted))
	}
	if len(cache.sets) != 1 {
		t.Errorf("expected cache warm, got %d sets", len(cache.sets))
	}
}

func TestComputeDailyCacheFailureIsNonFatal(t *testing.T) {
	store := &fakeTrendStore{}
	cache := &fakeTrendCache{setErr: errors.New("redis down")}
	calc := NewMarketCalculator(store, nil, cache, testLogger())

	if _, err := calc.ComputeDaily(context.Background(), "ethereum", time.Now()); err != nil {
		t.Errorf("cache failure should not fail the computation: %v", err)
	}
}

func TestComputeDailyNilCache(t *testing.T) {
	store := &fakeTrendStore{}
	calc := NewMarketCalculator(store, nil, nil, testLogger())
	if _, err := calc.ComputeDaily(context.Background(), "ethereum", time.Now()); err != nil {
		t.Errorf("nil cache should be valid: %v", err)
	}
}

func TestComputeDailyStoreError(t *testing.T) {
	store := &fakeTrendStore{aggErr: errors.New("connection refused")}
	calc := NewMarketCalculator(store, nil, nil, testLogger())
	if _, err := calc.ComputeDaily(context.Background(), "ethereum", time.Now()); err == nil {
		t.Error("expected aggregate error to propagate")
	}
}

type fakeCompetition struct {
	comp domain.BotCompetition
	err  error
}

func (f *fakeCompetition) Analyze(context.Context, string, time.Time) (domain.BotCompetition, error) {
	return f.comp, f.err
}

func TestComputeDailyFoldsMarketStructure(t *testing.T) {
	store := &fakeTrendStore{
		aggregated: domain.MarketTrend{
			TotalOpportunities: 10,
			SandwichCount:      6,
			ArbitrageCount:     3,
			LiquidationCount:   1,
		},
	}
	competition := &fakeCompetition{comp: domain.BotCompetition{
		HHI:           5200,
		Concentration: domain.ConcentrationVeryHigh,
		Top10SharePct: 100,
		Intensity:     domain.IntensityLow,
	}}
	calc := NewMarketCalculator(store, competition, nil, testLogger())

	trend, err := calc.ComputeDaily(context.Background(), "ethereum", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ComputeDaily: %v", err)
	}

	if trend.HHI != 5200 || trend.Concentration != domain.ConcentrationVeryHigh {
		t.Errorf("HHI/concentration = %v/%s", trend.HHI, trend.Concentration)
	}
	if trend.Top10SharePct != 100 || trend.Intensity != domain.IntensityLow {
		t.Errorf("top10/intensity = %v/%s", trend.Top10SharePct, trend.Intensity)
	}
	if trend.DominantType != domain.OpportunitySandwich {
		t.Errorf("dominant type = %s, want sandwich", trend.DominantType)
	}
	if trend.DominantSharePct != 60 {
		t.Errorf("dominant share = %v, want 60", trend.DominantSharePct)
	}

	// The enriched row is what gets persisted.
	if len(store.upserted) != 1 || store.upserted[0].HHI != 5200 {
		t.Errorf("upserted rows = %+v", store.upserted)
	}
}

func TestComputeDailyCompetitionErrorFailsRollup(t *testing.T) {
	store := &fakeTrendStore{}
	competition := &fakeCompetition{err: errors.New("connection refused")}
	calc := NewMarketCalculator(store, competition, nil, testLogger())

	if _, err := calc.ComputeDaily(context.Background(), "ethereum", time.Now()); err == nil {
		t.Error("expected competition error to fail the rollup")
	}
	if len(store.upserted) != 0 {
		t.Errorf("no row should be upserted on failure, got %d", len(store.upserted))
	}
}

type fakeAttrShares struct {
	shares []domain.BotShare
}

func (f *fakeAttrShares) BotShares(context.Context, string, time.Time) ([]domain.BotShare, error) {
	return f.shares, nil
}

func (f *fakeAttrShares) Insert(context.Context, domain.Attribution) (string, error) {
	return "", nil
}
func (f *fakeAttrShares) GetByOpportunity(context.Context, string) (domain.Attribution, error) {
	return domain.Attribution{}, domain.ErrNotFound
}
func (f *fakeAttrShares) ListByBot(context.Context, string, string, domain.ListOpts) ([]domain.Attribution, error) {
	return nil, nil
}
func (f *fakeAttrShares) ListBefore(context.Context, time.Time, int) ([]domain.Attribution, error) {
	return nil, nil
}
func (f *fakeAttrShares) RollupByBot(context.Context, string, domain.TimeRange, int) ([]domain.RollupRow, error) {
	return nil, nil
}
func (f *fakeAttrShares) RollupByStrategy(context.Context, string, domain.TimeRange) ([]domain.RollupRow, error) {
	return nil, nil
}
func (f *fakeAttrShares) RollupByProtocol(context.Context, string, domain.TimeRange, int) ([]domain.RollupRow, error) {
	return nil, nil
}

func TestCompetitionAnalyzer(t *testing.T) {
	store := &fakeAttrShares{
		shares: []domain.BotShare{
			{BotAddress: "0xbot1", SharePct: 60},
			{BotAddress: "0xbot2", SharePct: 40},
		},
	}
	analyzer := NewCompetitionAnalyzer(store)

	comp, err := analyzer.Analyze(context.Background(), "ethereum", time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if comp.UniqueBots != 2 {
		t.Errorf("unique bots = %d, want 2", comp.UniqueBots)
	}
	// 60^2 + 40^2 = 5200, a very concentrated duopoly.
	if comp.HHI != 5200 {
		t.Errorf("HHI = %v, want 5200", comp.HHI)
	}
	if comp.Concentration != domain.ConcentrationVeryHigh {
		t.Errorf("concentration = %s, want very_high", comp.Concentration)
	}
}
