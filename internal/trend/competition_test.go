package trend

import (
	"math"
	"testing"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

func TestHHI(t *testing.T) {
	// 50^2 + 30^2 + 20^2 = 3800.
	if got := HHI([]float64{50, 30, 20}); got != 3800 {
		t.Errorf("HHI = %v, want 3800", got)
	}
	// Monopoly.
	if got := HHI([]float64{100}); got != 10000 {
		t.Errorf("monopoly HHI = %v, want 10000", got)
	}
	// Perfectly fragmented: 100 bots at 1% each.
	shares := make([]float64, 100)
	for i := range shares {
		shares[i] = 1
	}
	if got := HHI(shares); got != 100 {
		t.Errorf("fragmented HHI = %v, want 100", got)
	}
	if got := HHI(nil); got != 0 {
		t.Errorf("empty HHI = %v, want 0", got)
	}
}

func TestConcentrationFor(t *testing.T) {
	cases := []struct {
		hhi  float64
		want domain.ConcentrationLevel
	}{
		{100, domain.ConcentrationLow},
		{1499, domain.ConcentrationLow},
		{1500, domain.ConcentrationModerate},
		{2499, domain.ConcentrationModerate},
		{2500, domain.ConcentrationHigh},
		{4999, domain.ConcentrationHigh},
		{5000, domain.ConcentrationVeryHigh},
		{10000, domain.ConcentrationVeryHigh},
	}
	for _, c := range cases {
		if got := ConcentrationFor(c.hhi); got != c.want {
			t.Errorf("ConcentrationFor(%v) = %s, want %s", c.hhi, got, c.want)
		}
	}
}

func TestIntensityFor(t *testing.T) {
	cases := []struct {
		bots int
		hhi  float64
		want domain.CompetitionIntensity
	}{
		{120, 1000, domain.IntensityExtreme},
		{60, 2000, domain.IntensityHigh},
		{25, 3000, domain.IntensityMedium},
		{5, 100, domain.IntensityLow},
		// Many bots but a concentrated market is not extreme.
		{120, 3000, domain.IntensityMedium},
		{120, 6000, domain.IntensityLow},
	}
	for _, c := range cases {
		if got := IntensityFor(c.bots, c.hhi); got != c.want {
			t.Errorf("IntensityFor(%d, %v) = %s, want %s", c.bots, c.hhi, got, c.want)
		}
	}
}

func TestCompete(t *testing.T) {
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	shares := []domain.BotShare{
		{BotAddress: "0xbot1", VolumeUSD: 50_000, SharePct: 50},
		{BotAddress: "0xbot2", VolumeUSD: 30_000, SharePct: 30},
		{BotAddress: "0xbot3", VolumeUSD: 20_000, SharePct: 20},
	}

	comp := Compete("ethereum", day, shares)
	if comp.UniqueBots != 3 {
		t.Errorf("unique bots = %d, want 3", comp.UniqueBots)
	}
	if comp.HHI != 3800 {
		t.Errorf("HHI = %v, want 3800", comp.HHI)
	}
	if comp.Concentration != domain.ConcentrationHigh {
		t.Errorf("concentration = %s, want high", comp.Concentration)
	}
	if comp.Intensity != domain.IntensityLow {
		t.Errorf("intensity = %s, want low with 3 bots", comp.Intensity)
	}
	if math.Abs(comp.Top10SharePct-100) > 1e-9 {
		t.Errorf("top10 share = %v, want 100", comp.Top10SharePct)
	}
}

func TestCompeteTop10Cutoff(t *testing.T) {
	shares := make([]domain.BotShare, 15)
	for i := range shares {
		shares[i] = domain.BotShare{SharePct: 100.0 / 15}
	}
	comp := Compete("ethereum", time.Now(), shares)
	want := 10 * 100.0 / 15
	if math.Abs(comp.Top10SharePct-want) > 1e-9 {
		t.Errorf("top10 share = %v, want %v", comp.Top10SharePct, want)
	}
}
