package mev

import (
	"context"
	"testing"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

func frontrunBatch() Batch {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return Batch{
		ChainID:         "ethereum",
		FromBlock:       101,
		ToBlock:         101,
		BaselineGasGwei: 20, // low congestion: 1.10x premium, 2 block window
		Swaps: []domain.Swap{
			{
				TxHash: "0x0a", BlockNumber: 101, TxIndex: 1, Timestamp: ts,
				Sender: "0x00000000000000000000000000000000000000a1",
				PoolAddress: "0xpool", ProtocolID: "uniswap-v3",
				TokenIn: "0xweth", TokenOut: "0xusdc",
				AmountInUSD: 100_000, GasPriceGwei: 60, GasCostUSD: 30,
				PoolLiquidityUSD: 1_000_000,
			},
			{
				TxHash: "0x0b", BlockNumber: 101, TxIndex: 5, Timestamp: ts,
				Sender: "0x00000000000000000000000000000000000000b2",
				PoolAddress: "0xpool",
				TokenIn:     "0xweth", TokenOut: "0xusdc",
				AmountInUSD: 50_000, GasPriceGwei: 50, GasCostUSD: 10,
				PoolLiquidityUSD: 1_000_000,
			},
		},
	}
}

func TestFrontrunDetect(t *testing.T) {
	d := NewFrontrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), frontrunBatch())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 frontrun, got %d", len(opps))
	}

	opp := opps[0]
	if opp.OpportunityType != domain.OpportunityFrontrun {
		t.Errorf("wrong type: %s", opp.OpportunityType)
	}
	if opp.TargetTxHash != domain.NormalizeHash("0x0b") {
		t.Errorf("target tx = %s", opp.TargetTxHash)
	}
	// Attacker profits from the displacement its own 100k swap induces:
	// impact = 100k/1.1M, gross ~9090.9, net ~9060.9.
	if opp.NetProfitUSD < 9_000 || opp.NetProfitUSD > 9_100 {
		t.Errorf("net = %v, want ~9061", opp.NetProfitUSD)
	}
	if opp.ProfitTier != domain.TierMedium {
		t.Errorf("tier = %s, want medium", opp.ProfitTier)
	}
	// Victim pays the same induced impact on its own volume.
	if opp.VictimLossUSD < 4_500 || opp.VictimLossUSD > 4_600 {
		t.Errorf("victim loss = %v, want ~4545", opp.VictimLossUSD)
	}
}

func TestFrontrunRequiresGasPremium(t *testing.T) {
	batch := frontrunBatch()
	// 55 gwei is under the 1.2x premium floor (60 gwei).
	batch.Swaps[0].GasPriceGwei = 55

	d := NewFrontrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection without gas premium, got %d", len(opps))
	}
}

func TestFrontrunPremiumFloorIgnoresLowCongestion(t *testing.T) {
	batch := frontrunBatch()
	// 58 gwei clears the low-congestion 1.10x multiplier (55) but not the
	// 1.2x floor (60). Calm networks do not make weaker premiums suspicious.
	batch.Swaps[0].GasPriceGwei = 58

	d := NewFrontrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection below the premium floor, got %d", len(opps))
	}
}

func TestFrontrunSkipsSmallVictims(t *testing.T) {
	batch := frontrunBatch()
	batch.Swaps[1].AmountInUSD = 500 // below the 10k high-value floor

	d := NewFrontrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection for small victim, got %d", len(opps))
	}

	// The 10k floor holds even on chains with a lower significance bar.
	batch = frontrunBatch()
	batch.ChainID = "base"
	batch.Swaps[1].AmountInUSD = 5_000
	opps, err = d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection under the global value floor, got %d", len(opps))
	}
}

func TestFrontrunRequiresPriceImpact(t *testing.T) {
	batch := frontrunBatch()
	// 100k into a 20M pool moves the price ~0.5%, under the 1% floor.
	batch.Swaps[0].PoolLiquidityUSD = 20_000_000
	batch.Swaps[1].PoolLiquidityUSD = 20_000_000

	d := NewFrontrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection below the impact floor, got %d", len(opps))
	}
}

func TestFrontrunLeadCap(t *testing.T) {
	batch := frontrunBatch()
	// One block ahead but 40 seconds early: too far out to have reacted to
	// the victim's pending swap.
	batch.Swaps[0].BlockNumber = 100
	batch.Swaps[0].Timestamp = batch.Swaps[1].Timestamp.Add(-40 * time.Second)

	d := NewFrontrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection beyond the lead cap, got %d", len(opps))
	}
}

func TestFrontrunWindowWidensWithCongestion(t *testing.T) {
	batch := frontrunBatch()
	// Attacker three blocks ahead of the victim.
	batch.Swaps[0].BlockNumber = 98
	batch.Swaps[1].BlockNumber = 101

	// Low congestion (2 block window): out of range.
	d := NewFrontrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection outside low congestion window, got %d", len(opps))
	}

	// High congestion (5 block window) admits it, but the premium bar rises
	// to 1.50x; pay it.
	batch.BaselineGasGwei = 150
	batch.Swaps[0].GasPriceGwei = 80
	opps, err = d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 1 {
		t.Errorf("expected detection inside high congestion window, got %d", len(opps))
	}
}
