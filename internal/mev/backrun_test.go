package mev

import (
	"context"
	"testing"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

func backrunBatch() Batch {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return Batch{
		ChainID:         "ethereum",
		FromBlock:       100,
		ToBlock:         100,
		BaselineGasGwei: 40,
		Swaps: []domain.Swap{
			{
				TxHash: "0x10", BlockNumber: 100, TxIndex: 3, Timestamp: ts,
				Sender: "0x00000000000000000000000000000000000000d4",
				PoolAddress: "0xpool",
				TokenIn:     "0xweth", TokenOut: "0xusdc",
				AmountInUSD: 50_000, GasPriceGwei: 80, GasCostUSD: 12,
				PoolLiquidityUSD: 500_000,
			},
			{
				TxHash: "0x11", BlockNumber: 100, TxIndex: 4, Timestamp: ts,
				Sender: "0x00000000000000000000000000000000000000e5",
				PoolAddress: "0xpool",
				TokenIn:     "0xusdc", TokenOut: "0xweth",
				AmountInUSD: 30_000, GasPriceGwei: 70, GasCostUSD: 25,
				PoolLiquidityUSD: 500_000,
			},
		},
	}
}

func TestBackrunDetect(t *testing.T) {
	d := NewBackrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), backrunBatch())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 backrun, got %d", len(opps))
	}

	opp := opps[0]
	if opp.OpportunityType != domain.OpportunityBackrun {
		t.Errorf("wrong type: %s", opp.OpportunityType)
	}
	// Target displacement: 50k into a 550k effective pool, captured on the
	// follower's 30k: gross ~2727, net ~2702.
	if opp.NetProfitUSD < 2_600 || opp.NetProfitUSD > 2_800 {
		t.Errorf("net = %v, want ~2702", opp.NetProfitUSD)
	}
	// Backruns have no victim.
	if opp.VictimAddress != "" || opp.VictimLossUSD != 0 {
		t.Errorf("backrun should carry no victim, got %s / %v", opp.VictimAddress, opp.VictimLossUSD)
	}
	if opp.TargetTxHash != domain.NormalizeHash("0x10") {
		t.Errorf("target tx = %s", opp.TargetTxHash)
	}
}

func TestBackrunRequiresLowerGas(t *testing.T) {
	batch := backrunBatch()
	// A follower outbidding the target is a frontrun shape, not a backrun.
	batch.Swaps[1].GasPriceGwei = 90

	d := NewBackrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection, got %d", len(opps))
	}
}

func TestBackrunIndexGap(t *testing.T) {
	batch := backrunBatch()
	// Same block but 5 slots behind the target is no longer adjacent.
	batch.Swaps[1].TxIndex = 8

	d := NewBackrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection beyond index gap, got %d", len(opps))
	}
}

func TestBackrunNextBlock(t *testing.T) {
	batch := backrunBatch()
	// One block later still counts; two does not.
	batch.Swaps[1].BlockNumber = 101
	d := NewBackrunDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 1 {
		t.Errorf("expected next-block backrun, got %d", len(opps))
	}

	batch.Swaps[1].BlockNumber = 102
	opps, err = d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection two blocks out, got %d", len(opps))
	}
}
