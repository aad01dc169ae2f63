package mev

import (
	"context"
	"testing"
	"time"

	"github.com/mevlens/mevlens/internal/domain"
)

// evidenceConfig scores with weighted binary evidence so detector tests are
// deterministic.
func evidenceConfig() *Config {
	cfg := DefaultConfig()
	cfg.EnhancedScoring = false
	return cfg
}

func sandwichBatch() Batch {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return Batch{
		ChainID:         "ethereum",
		FromBlock:       100,
		ToBlock:         100,
		BaselineGasGwei: 25,
		Swaps: []domain.Swap{
			{
				TxHash: "0x01", BlockNumber: 100, TxIndex: 0, Timestamp: ts,
				Sender: "0x00000000000000000000000000000000000000a1",
				PoolAddress: "0xpool", ProtocolID: "uniswap-v3", ProtocolName: "Uniswap V3", DEXName: "uniswap",
				TokenIn: "0xweth", TokenOut: "0xusdc", TokenInSymbol: "WETH", TokenOutSymbol: "USDC",
				AmountInUSD: 10_000, AmountOutUSD: 9_970,
				GasPriceGwei: 100, GasCostUSD: 20, PoolLiquidityUSD: 1_000_000,
			},
			{
				TxHash: "0x02", BlockNumber: 100, TxIndex: 1, Timestamp: ts,
				Sender: "0x00000000000000000000000000000000000000b2",
				PoolAddress: "0xpool",
				TokenIn:     "0xweth", TokenOut: "0xusdc",
				AmountInUSD: 50_000, AmountOutUSD: 49_000,
				GasPriceGwei: 50, GasCostUSD: 10, PoolLiquidityUSD: 1_000_000,
			},
			{
				TxHash: "0x03", BlockNumber: 100, TxIndex: 2, Timestamp: ts,
				Sender: "0x00000000000000000000000000000000000000a1",
				PoolAddress: "0xpool",
				TokenIn:     "0xusdc", TokenOut: "0xweth",
				AmountInUSD: 21_900, AmountOutUSD: 22_000,
				GasPriceGwei: 60, GasCostUSD: 15, PoolLiquidityUSD: 1_000_000,
			},
		},
	}
}

func TestSandwichDetect(t *testing.T) {
	d := NewSandwichDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), sandwichBatch())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 sandwich, got %d", len(opps))
	}

	opp := opps[0]
	if opp.OpportunityType != domain.OpportunitySandwich {
		t.Errorf("wrong type: %s", opp.OpportunityType)
	}
	// Gross = backrun out (22000) - frontrun in (10000), gas = 20 + 15.
	if !almostEqual(opp.GrossProfitUSD, 12_000) {
		t.Errorf("gross = %v, want 12000", opp.GrossProfitUSD)
	}
	if !almostEqual(opp.NetProfitUSD, 11_965) {
		t.Errorf("net = %v, want 11965", opp.NetProfitUSD)
	}
	if opp.ProfitTier != domain.TierLarge {
		t.Errorf("tier = %s, want large", opp.ProfitTier)
	}
	if opp.ConfidenceScore != 100 {
		t.Errorf("confidence = %v, want 100 with all evidence present", opp.ConfidenceScore)
	}
	if opp.BotAddress != domain.NormalizeAddress("0x00000000000000000000000000000000000000a1") {
		t.Errorf("bot address = %s", opp.BotAddress)
	}
	if opp.VictimAddress != domain.NormalizeAddress("0x00000000000000000000000000000000000000b2") {
		t.Errorf("victim address = %s", opp.VictimAddress)
	}
	if opp.TargetTxHash != domain.NormalizeHash("0x02") {
		t.Errorf("target tx = %s", opp.TargetTxHash)
	}
	if len(opp.MEVTxHashes) != 2 {
		t.Errorf("expected 2 mev tx hashes, got %v", opp.MEVTxHashes)
	}
}

func TestSandwichRequiresSameAttacker(t *testing.T) {
	batch := sandwichBatch()
	// Backrun from a different sender breaks the pattern.
	batch.Swaps[2].Sender = "0x00000000000000000000000000000000000000c3"

	d := NewSandwichDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection, got %d", len(opps))
	}
}

func TestSandwichRequiresGasPriority(t *testing.T) {
	batch := sandwichBatch()
	// Frontrun priced below the victim cannot have ordered ahead of it.
	batch.Swaps[0].GasPriceGwei = 40

	d := NewSandwichDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection, got %d", len(opps))
	}
}

func TestSandwichRequiresBackrunGasPriority(t *testing.T) {
	batch := sandwichBatch()
	// A backrun priced below the victim was not bundled with the frontrun.
	batch.Swaps[2].GasPriceGwei = 40

	d := NewSandwichDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection for low-gas backrun, got %d", len(opps))
	}
}

func TestSandwichRejectsSharedWallet(t *testing.T) {
	batch := sandwichBatch()
	// All three swaps from one wallet is position management, not an attack.
	batch.Swaps[1].Sender = batch.Swaps[0].Sender

	d := NewSandwichDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection when victim shares the attacker wallet, got %d", len(opps))
	}
}

func TestSandwichSpanCap(t *testing.T) {
	batch := sandwichBatch()
	// Unwind two minutes later is a late exit, not a bundled backrun.
	batch.Swaps[2].BlockNumber = 110
	batch.Swaps[2].Timestamp = batch.Swaps[0].Timestamp.Add(2 * time.Minute)

	d := NewSandwichDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection beyond the span cap, got %d", len(opps))
	}
}

func TestSandwichBelowProfitFloor(t *testing.T) {
	batch := sandwichBatch()
	// Shrink the backrun so net lands under the 100 USD floor.
	batch.Swaps[2].AmountOutUSD = 10_100

	d := NewSandwichDetector(evidenceConfig(), nil)
	opps, err := d.Detect(context.Background(), batch)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no detection below profit floor, got %d", len(opps))
	}
}
