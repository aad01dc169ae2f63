package bots

import (
	"strings"
	"testing"

	"github.com/mevlens/mevlens/internal/domain"
)

func TestIdentifyKnownBot(t *testing.T) {
	id := NewIdentifier()

	identity := id.Identify("0x6b75d8AF000000e20B7a7DDf000Ba900b4009A80", nil)
	if identity.Name != "Sandwich Master" {
		t.Errorf("name = %s, want Sandwich Master", identity.Name)
	}
	if !identity.Verified {
		t.Error("known bot should be verified")
	}
	if identity.Confidence != 95 {
		t.Errorf("confidence = %v, want 95", identity.Confidence)
	}

	// Lookup is case-insensitive on the hex address.
	lower := strings.ToLower("0x6b75d8AF000000e20B7a7DDf000Ba900b4009A80")
	if !id.IsKnown(lower) {
		t.Error("lowercase address should match the registry")
	}
}

func TestIdentifyMultiStrategyHeuristic(t *testing.T) {
	id := NewIdentifier()
	addr := "0x00000000000000000000000000000000000000f9"

	history := map[domain.OpportunityType]int{
		domain.OpportunitySandwich:  6,
		domain.OpportunityArbitrage: 5,
		domain.OpportunityFrontrun:  2, // under the 5-occurrence floor
	}
	identity := id.Identify(addr, history)
	if !identity.MultiStrategy {
		t.Error("two patterns at five plus occurrences should flag multi-strategy")
	}
	if len(identity.Strategies) != 2 {
		t.Errorf("strategies = %v, want 2", identity.Strategies)
	}
	if identity.Confidence != 70 {
		t.Errorf("confidence = %v, want heuristic 70", identity.Confidence)
	}
	if identity.Verified {
		t.Error("heuristic match should not be verified")
	}
}

func TestIdentifyUnknownAddress(t *testing.T) {
	id := NewIdentifier()
	identity := id.Identify("0x00000000000000000000000000000000000000f9", nil)
	if identity.MultiStrategy || identity.Verified || identity.Name != "" {
		t.Errorf("unknown address got %+v", identity)
	}
	if identity.Address != domain.NormalizeAddress("0x00000000000000000000000000000000000000f9") {
		t.Errorf("address not normalized: %s", identity.Address)
	}
}

func TestIdentifySingleStrategyNotMulti(t *testing.T) {
	id := NewIdentifier()
	history := map[domain.OpportunityType]int{domain.OpportunitySandwich: 50}
	identity := id.Identify("0x00000000000000000000000000000000000000f9", history)
	if identity.MultiStrategy {
		t.Error("one pattern should not flag multi-strategy")
	}
	if len(identity.Strategies) != 1 {
		t.Errorf("strategies = %v, want the single observed pattern", identity.Strategies)
	}
}
