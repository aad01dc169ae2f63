package mev

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mevlens/mevlens/internal/domain"
)

// Batch is one chain's worth of indexed data for a block range, handed to
// every detector.
type Batch struct {
	ChainID   string
	FromBlock int64
	ToBlock   int64

	// Swaps ordered by (block_number, tx_index).
	Swaps        []domain.Swap
	PoolPrices   []domain.PoolPrice
	Positions    []domain.LendingPosition
	Liquidations []domain.LiquidationEvent

	// BaselineGasGwei is the prevailing gas price over the range.
	BaselineGasGwei float64
}

// Detector finds one MEV pattern in a batch. Implementations are pure: they
// read the batch and the shared config, and never touch stores.
type Detector interface {
	Name() domain.OpportunityType
	Detect(ctx context.Context, batch Batch) ([]domain.Opportunity, error)
}

// Registry manages the named set of detectors. Safe for concurrent use.
type Registry struct {
	detectors map[domain.OpportunityType]Detector
	mu        sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[domain.OpportunityType]Detector)}
}

// Register adds a detector. Re-registering a name replaces the previous one.
func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Name()] = d
}

// Get retrieves a detector by pattern name.
func (r *Registry) Get(name domain.OpportunityType) (Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("detector %q: not registered", name)
	}
	return d, nil
}

// List returns all registered detectors in stable name order.
func (r *Registry) List() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.detectors))
	for n := range r.detectors {
		names = append(names, string(n))
	}
	sort.Strings(names)
	out := make([]Detector, 0, len(names))
	for _, n := range names {
		out = append(out, r.detectors[domain.OpportunityType(n)])
	}
	return out
}

// DefaultRegistry wires all five pattern detectors against one config and
// scorer set.
func DefaultRegistry(cfg *Config) (*Registry, error) {
	scorer, err := NewEnhancedScorer(cfg.Weights)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	r.Register(NewSandwichDetector(cfg, scorer))
	r.Register(NewFrontrunDetector(cfg, scorer))
	r.Register(NewBackrunDetector(cfg, scorer))
	r.Register(NewArbitrageDetector(cfg, scorer))
	r.Register(NewLiquidationDetector(cfg, scorer))
	return r, nil
}

// groupByPool buckets swaps by pool across the whole range, preserving
// (block, index) order.
func groupByPool(swaps []domain.Swap) map[string][]domain.Swap {
	groups := make(map[string][]domain.Swap)
	for _, s := range swaps {
		groups[s.PoolAddress] = append(groups[s.PoolAddress], s)
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool {
			if g[i].BlockNumber != g[j].BlockNumber {
				return g[i].BlockNumber < g[j].BlockNumber
			}
			return g[i].TxIndex < g[j].TxIndex
		})
	}
	return groups
}

// confidence picks the configured scoring path: weighted binary evidence or
// the enhanced continuous factors. Scores are rounded to whole points; the
// persisted scale is an integer 0-100.
func confidence(cfg *Config, scorer *EnhancedScorer, evidence []Evidence, f Factors) float64 {
	if cfg.EnhancedScoring && scorer != nil {
		return math.Round(scorer.Score(f))
	}
	return math.Round(ScoreEvidence(evidence))
}
