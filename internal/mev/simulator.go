package mev

// PriceImpact estimates the fractional price move caused by pushing
// volumeUSD through a pool of the given depth, using the constant-product
// approximation v/(l+v). A zero or unknown liquidity is treated as fully
// impacted.
func PriceImpact(volumeUSD, liquidityUSD float64) float64 {
	if volumeUSD <= 0 {
		return 0
	}
	if liquidityUSD <= 0 {
		return 1
	}
	return volumeUSD / (liquidityUSD + volumeUSD)
}

// SimulationResult bounds the outcome of executing a candidate extraction.
// WorstUSD <= ExpectedUSD <= BestUSD always holds.
type SimulationResult struct {
	WorstUSD       float64
	ExpectedUSD    float64
	BestUSD        float64
	PriceImpactPct float64
	Viable         bool
}

// Simulator estimates execution outcomes for candidate MEV plays without
// touching a chain. All inputs are USD-denominated.
type Simulator struct{}

// NewSimulator returns a Simulator.
func NewSimulator() *Simulator { return &Simulator{} }

func (s *Simulator) bound(grossUSD, costsUSD, impact float64) SimulationResult {
	b := ProfitBreakdown{GrossUSD: grossUSD, GasUSD: costsUSD}
	sc := Scenarios(b)
	return SimulationResult{
		WorstUSD:       sc.ConservativeUSD,
		ExpectedUSD:    sc.ExpectedUSD,
		BestUSD:        sc.OptimisticUSD,
		PriceImpactPct: impact * 100,
		Viable:         sc.ExpectedUSD > 0,
	}
}

// SimulateSandwich models a frontrun leg that moves the pool against the
// victim and a backrun leg that unwinds into the displaced price. Gross is
// the victim's volume captured through the attacker's induced impact.
func (s *Simulator) SimulateSandwich(frontVolumeUSD, victimVolumeUSD, poolLiquidityUSD, gasUSD float64) SimulationResult {
	impact := PriceImpact(frontVolumeUSD, poolLiquidityUSD)
	gross := victimVolumeUSD * impact
	return s.bound(gross, gasUSD, impact)
}

// SimulateArbitrage models buying on the cheap pool and selling on the dear
// one. spreadPct is the relative price gap in percent; feePct the combined
// swap fee in percent.
func (s *Simulator) SimulateArbitrage(spreadPct, volumeUSD, poolLiquidityUSD, gasUSD, feePct float64) SimulationResult {
	impact := PriceImpact(volumeUSD, poolLiquidityUSD)
	gross := volumeUSD * (spreadPct / 100)
	fees := volumeUSD * (feePct / 100)
	// Impact on both legs eats into the captured spread.
	gross -= volumeUSD * impact
	if gross < 0 {
		gross = 0
	}
	return s.bound(gross, gasUSD+fees, impact)
}

// SimulateLiquidation models seizing discounted collateral. bonusPct is the
// protocol's liquidation bonus in percent of the seized amount.
func (s *Simulator) SimulateLiquidation(collateralUSD, bonusPct, gasUSD float64) SimulationResult {
	gross := collateralUSD * (bonusPct / 100)
	return s.bound(gross, gasUSD, 0)
}
