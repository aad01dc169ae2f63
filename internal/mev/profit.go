package mev

// ProfitBreakdown itemizes the economics of one extraction.
type ProfitBreakdown struct {
	GrossUSD        float64
	GasUSD          float64
	ProtocolFeesUSD float64
	SlippageUSD     float64
	OtherUSD        float64
}

// Costs returns the sum of all cost components.
func (b ProfitBreakdown) Costs() float64 {
	return b.GasUSD + b.ProtocolFeesUSD + b.SlippageUSD + b.OtherUSD
}

// Net returns gross minus all costs. May be negative.
func (b ProfitBreakdown) Net() float64 {
	return b.GrossUSD - b.Costs()
}

// ROIPct returns net profit over total costs as a percentage. Zero when
// there are no costs.
func (b ProfitBreakdown) ROIPct() float64 {
	costs := b.Costs()
	if costs == 0 {
		return 0
	}
	return b.Net() / costs * 100
}

// MarginPct returns net over gross as a percentage. Zero when gross is zero.
func (b ProfitBreakdown) MarginPct() float64 {
	if b.GrossUSD == 0 {
		return 0
	}
	return b.Net() / b.GrossUSD * 100
}

// ProfitScenarios bound the realized outcome of an extraction.
type ProfitScenarios struct {
	ConservativeUSD float64
	ExpectedUSD     float64
	OptimisticUSD   float64
}

// Scenarios derives conservative/expected/optimistic nets by haircutting or
// flattering gross and costs. With non-negative gross and costs the ordering
// conservative <= expected <= optimistic holds by construction.
func Scenarios(b ProfitBreakdown) ProfitScenarios {
	costs := b.Costs()
	return ProfitScenarios{
		ConservativeUSD: b.GrossUSD*0.8 - costs*1.2,
		ExpectedUSD:     b.GrossUSD - costs,
		OptimisticUSD:   b.GrossUSD*1.1 - costs*0.95,
	}
}
