package trace

// TraceSummary aggregates statistics from an ExchangeTrace.
type TraceSummary struct {
	TotalExchanges int
	AdvancedCount  int
	ExchangeOnly   int
	FinalClock     float64
	MaxUnresolved  int
	OutputExtremes map[string][2]float64 // output name → {min, max}
}

// Summarize computes aggregate statistics from an ExchangeTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(et *ExchangeTrace) *TraceSummary {
	summary := &TraceSummary{
		OutputExtremes: make(map[string][2]float64),
	}
	if et == nil {
		return summary
	}

	summary.TotalExchanges = len(et.Exchanges)
	for _, r := range et.Exchanges {
		if r.Advanced {
			summary.AdvancedCount++
		} else {
			summary.ExchangeOnly++
		}
		if r.Clock > summary.FinalClock {
			summary.FinalClock = r.Clock
		}
		if r.Unresolved > summary.MaxUnresolved {
			summary.MaxUnresolved = r.Unresolved
		}
		for name, v := range r.Outputs {
			ext, seen := summary.OutputExtremes[name]
			if !seen {
				summary.OutputExtremes[name] = [2]float64{v, v}
				continue
			}
			if v < ext[0] {
				ext[0] = v
			}
			if v > ext[1] {
				ext[1] = v
			}
			summary.OutputExtremes[name] = ext
		}
	}

	return summary
}
