package risk

import "github.com/northfox/foxbox/market"

// Sizing is the raw position-size derivation before budget checks.
type Sizing struct {
	Lots       float64
	StopPips   float64
	RiskAmount float64 // re-derived from the clamped size
}

// Size finds the largest lot count whose loss at the stop stays inside
// riskBudget, snapped to the symbol's volume step and bounds. The returned
// RiskAmount reflects the clamped size, since rounding changes exposure.
func Size(info market.SymbolInfo, entry, stop, pipValuePerLot, riskBudget float64) Sizing {
	s := Sizing{StopPips: info.PipsBetween(entry, stop)}
	if s.StopPips <= 0 || pipValuePerLot <= 0 || riskBudget <= 0 {
		return s
	}

	raw := riskBudget / (pipValuePerLot * s.StopPips)
	s.Lots = info.ClampVolume(raw)
	s.RiskAmount = s.Lots * pipValuePerLot * s.StopPips
	return s
}
