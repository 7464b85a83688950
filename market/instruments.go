// market/instruments.go
package market

import "math"

// SymbolInfo describes a broker instrument contract. All fields come from the
// terminal's symbol specification, never hardcoded at call sites.
type SymbolInfo struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string
	ContractSize  float64
	Point         float64
	Digits        int
	TickValue     float64 // account-currency profit per point move, 1 lot
	VolumeMin     float64
	VolumeMax     float64
	VolumeStep    float64
}

// PipSize is point*10 for 3/5-digit pricing, otherwise the raw point.
func (s SymbolInfo) PipSize() float64 {
	if s.Digits == 3 || s.Digits == 5 {
		return s.Point * 10
	}
	return s.Point
}

// PipsBetween returns the distance between two prices in pips.
func (s SymbolInfo) PipsBetween(a, b float64) float64 {
	pip := s.PipSize()
	if pip == 0 {
		return 0
	}
	return math.Abs(a-b) / pip
}

// ClampVolume snaps lots to the symbol's volume step and bounds.
// Returns 0 when even VolumeMin would exceed the requested size.
func (s SymbolInfo) ClampVolume(lots float64) float64 {
	if s.VolumeStep > 0 {
		lots = math.Floor(lots/s.VolumeStep) * s.VolumeStep
	}
	if lots < s.VolumeMin {
		return 0
	}
	if s.VolumeMax > 0 && lots > s.VolumeMax {
		lots = s.VolumeMax
	}
	return lots
}

var Instruments = map[string]SymbolInfo{
	"EURUSD": {
		Name:          "EURUSD",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		ContractSize:  100000,
		Point:         0.00001,
		Digits:        5,
		TickValue:     1.0,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
	},
	"GBPUSD": {
		Name:          "GBPUSD",
		BaseCurrency:  "GBP",
		QuoteCurrency: "USD",
		ContractSize:  100000,
		Point:         0.00001,
		Digits:        5,
		TickValue:     1.0,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
	},
	"USDJPY": {
		Name:          "USDJPY",
		BaseCurrency:  "USD",
		QuoteCurrency: "JPY",
		ContractSize:  100000,
		Point:         0.001,
		Digits:        3,
		TickValue:     0.68,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
	},
	"GBPJPY": {
		Name:          "GBPJPY",
		BaseCurrency:  "GBP",
		QuoteCurrency: "JPY",
		ContractSize:  100000,
		Point:         0.001,
		Digits:        3,
		TickValue:     0.68,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
	},
	"USDCAD": {
		Name:          "USDCAD",
		BaseCurrency:  "USD",
		QuoteCurrency: "CAD",
		ContractSize:  100000,
		Point:         0.00001,
		Digits:        5,
		TickValue:     0.73,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
	},
}
