package spc

import (
	"fmt"
	"math"
	"time"
)

// Quality status classification by Cpk.
const (
	StatusExcellent = "EXCELLENT" // Cpk >= 2.0
	StatusGood      = "GOOD"      // 1.33 <= Cpk < 2.0
	StatusMarginal  = "MARGINAL"  // 1.0 <= Cpk < 1.33
	StatusPoor      = "POOR"      // Cpk < 1.0
)

// Capability is the derived SPC analysis for one process over a window.
// Always computed fresh from the measurement series, never incrementally
// maintained.
//
// Pp/Ppk are reported alongside Cp/Cpk but use the same single-window sigma:
// no subgrouping is performed, so short-term and long-term variance collapse
// to one estimate. Known simplification carried over from the production
// system.
type Capability struct {
	Process         string    `json:"process_name"`
	Mean            float64   `json:"mean"`
	StdDev          float64   `json:"std_dev"`
	SampleSize      int       `json:"sample_size"`
	Cp              float64   `json:"cp"`
	Cpk             float64   `json:"cpk"`
	Pp              float64   `json:"pp"`
	Ppk             float64   `json:"ppk"`
	SigmaLevel      float64   `json:"sigma_level"`
	DPMO            float64   `json:"dpmo"`
	QualityStatus   string    `json:"quality_status"`
	MeetsSixSigma   bool      `json:"meets_six_sigma"`
	WindowHours     float64   `json:"window_hours"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
	Recommendations []string  `json:"recommendations"`
}

// SixSigmaPolicy sets the bar a process must clear.
type SixSigmaPolicy struct {
	SigmaTarget float64 `json:"sigma_target" yaml:"sigma_target"` // default 6.0
	CpkMinimum  float64 `json:"cpk_minimum" yaml:"cpk_minimum"`   // default 2.0
	DPMOMaximum float64 `json:"dpmo_maximum" yaml:"dpmo_maximum"` // default 3.4
}

func DefaultSixSigmaPolicy() SixSigmaPolicy {
	return SixSigmaPolicy{SigmaTarget: 6.0, CpkMinimum: 2.0, DPMOMaximum: 3.4}
}

// sigmaShift is the conventional 1.5 sigma long-term drift allowance.
const sigmaShift = 1.5

// computeCapability runs the standard SPC formulas over a sample. The
// caller guarantees n >= 2 and sigma > 0.
func computeCapability(process string, values []Measurement, pol SixSigmaPolicy, windowHours float64, now time.Time) Capability {
	n := len(values)
	latest := values[n-1]

	var sum float64
	for _, m := range values {
		sum += m.Value
	}
	mean := sum / float64(n)

	var ss float64
	for _, m := range values {
		d := m.Value - mean
		ss += d * d
	}
	sigma := math.Sqrt(ss / float64(n-1))

	c := Capability{
		Process:     process,
		Mean:        mean,
		StdDev:      sigma,
		SampleSize:  n,
		WindowHours: windowHours,
		AnalyzedAt:  now,
	}

	usl, lsl, target := latest.USL, latest.LSL, latest.Target

	c.Cp = (usl - lsl) / (6 * sigma)
	c.Cpk = math.Min(usl-mean, mean-lsl) / (3 * sigma)
	c.Pp = c.Cp
	c.Ppk = c.Cpk

	c.SigmaLevel = c.Cpk*3 + sigmaShift
	if c.SigmaLevel < 0 {
		c.SigmaLevel = 0
	}
	c.DPMO = dpmoForSigma(c.SigmaLevel)

	switch {
	case c.Cpk >= 2.0:
		c.QualityStatus = StatusExcellent
	case c.Cpk >= 1.33:
		c.QualityStatus = StatusGood
	case c.Cpk >= 1.0:
		c.QualityStatus = StatusMarginal
	default:
		c.QualityStatus = StatusPoor
	}

	c.MeetsSixSigma = c.SigmaLevel >= pol.SigmaTarget && c.Cpk >= pol.CpkMinimum
	c.Recommendations = recommendations(c, pol, target)
	return c
}

// dpmoForSigma maps a sigma level to defects per million opportunities using
// the one-sided normal tail after removing the 1.5 sigma shift, which
// reproduces the standard Six Sigma table (6.0 sigma -> 3.4 DPMO).
func dpmoForSigma(sigma float64) float64 {
	z := sigma - sigmaShift
	p := 0.5 * math.Erfc(z/math.Sqrt2)
	dpmo := p * 1e6
	if dpmo > 1e6 {
		return 1e6
	}
	if dpmo < 0 {
		return 0
	}
	return dpmo
}

func recommendations(c Capability, pol SixSigmaPolicy, target float64) []string {
	var recs []string

	if c.Cpk < pol.CpkMinimum {
		recs = append(recs, fmt.Sprintf("Cpk %.2f below the %.2f minimum - tighten process variance", c.Cpk, pol.CpkMinimum))
	}
	// A Cp clearly above Cpk means spread is fine but the mean is
	// off-center relative to the limits.
	if c.Cp-c.Cpk > 0.33 {
		recs = append(recs, fmt.Sprintf("process mean %.3f drifted from target %.3f - recalibrate centering", c.Mean, target))
	}
	if c.SigmaLevel < pol.SigmaTarget {
		recs = append(recs, fmt.Sprintf("sigma level %.2f below the %.1f target", c.SigmaLevel, pol.SigmaTarget))
	}
	if c.DPMO > pol.DPMOMaximum {
		recs = append(recs, fmt.Sprintf("defect rate %.1f DPMO above the %.1f ceiling", c.DPMO, pol.DPMOMaximum))
	}
	if len(recs) == 0 {
		recs = append(recs, "process capability meets all targets - maintain current controls")
	}
	return recs
}
