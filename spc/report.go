package spc

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Report aggregates capability across every measured process into a single
// quality summary with prioritized improvement actions.
type Report struct {
	GeneratedAt     time.Time             `json:"generated_at"`
	WindowHours     float64               `json:"window_hours"`
	SigmaTarget     float64               `json:"six_sigma_target"`
	OverallSigma    float64               `json:"overall_sigma_level"`
	OverallDPMO     float64               `json:"overall_dpmo"`
	AverageCpk      float64               `json:"average_cpk"`
	MeetsSixSigma   bool                  `json:"meets_six_sigma"`
	MeetingSixSigma int                   `json:"processes_meeting_six_sigma"`
	TotalProcesses  int                   `json:"total_processes"`
	SystemHealth    string                `json:"system_health"`
	Processes       map[string]Capability `json:"processes"`
	PendingAnalysis []string              `json:"pending_analysis,omitempty"`
	Actions         []Action              `json:"improvement_actions,omitempty"`
}

// Action is one prioritized improvement recommendation.
type Action struct {
	Priority string `json:"priority"`
	Process  string `json:"process"`
	Detail   string `json:"detail"`
}

const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Report builds the aggregated quality report over the given window.
// Processes without enough data are listed as pending rather than failing
// the whole report. The overall sigma level is the worst process sigma, so
// the summary never overstates quality.
func (m *Monitor) Report(window time.Duration) (Report, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	names, err := m.processesWithData()
	if err != nil {
		return Report{}, fmt.Errorf("list processes: %w", err)
	}

	rep := Report{
		GeneratedAt:    m.now().UTC(),
		WindowHours:    window.Hours(),
		SigmaTarget:    m.pol.SigmaTarget,
		TotalProcesses: len(names),
		SystemHealth:   "UNKNOWN",
		Processes:      make(map[string]Capability, len(names)),
	}

	var (
		cpkSum      float64
		worstSigma  = -1.0
		worstStatus string
	)
	for _, name := range names {
		cap, err := m.Capability(name, window)
		if err != nil {
			if errors.Is(err, ErrInsufficientData) {
				rep.PendingAnalysis = append(rep.PendingAnalysis, name)
				continue
			}
			return Report{}, err
		}
		rep.Processes[name] = cap
		cpkSum += cap.Cpk
		rep.OverallDPMO += cap.DPMO
		if cap.MeetsSixSigma {
			rep.MeetingSixSigma++
		}
		if worstSigma < 0 || cap.SigmaLevel < worstSigma {
			worstSigma = cap.SigmaLevel
			worstStatus = cap.QualityStatus
		}
		rep.Actions = append(rep.Actions, actionsFor(name, cap, m.pol)...)
	}

	if n := len(rep.Processes); n > 0 {
		rep.AverageCpk = cpkSum / float64(n)
		rep.OverallSigma = worstSigma
		rep.MeetsSixSigma = worstSigma >= m.pol.SigmaTarget && rep.AverageCpk >= m.pol.CpkMinimum
		// The system is only as healthy as its worst process.
		rep.SystemHealth = worstStatus
	}

	sort.Slice(rep.Actions, func(i, j int) bool {
		pi, pj := priorityRank(rep.Actions[i].Priority), priorityRank(rep.Actions[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return rep.Actions[i].Process < rep.Actions[j].Process
	})
	return rep, nil
}

func priorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

func actionsFor(process string, c Capability, pol SixSigmaPolicy) []Action {
	var acts []Action
	switch {
	case c.Cpk < 1.0:
		acts = append(acts, Action{
			Priority: PriorityHigh,
			Process:  process,
			Detail:   fmt.Sprintf("Cpk %.3f is below 1.0, process produces defects under normal variation", c.Cpk),
		})
	case c.Cpk < pol.CpkMinimum:
		acts = append(acts, Action{
			Priority: PriorityMedium,
			Process:  process,
			Detail:   fmt.Sprintf("Cpk %.3f is below the %.2f policy minimum", c.Cpk, pol.CpkMinimum),
		})
	}
	if c.DPMO > pol.DPMOMaximum {
		acts = append(acts, Action{
			Priority: PriorityMedium,
			Process:  process,
			Detail:   fmt.Sprintf("DPMO %.1f exceeds the %.1f ceiling", c.DPMO, pol.DPMOMaximum),
		})
	}
	if len(acts) == 0 && c.SigmaLevel < pol.SigmaTarget {
		acts = append(acts, Action{
			Priority: PriorityLow,
			Process:  process,
			Detail:   fmt.Sprintf("sigma level %.2f is short of the %.1f target", c.SigmaLevel, pol.SigmaTarget),
		})
	}
	return acts
}

// Health levels, ordered worst to best.
const (
	HealthDown     = "DOWN"
	HealthCritical = "CRITICAL"
	HealthWarning  = "WARNING"
	HealthHealthy  = "HEALTHY"
)

// Health is a point-in-time operational snapshot built from recent
// measurements: latency percentiles from millisecond series plus the
// fraction of out-of-spec samples.
type Health struct {
	Level         string    `json:"level"`
	CheckedAt     time.Time `json:"checked_at"`
	WindowHours   float64   `json:"window_hours"`
	SampleCount   int       `json:"sample_count"`
	ErrorRate     float64   `json:"error_rate"`
	LatencyP50Ms  float64   `json:"latency_p50_ms"`
	LatencyP95Ms  float64   `json:"latency_p95_ms"`
	LatencyP99Ms  float64   `json:"latency_p99_ms"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// Health summarizes recent operational quality. With no samples in the
// window the monitor reports DOWN; otherwise the level degrades with the
// out-of-spec rate: >=20% CRITICAL, >=5% WARNING, else HEALTHY.
func (m *Monitor) Health(window time.Duration) (Health, error) {
	if window <= 0 {
		window = DefaultHealthWindow
	}
	now := m.now()

	names, err := m.processesWithData()
	if err != nil {
		return Health{}, fmt.Errorf("list processes: %w", err)
	}

	var (
		latencies []float64
		total     int
		outOfSpec int
	)
	since := now.Add(-window)
	for _, name := range names {
		ms, err := m.store.MeasurementsSince(name, since)
		if err != nil {
			return Health{}, fmt.Errorf("load measurements for %s: %w", name, err)
		}
		for _, meas := range ms {
			total++
			if !meas.WithinSpec {
				outOfSpec++
			}
			if meas.Unit == "ms" {
				latencies = append(latencies, meas.Value)
			}
		}
	}

	h := Health{
		CheckedAt:     now.UTC(),
		WindowHours:   window.Hours(),
		SampleCount:   total,
		UptimeSeconds: now.Sub(m.started).Seconds(),
	}
	if total == 0 {
		h.Level = HealthDown
		return h, nil
	}

	h.ErrorRate = float64(outOfSpec) / float64(total)
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		h.LatencyP50Ms = percentile(latencies, 0.50)
		h.LatencyP95Ms = percentile(latencies, 0.95)
		h.LatencyP99Ms = percentile(latencies, 0.99)
	}

	switch {
	case h.ErrorRate >= 0.20:
		h.Level = HealthCritical
	case h.ErrorRate >= 0.05:
		h.Level = HealthWarning
	default:
		h.Level = HealthHealthy
	}
	return h, nil
}

// percentile uses nearest-rank on a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
