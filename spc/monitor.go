package spc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrInsufficientData means the window holds too few (or too uniform)
// samples to compute capability. A normal "not ready yet" outcome, not a
// fault.
var ErrInsufficientData = errors.New("insufficient data for capability analysis")

// DefaultWindow is the rolling window capability analysis looks back over.
const DefaultWindow = 24 * time.Hour

// DefaultHealthWindow is the trailing window health snapshots cover. Health
// is an operational signal, so it looks at a much shorter horizon than
// capability analysis.
const DefaultHealthWindow = time.Hour

const minSampleSize = 2

// Monitor records measurements and derives capability analyses. One monitor
// is constructed per process lifetime and handed to the orchestrator; there
// is no ambient global instance.
type Monitor struct {
	store Store
	pol   SixSigmaPolicy
	log   zerolog.Logger
	now   func() time.Time

	mu      sync.RWMutex
	tails   map[string]tail
	started time.Time
	active  bool
}

// tail is the cheap per-process bookkeeping behind Status. Kept in memory so
// liveness checks never touch the store or run capability math.
type tail struct {
	last  float64
	unit  string
	count int64
}

type MonitorOption func(*Monitor)

func MonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

func WithPolicy(pol SixSigmaPolicy) MonitorOption {
	return func(m *Monitor) { m.pol = pol }
}

func NewMonitor(store Store, log zerolog.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		store: store,
		pol:   DefaultSixSigmaPolicy(),
		log:   log.With().Str("component", "spc").Logger(),
		now:   time.Now,
		tails: make(map[string]tail),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.started = m.now()
	m.active = true
	return m
}

// Record validates and appends one measurement. Out-of-spec values are still
// recorded (they flip WithinSpec); only malformed payloads are rejected.
func (m *Monitor) Record(meas Measurement) error {
	if err := meas.validate(); err != nil {
		return fmt.Errorf("invalid measurement: %w", err)
	}
	if meas.RecordedAt.IsZero() {
		meas.RecordedAt = m.now().UTC()
	}

	if err := m.store.AppendMeasurement(meas); err != nil {
		m.log.Error().Err(err).Str("process", meas.Process).Msg("measurement append failed")
		return fmt.Errorf("append measurement: %w", err)
	}

	m.mu.Lock()
	t := m.tails[meas.Process]
	t.last = meas.Value
	t.unit = meas.Unit
	t.count++
	m.tails[meas.Process] = t
	m.mu.Unlock()

	if !meas.WithinSpec {
		m.log.Warn().Str("process", meas.Process).Float64("value", meas.Value).
			Float64("usl", meas.USL).Float64("lsl", meas.LSL).
			Str("correlation_id", meas.CorrelationID).Msg("measurement out of spec")
	}
	return nil
}

// Capability derives the SPC analysis for one process over the trailing
// window. Fewer than two samples, or a flat series with zero variance,
// reports ErrInsufficientData.
func (m *Monitor) Capability(process string, window time.Duration) (Capability, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	since := m.now().Add(-window)
	values, err := m.store.MeasurementsSince(process, since)
	if err != nil {
		return Capability{}, fmt.Errorf("load measurements for %s: %w", process, err)
	}
	if len(values) < minSampleSize {
		return Capability{}, ErrInsufficientData
	}

	// Zero spread gives no variance to measure capability against.
	first := values[0].Value
	flat := true
	for _, v := range values[1:] {
		if v.Value != first {
			flat = false
			break
		}
	}
	if flat {
		return Capability{}, ErrInsufficientData
	}

	return computeCapability(process, values, m.pol, window.Hours(), m.now().UTC()), nil
}

// Status is the cheap liveness view: monitoring flag plus last value and
// count per process. No capability math runs here.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		MonitoringActive: m.active,
		SigmaTarget:      m.pol.SigmaTarget,
		TotalProcesses:   len(m.tails),
		Processes:        make(map[string]ProcessStatus, len(m.tails)),
	}
	for name, t := range m.tails {
		st.Processes[name] = ProcessStatus{
			LastValue:        t.last,
			Unit:             t.unit,
			MeasurementCount: t.count,
		}
	}
	return st
}

// Status is the monitor's lightweight liveness report.
type Status struct {
	MonitoringActive bool                     `json:"monitoring_active"`
	SigmaTarget      float64                  `json:"six_sigma_target"`
	TotalProcesses   int                      `json:"total_processes"`
	Processes        map[string]ProcessStatus `json:"processes"`
}

type ProcessStatus struct {
	LastValue        float64 `json:"last_measurement"`
	Unit             string  `json:"unit"`
	MeasurementCount int64   `json:"measurement_count"`
}

// processesWithData lists every process name the store has seen, sorted for
// deterministic report ordering.
func (m *Monitor) processesWithData() ([]string, error) {
	names, err := m.store.ProcessNames()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
