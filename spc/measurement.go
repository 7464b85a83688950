// Package spc performs statistical process control over the pipeline's
// quality measurements: latency, slippage and accuracy series are recorded
// against target and spec limits, and capability (Cp/Cpk), sigma level and
// DPMO are derived on demand over a rolling window.
package spc

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Monitored process names. The set is open; these are the ones the pipeline
// emits by itself.
const (
	ProcSignalLatency     = "signal_processing_latency"
	ProcRiskAccuracy      = "risk_calculation_accuracy"
	ProcExecutionSlippage = "order_execution_slippage"
	ProcExecutionLatency  = "order_execution_latency"
	ProcEndToEndLatency   = "end_to_end_latency"
)

// Spec is the target and limits one process is measured against.
type Spec struct {
	Target float64 `json:"target" yaml:"target"`
	USL    float64 `json:"usl" yaml:"usl"`
	LSL    float64 `json:"lsl" yaml:"lsl"`
	Unit   string  `json:"unit" yaml:"unit"`
}

func (s Spec) Validate() error {
	if s.USL <= s.LSL {
		return fmt.Errorf("upper spec limit %v must exceed lower spec limit %v", s.USL, s.LSL)
	}
	if s.Target < s.LSL || s.Target > s.USL {
		return fmt.Errorf("target %v outside spec limits [%v, %v]", s.Target, s.LSL, s.USL)
	}
	return nil
}

// Measurement is one observation of a monitored process. Append-only: once
// recorded it is never updated or deleted.
type Measurement struct {
	ID            string    `json:"id"`
	Process       string    `json:"process_name"`
	Value         float64   `json:"measurement_value"`
	Unit          string    `json:"measurement_unit"`
	Target        float64   `json:"target_value"`
	USL           float64   `json:"upper_spec_limit"`
	LSL           float64   `json:"lower_spec_limit"`
	WithinSpec    bool      `json:"within_spec"`
	CorrelationID string    `json:"correlation_id"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// NewMeasurement builds an observation from a process spec.
func NewMeasurement(process string, value float64, spec Spec, correlationID string) Measurement {
	return Measurement{
		ID:            uuid.NewString(),
		Process:       process,
		Value:         value,
		Unit:          spec.Unit,
		Target:        spec.Target,
		USL:           spec.USL,
		LSL:           spec.LSL,
		WithinSpec:    value >= spec.LSL && value <= spec.USL,
		CorrelationID: correlationID,
		RecordedAt:    time.Now().UTC(),
	}
}

func (m Measurement) validate() error {
	if m.Process == "" {
		return errors.New("process_name is required")
	}
	if m.Unit == "" {
		return errors.New("measurement_unit is required")
	}
	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return fmt.Errorf("measurement_value must be finite, got %v", m.Value)
	}
	if m.USL <= m.LSL {
		return fmt.Errorf("upper_spec_limit %v must exceed lower_spec_limit %v", m.USL, m.LSL)
	}
	return nil
}

// Store is the persistence boundary for measurements. Appends must be safe
// under concurrent writers; range reads may be slightly stale.
type Store interface {
	AppendMeasurement(m Measurement) error
	MeasurementsSince(process string, since time.Time) ([]Measurement, error)
	ProcessNames() ([]string, error)
}
