package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/northfox/foxbox/market"
	"github.com/northfox/foxbox/signal"
)

// Usage is the account's already-committed risk, as fractions of balance.
type Usage struct {
	Daily  float64
	Weekly float64
}

// Input gathers everything Calculate needs. The caller (the orchestrator)
// resolves account and pip-value data and substitutes policy defaults when
// the terminal is unreachable, setting DegradedData so the assessment says
// so.
type Input struct {
	Signal         signal.Signal
	Symbol         market.SymbolInfo
	PipValuePerLot float64
	Balance        float64
	Currency       string
	Usage          Usage
	DegradedData   bool
}

// Assessment is the full risk decision for one signal. Superseded by
// recompute, never edited in place.
type Assessment struct {
	ID                  string    `json:"id"`
	SignalID            string    `json:"signal_id"`
	Approved            bool      `json:"approved"`
	PositionSize        float64   `json:"position_size"` // lots
	RiskAmount          float64   `json:"risk_amount"`   // account currency
	RiskPct             float64   `json:"risk_pct"`      // fraction of balance
	StopPips            float64   `json:"stop_pips"`
	DailyRiskUsed       float64   `json:"daily_risk_used"` // including this trade
	WeeklyRiskUsed      float64   `json:"weekly_risk_used"`
	DrawdownImpact      float64   `json:"drawdown_impact"`
	CalculationAccuracy float64   `json:"calculation_accuracy"` // percent, 100 = requested risk fully achievable
	ApprovalReason      string    `json:"approval_reason,omitempty"`
	RejectionReasons    []string  `json:"rejection_reasons,omitempty"`
	DegradedData        bool      `json:"degraded_data"`
	ProcessingMs        float64   `json:"processing_ms"`
	AssessedAt          time.Time `json:"assessed_at"`
}

func (a *Assessment) reject(format string, args ...any) {
	a.Approved = false
	a.RejectionReasons = append(a.RejectionReasons, fmt.Sprintf(format, args...))
}

// degradedAccuracyCap is the highest accuracy an assessment built on
// fallback account or market data may report.
const degradedAccuracyCap = 95.0

// Calculate runs the full risk decision: position sizing against the
// per-trade budget, then daily, weekly and drawdown budget checks. Every
// violated constraint is recorded, not just the first. Pure computation;
// persisting the result is the caller's job.
func Calculate(in Input, pol Policy) Assessment {
	a := Assessment{
		ID:           uuid.NewString(),
		SignalID:     in.Signal.ID,
		Approved:     true,
		DegradedData: in.DegradedData,
		AssessedAt:   time.Now().UTC(),
	}

	if err := in.Signal.Validate(); err != nil {
		a.reject("invalid signal: %v", err)
		return a
	}
	if in.Balance <= 0 {
		a.reject("account balance unavailable and no default configured")
		return a
	}
	if in.PipValuePerLot <= 0 {
		a.reject("pip value unavailable for %s", in.Signal.Symbol)
		return a
	}
	if in.Symbol.Point <= 0 {
		a.reject("unknown symbol %s, no instrument specification available", in.Signal.Symbol)
		return a
	}

	requested := in.Balance * pol.MaxRiskPerTrade
	s := Size(in.Symbol, in.Signal.EntryPrice, in.Signal.StopLoss, in.PipValuePerLot, requested)
	a.StopPips = s.StopPips

	if s.StopPips <= 0 {
		a.reject("stop distance is zero")
		return a
	}
	if s.Lots <= 0 {
		a.reject("budget %.2f %s supports less than the minimum volume %.2f lots",
			requested, in.Currency, in.Symbol.VolumeMin)
	}

	a.PositionSize = s.Lots
	a.RiskAmount = s.RiskAmount
	a.RiskPct = s.RiskAmount / in.Balance
	a.DailyRiskUsed = in.Usage.Daily + a.RiskPct
	a.WeeklyRiskUsed = in.Usage.Weekly + a.RiskPct
	a.DrawdownImpact = in.Usage.Weekly + a.RiskPct

	if a.DailyRiskUsed > pol.MaxDailyRisk {
		a.reject("daily risk %.2f%% would exceed the %.2f%% budget",
			100*a.DailyRiskUsed, 100*pol.MaxDailyRisk)
	}
	if a.WeeklyRiskUsed > pol.MaxWeeklyRisk {
		a.reject("weekly risk %.2f%% would exceed the %.2f%% budget",
			100*a.WeeklyRiskUsed, 100*pol.MaxWeeklyRisk)
	}
	if a.DrawdownImpact > pol.MaxDrawdown {
		a.reject("projected drawdown %.2f%% would exceed the %.2f%% limit",
			100*a.DrawdownImpact, 100*pol.MaxDrawdown)
	}

	if requested > 0 {
		a.CalculationAccuracy = 100 * s.RiskAmount / requested
	}
	if a.DegradedData && a.CalculationAccuracy > degradedAccuracyCap {
		a.CalculationAccuracy = degradedAccuracyCap
	}

	if a.Approved {
		a.ApprovalReason = fmt.Sprintf("%.2f lots risking %.2f %s (%.2f%% of balance), within all budgets",
			a.PositionSize, a.RiskAmount, in.Currency, 100*a.RiskPct)
	}
	return a
}
