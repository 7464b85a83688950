// Package signal defines the candidate-trade record that flows through the
// pipeline, and its lifecycle.
package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
	StatusClosed   Status = "closed"
)

// Signal is a candidate trade supplied by the ingestion boundary. Price
// fields are immutable once the signal is executed; only Status may move.
type Signal struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Strength   string    `json:"strength"`
	Timestamp  time.Time `json:"timestamp"`
	ReceivedAt time.Time `json:"received_at"`
	Status     Status    `json:"status"`
}

// New builds a pending signal with a fresh id.
func New(source, symbol string, dir Direction, entry, sl, tp float64) Signal {
	now := time.Now().UTC()
	return Signal{
		ID:         uuid.NewString(),
		Source:     source,
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: entry,
		StopLoss:   sl,
		TakeProfit: tp,
		Timestamp:  now,
		ReceivedAt: now,
		Status:     StatusPending,
	}
}

// Validate rejects structurally impossible signals before any risk math runs.
func (s Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("signal %s: symbol is required", s.ID)
	}
	if s.Direction != Buy && s.Direction != Sell {
		return fmt.Errorf("signal %s: direction must be BUY or SELL, got %q", s.ID, s.Direction)
	}
	if s.EntryPrice <= 0 {
		return fmt.Errorf("signal %s: entry price must be positive", s.ID)
	}
	if s.StopLoss <= 0 {
		return fmt.Errorf("signal %s: stop loss must be positive", s.ID)
	}
	if s.Direction == Buy && s.StopLoss >= s.EntryPrice {
		return fmt.Errorf("signal %s: BUY stop loss %.5f must be below entry %.5f", s.ID, s.StopLoss, s.EntryPrice)
	}
	if s.Direction == Sell && s.StopLoss <= s.EntryPrice {
		return fmt.Errorf("signal %s: SELL stop loss %.5f must be above entry %.5f", s.ID, s.StopLoss, s.EntryPrice)
	}
	return nil
}

// Stage is one step of the signal-to-execution pipeline.
type Stage string

const (
	StageDetected     Stage = "DETECTED"
	StageValidated    Stage = "VALIDATED"
	StageReceived     Stage = "RECEIVED"
	StageRiskAssessed Stage = "RISK_ASSESSED"
	StageExecuted     Stage = "EXECUTED"
	StageMonitored    Stage = "MONITORED"
)

// Stages in pipeline order.
var Stages = []Stage{
	StageDetected,
	StageValidated,
	StageReceived,
	StageRiskAssessed,
	StageExecuted,
	StageMonitored,
}
