package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/northfox/foxbox/risk"
	"github.com/northfox/foxbox/signal"
)

func (j *SQLite) RecordSignal(s signal.Signal) error {
	_, err := j.db.Exec(`
		INSERT INTO signals
		(id, source, symbol, direction, entry_price, stop_loss, take_profit, strength, status, signal_time, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.Symbol, string(s.Direction), s.EntryPrice,
		s.StopLoss, s.TakeProfit, s.Strength, string(s.Status), s.Timestamp, s.ReceivedAt,
	)
	return err
}

func (j *SQLite) UpdateSignalStatus(id string, status signal.Status) error {
	res, err := j.db.Exec(`UPDATE signals SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("signal %q: %w", id, ErrNotFound)
	}
	return nil
}

func (j *SQLite) GetSignal(id string) (signal.Signal, error) {
	row := j.db.QueryRow(`
		SELECT id, source, symbol, direction, entry_price, stop_loss, take_profit, strength, status, signal_time, received_at
		FROM signals
		WHERE id = ?`, id)

	s, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return signal.Signal{}, fmt.Errorf("signal %q: %w", id, ErrNotFound)
	}
	return s, err
}

// ListSignalsBetween returns signals received within [start, end), oldest
// first.
func (j *SQLite) ListSignalsBetween(start, end time.Time) ([]signal.Signal, error) {
	rows, err := j.db.Query(`
		SELECT id, source, symbol, direction, entry_price, stop_loss, take_profit, strength, status, signal_time, received_at
		FROM signals
		WHERE received_at >= ? AND received_at < ?
		ORDER BY received_at ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []signal.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(r rowScanner) (signal.Signal, error) {
	var (
		s         signal.Signal
		direction string
		status    string
	)
	err := r.Scan(
		&s.ID,
		&s.Source,
		&s.Symbol,
		&direction,
		&s.EntryPrice,
		&s.StopLoss,
		&s.TakeProfit,
		&s.Strength,
		&status,
		&s.Timestamp,
		&s.ReceivedAt,
	)
	if err != nil {
		return signal.Signal{}, err
	}
	s.Direction = signal.Direction(direction)
	s.Status = signal.Status(status)
	return s, nil
}

// RecordAssessment stores a risk assessment, replacing any earlier one for
// the same signal. Re-assessment after a retry overwrites rather than
// duplicating the audit row.
func (j *SQLite) RecordAssessment(a risk.Assessment) error {
	reasons, err := json.Marshal(a.RejectionReasons)
	if err != nil {
		return fmt.Errorf("encode rejection reasons: %w", err)
	}

	_, err = j.db.Exec(`
		INSERT INTO risk_assessments
		(id, signal_id, approved, position_size, risk_amount, risk_pct, stop_pips,
		 daily_risk_used, weekly_risk_used, drawdown_impact, calculation_accuracy,
		 approval_reason, rejection_reasons, degraded_data, processing_ms, assessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(signal_id) DO UPDATE SET
			id = excluded.id,
			approved = excluded.approved,
			position_size = excluded.position_size,
			risk_amount = excluded.risk_amount,
			risk_pct = excluded.risk_pct,
			stop_pips = excluded.stop_pips,
			daily_risk_used = excluded.daily_risk_used,
			weekly_risk_used = excluded.weekly_risk_used,
			drawdown_impact = excluded.drawdown_impact,
			calculation_accuracy = excluded.calculation_accuracy,
			approval_reason = excluded.approval_reason,
			rejection_reasons = excluded.rejection_reasons,
			degraded_data = excluded.degraded_data,
			processing_ms = excluded.processing_ms,
			assessed_at = excluded.assessed_at`,
		a.ID, a.SignalID, a.Approved, a.PositionSize, a.RiskAmount, a.RiskPct, a.StopPips,
		a.DailyRiskUsed, a.WeeklyRiskUsed, a.DrawdownImpact, a.CalculationAccuracy,
		a.ApprovalReason, string(reasons), a.DegradedData, a.ProcessingMs, a.AssessedAt,
	)
	return err
}

// GetAssessment returns the assessment recorded for a signal.
func (j *SQLite) GetAssessment(signalID string) (risk.Assessment, error) {
	row := j.db.QueryRow(`
		SELECT id, signal_id, approved, position_size, risk_amount, risk_pct, stop_pips,
		       daily_risk_used, weekly_risk_used, drawdown_impact, calculation_accuracy,
		       approval_reason, rejection_reasons, degraded_data, processing_ms, assessed_at
		FROM risk_assessments
		WHERE signal_id = ?`, signalID)

	var (
		a       risk.Assessment
		reasons string
	)
	err := row.Scan(
		&a.ID,
		&a.SignalID,
		&a.Approved,
		&a.PositionSize,
		&a.RiskAmount,
		&a.RiskPct,
		&a.StopPips,
		&a.DailyRiskUsed,
		&a.WeeklyRiskUsed,
		&a.DrawdownImpact,
		&a.CalculationAccuracy,
		&a.ApprovalReason,
		&reasons,
		&a.DegradedData,
		&a.ProcessingMs,
		&a.AssessedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return risk.Assessment{}, fmt.Errorf("assessment for signal %q: %w", signalID, ErrNotFound)
		}
		return risk.Assessment{}, err
	}
	if err := json.Unmarshal([]byte(reasons), &a.RejectionReasons); err != nil {
		return risk.Assessment{}, fmt.Errorf("decode rejection reasons: %w", err)
	}
	return a, nil
}

// ApprovedRiskPctSince sums the risk fraction of approved assessments made
// at or after a point in time. Used to rebuild the rolling usage counters
// after a restart.
func (j *SQLite) ApprovedRiskPctSince(since time.Time) (float64, error) {
	row := j.db.QueryRow(`
		SELECT COALESCE(SUM(risk_pct), 0)
		FROM risk_assessments
		WHERE approved AND assessed_at >= ?`, since)
	var total float64
	err := row.Scan(&total)
	return total, err
}

// CountAssessments returns approved and rejected totals since a point in
// time.
func (j *SQLite) CountAssessments(since time.Time) (approved, rejected int, err error) {
	row := j.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN approved THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approved THEN 0 ELSE 1 END), 0)
		FROM risk_assessments
		WHERE assessed_at >= ?`, since)
	err = row.Scan(&approved, &rejected)
	return
}
