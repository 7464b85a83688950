package journal

import (
	"time"
)

// ExecutionRecord mirrors the executions table: one filled order.
type ExecutionRecord struct {
	Ticket       string
	SignalID     string
	Symbol       string
	Side         string
	Lots         float64
	FillPrice    float64
	SlippagePips float64
	ExecutedAt   time.Time
}

func (j *SQLite) RecordExecution(e ExecutionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO executions
		(ticket, signal_id, symbol, side, lots, fill_price, slippage_pips, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Ticket, e.SignalID, e.Symbol, e.Side, e.Lots, e.FillPrice, e.SlippagePips, e.ExecutedAt,
	)
	return err
}

// ListExecutionsBetween returns fills executed within [start, end), oldest
// first.
func (j *SQLite) ListExecutionsBetween(start, end time.Time) ([]ExecutionRecord, error) {
	rows, err := j.db.Query(`
		SELECT ticket, signal_id, symbol, side, lots, fill_price, slippage_pips, executed_at
		FROM executions
		WHERE executed_at >= ? AND executed_at < ?
		ORDER BY executed_at ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		var e ExecutionRecord
		if err := rows.Scan(
			&e.Ticket,
			&e.SignalID,
			&e.Symbol,
			&e.Side,
			&e.Lots,
			&e.FillPrice,
			&e.SlippagePips,
			&e.ExecutedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
