package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/northfox/foxbox/weekly"
)

// weekKey collapses a week start to its calendar date; the manager always
// passes Monday 00:00 in its configured location.
func weekKey(weekStart time.Time) string {
	return weekStart.Format("2006-01-02")
}

// LoadWeekly implements weekly.Store.
func (j *SQLite) LoadWeekly(symbol string, weekStart time.Time) (weekly.Performance, error) {
	row := j.db.QueryRow(`
		SELECT total_pnl_pct, total_pnl_amount, trade_count, winning_trades, strategy, is_upgraded, upgrade_time
		FROM weekly_performance
		WHERE symbol = ? AND week_start = ?`, symbol, weekKey(weekStart))

	p := weekly.Performance{Symbol: symbol, WeekStart: weekStart}
	var (
		strategy    string
		upgradeTime sql.NullTime
	)
	err := row.Scan(
		&p.TotalPnLPct,
		&p.TotalPnLAmount,
		&p.TradeCount,
		&p.WinningTrades,
		&strategy,
		&p.IsUpgraded,
		&upgradeTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return weekly.Performance{}, weekly.ErrNotFound
		}
		return weekly.Performance{}, err
	}
	p.Strategy = weekly.Strategy(strategy)
	if upgradeTime.Valid {
		t := upgradeTime.Time
		p.UpgradeTime = &t
	}
	return p, nil
}

// SaveWeekly implements weekly.Store.
func (j *SQLite) SaveWeekly(p weekly.Performance) error {
	var upgradeTime any
	if p.UpgradeTime != nil {
		upgradeTime = *p.UpgradeTime
	}

	_, err := j.db.Exec(`
		INSERT INTO weekly_performance
		(symbol, week_start, total_pnl_pct, total_pnl_amount, trade_count, winning_trades, strategy, is_upgraded, upgrade_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, week_start) DO UPDATE SET
			total_pnl_pct = excluded.total_pnl_pct,
			total_pnl_amount = excluded.total_pnl_amount,
			trade_count = excluded.trade_count,
			winning_trades = excluded.winning_trades,
			strategy = excluded.strategy,
			is_upgraded = excluded.is_upgraded,
			upgrade_time = excluded.upgrade_time`,
		p.Symbol, weekKey(p.WeekStart), p.TotalPnLPct, p.TotalPnLAmount,
		p.TradeCount, p.WinningTrades, string(p.Strategy), p.IsUpgraded, upgradeTime,
	)
	if err != nil {
		return fmt.Errorf("save weekly %s %s: %w", p.Symbol, weekKey(p.WeekStart), err)
	}
	return nil
}

// ListWeekly returns the most recent ledger entries for a symbol, newest
// week first.
func (j *SQLite) ListWeekly(symbol string, limit int) ([]weekly.Performance, error) {
	rows, err := j.db.Query(`
		SELECT week_start, total_pnl_pct, total_pnl_amount, trade_count, winning_trades, strategy, is_upgraded, upgrade_time
		FROM weekly_performance
		WHERE symbol = ?
		ORDER BY week_start DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []weekly.Performance
	for rows.Next() {
		p := weekly.Performance{Symbol: symbol}
		var (
			weekStart   string
			strategy    string
			upgradeTime sql.NullTime
		)
		if err := rows.Scan(
			&weekStart,
			&p.TotalPnLPct,
			&p.TotalPnLAmount,
			&p.TradeCount,
			&p.WinningTrades,
			&strategy,
			&p.IsUpgraded,
			&upgradeTime,
		); err != nil {
			return nil, err
		}
		p.WeekStart, err = time.Parse("2006-01-02", weekStart)
		if err != nil {
			return nil, fmt.Errorf("parse week start %q: %w", weekStart, err)
		}
		p.Strategy = weekly.Strategy(strategy)
		if upgradeTime.Valid {
			t := upgradeTime.Time
			p.UpgradeTime = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ weekly.Store = (*SQLite)(nil)
