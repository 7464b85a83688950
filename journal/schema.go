// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	strength TEXT NOT NULL,
	status TEXT NOT NULL,
	signal_time DATETIME NOT NULL,
	received_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_received ON signals(received_at);

CREATE TABLE IF NOT EXISTS risk_assessments (
	id TEXT PRIMARY KEY,
	signal_id TEXT NOT NULL UNIQUE,
	approved INTEGER NOT NULL,
	position_size REAL NOT NULL,
	risk_amount REAL NOT NULL,
	risk_pct REAL NOT NULL,
	stop_pips REAL NOT NULL,
	daily_risk_used REAL NOT NULL,
	weekly_risk_used REAL NOT NULL,
	drawdown_impact REAL NOT NULL,
	calculation_accuracy REAL NOT NULL,
	approval_reason TEXT NOT NULL,
	rejection_reasons TEXT NOT NULL,
	degraded_data INTEGER NOT NULL,
	processing_ms REAL NOT NULL,
	assessed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS executions (
	ticket TEXT PRIMARY KEY,
	signal_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	lots REAL NOT NULL,
	fill_price REAL NOT NULL,
	slippage_pips REAL NOT NULL,
	executed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_time ON executions(executed_at);

CREATE TABLE IF NOT EXISTS weekly_performance (
	symbol TEXT NOT NULL,
	week_start TEXT NOT NULL,
	total_pnl_pct REAL NOT NULL,
	total_pnl_amount REAL NOT NULL,
	trade_count INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	is_upgraded INTEGER NOT NULL,
	upgrade_time DATETIME,
	UNIQUE(symbol, week_start)
);

CREATE TABLE IF NOT EXISTS quality_measurements (
	id TEXT PRIMARY KEY,
	process_name TEXT NOT NULL,
	value REAL NOT NULL,
	unit TEXT NOT NULL,
	target REAL NOT NULL,
	usl REAL NOT NULL,
	lsl REAL NOT NULL,
	within_spec INTEGER NOT NULL,
	correlation_id TEXT NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quality_process_time
	ON quality_measurements(process_name, recorded_at);

CREATE TABLE IF NOT EXISTS health_snapshots (
	level TEXT NOT NULL,
	checked_at DATETIME NOT NULL,
	sample_count INTEGER NOT NULL,
	error_rate REAL NOT NULL,
	latency_p50_ms REAL NOT NULL,
	latency_p95_ms REAL NOT NULL,
	latency_p99_ms REAL NOT NULL,
	uptime_seconds REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_health_time ON health_snapshots(checked_at);
`
