package journal

import (
	"time"

	"github.com/northfox/foxbox/spc"
)

// AppendMeasurement implements spc.Store.
func (j *SQLite) AppendMeasurement(m spc.Measurement) error {
	_, err := j.db.Exec(`
		INSERT INTO quality_measurements
		(id, process_name, value, unit, target, usl, lsl, within_spec, correlation_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Process, m.Value, m.Unit, m.Target, m.USL, m.LSL,
		m.WithinSpec, m.CorrelationID, m.RecordedAt,
	)
	return err
}

// MeasurementsSince implements spc.Store. Results come back oldest first so
// capability analysis reads the latest spec limits from the tail.
func (j *SQLite) MeasurementsSince(process string, since time.Time) ([]spc.Measurement, error) {
	rows, err := j.db.Query(`
		SELECT id, process_name, value, unit, target, usl, lsl, within_spec, correlation_id, recorded_at
		FROM quality_measurements
		WHERE process_name = ? AND recorded_at >= ?
		ORDER BY recorded_at ASC`, process, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []spc.Measurement
	for rows.Next() {
		var m spc.Measurement
		if err := rows.Scan(
			&m.ID,
			&m.Process,
			&m.Value,
			&m.Unit,
			&m.Target,
			&m.USL,
			&m.LSL,
			&m.WithinSpec,
			&m.CorrelationID,
			&m.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ProcessNames implements spc.Store.
func (j *SQLite) ProcessNames() ([]string, error) {
	rows, err := j.db.Query(`SELECT DISTINCT process_name FROM quality_measurements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

var _ spc.Store = (*SQLite)(nil)

// RecordHealth appends a health snapshot row.
func (j *SQLite) RecordHealth(h spc.Health) error {
	_, err := j.db.Exec(`
		INSERT INTO health_snapshots
		(level, checked_at, sample_count, error_rate, latency_p50_ms, latency_p95_ms, latency_p99_ms, uptime_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Level, h.CheckedAt, h.SampleCount, h.ErrorRate,
		h.LatencyP50Ms, h.LatencyP95Ms, h.LatencyP99Ms, h.UptimeSeconds,
	)
	return err
}

// ListHealthSince returns health snapshots taken at or after a point in
// time, oldest first.
func (j *SQLite) ListHealthSince(since time.Time) ([]spc.Health, error) {
	rows, err := j.db.Query(`
		SELECT level, checked_at, sample_count, error_rate, latency_p50_ms, latency_p95_ms, latency_p99_ms, uptime_seconds
		FROM health_snapshots
		WHERE checked_at >= ?
		ORDER BY checked_at ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []spc.Health
	for rows.Next() {
		var h spc.Health
		if err := rows.Scan(
			&h.Level,
			&h.CheckedAt,
			&h.SampleCount,
			&h.ErrorRate,
			&h.LatencyP50Ms,
			&h.LatencyP95Ms,
			&h.LatencyP99Ms,
			&h.UptimeSeconds,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
