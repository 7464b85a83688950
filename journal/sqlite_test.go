package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfox/foxbox/risk"
	"github.com/northfox/foxbox/signal"
	"github.com/northfox/foxbox/spc"
	"github.com/northfox/foxbox/weekly"
)

func openJournal(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSignalRoundTrip(t *testing.T) {
	j := openJournal(t)

	s := signal.New("mt5", "EURUSD", signal.Buy, 1.1250, 1.1200, 1.1350)
	s.Strength = "STRONG"
	require.NoError(t, j.RecordSignal(s))

	got, err := j.GetSignal(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Symbol, got.Symbol)
	assert.Equal(t, signal.Buy, got.Direction)
	assert.Equal(t, signal.StatusPending, got.Status)
	assert.Equal(t, s.EntryPrice, got.EntryPrice)
	assert.WithinDuration(t, s.ReceivedAt, got.ReceivedAt, time.Second)

	require.NoError(t, j.UpdateSignalStatus(s.ID, signal.StatusApproved))
	got, err = j.GetSignal(s.ID)
	require.NoError(t, err)
	assert.Equal(t, signal.StatusApproved, got.Status)
}

func TestSignalNotFound(t *testing.T) {
	j := openJournal(t)

	_, err := j.GetSignal("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, j.UpdateSignalStatus("missing", signal.StatusRejected), ErrNotFound)
}

func TestListSignalsBetween(t *testing.T) {
	j := openJournal(t)

	base := time.Date(2025, 7, 23, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := signal.New("mt5", "EURUSD", signal.Buy, 1.1250, 1.1200, 1.1350)
		s.ReceivedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, j.RecordSignal(s))
	}

	got, err := j.ListSignalsBetween(base, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAssessmentUpsert(t *testing.T) {
	j := openJournal(t)

	first := risk.Assessment{
		ID:               "a-1",
		SignalID:         "sig-1",
		Approved:         false,
		RejectionReasons: []string{"daily loss limit would be exceeded"},
		DegradedData:     true,
		AssessedAt:       time.Date(2025, 7, 23, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, j.RecordAssessment(first))

	second := first
	second.ID = "a-2"
	second.Approved = true
	second.RejectionReasons = nil
	second.ApprovalReason = "all risk checks passed"
	second.PositionSize = 0.2
	second.CalculationAccuracy = 100
	require.NoError(t, j.RecordAssessment(second))

	got, err := j.GetAssessment("sig-1")
	require.NoError(t, err)
	assert.Equal(t, "a-2", got.ID)
	assert.True(t, got.Approved)
	assert.Empty(t, got.RejectionReasons)
	assert.Equal(t, 0.2, got.PositionSize)
	assert.Equal(t, 100.0, got.CalculationAccuracy)
}

func TestAssessmentReasonsRoundTrip(t *testing.T) {
	j := openJournal(t)

	a := risk.Assessment{
		ID:       "a-1",
		SignalID: "sig-1",
		RejectionReasons: []string{
			"requested risk 2.0% exceeds the 1.0% per-trade cap",
			"weekly risk budget exhausted",
		},
		AssessedAt: time.Now().UTC(),
	}
	require.NoError(t, j.RecordAssessment(a))

	got, err := j.GetAssessment("sig-1")
	require.NoError(t, err)
	assert.Equal(t, a.RejectionReasons, got.RejectionReasons)

	approved, rejected, err := j.CountAssessments(a.AssessedAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, approved)
	assert.Equal(t, 1, rejected)
}

func TestApprovedRiskPctSince(t *testing.T) {
	j := openJournal(t)

	now := time.Date(2025, 7, 23, 12, 0, 0, 0, time.UTC)
	records := []risk.Assessment{
		{ID: "a-1", SignalID: "sig-1", Approved: true, RiskPct: 0.01, AssessedAt: now.Add(-time.Hour)},
		{ID: "a-2", SignalID: "sig-2", Approved: true, RiskPct: 0.005, AssessedAt: now.Add(-30 * time.Minute)},
		{ID: "a-3", SignalID: "sig-3", Approved: false, RiskPct: 0.01, AssessedAt: now.Add(-20 * time.Minute)},
		{ID: "a-4", SignalID: "sig-4", Approved: true, RiskPct: 0.01, AssessedAt: now.Add(-48 * time.Hour)},
	}
	for _, a := range records {
		require.NoError(t, j.RecordAssessment(a))
	}

	// Rejected assessments and those before the cutoff do not count.
	total, err := j.ApprovedRiskPctSince(now.Add(-2 * time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.015, total, 1e-12)

	total, err = j.ApprovedRiskPctSince(now.Add(-72 * time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.025, total, 1e-12)

	total, err = j.ApprovedRiskPctSince(now)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestExecutions(t *testing.T) {
	j := openJournal(t)

	base := time.Date(2025, 7, 23, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordExecution(ExecutionRecord{
			Ticket:       string(rune('a' + i)),
			SignalID:     "sig-1",
			Symbol:       "EURUSD",
			Side:         "BUY",
			Lots:         0.2,
			FillPrice:    1.1252,
			SlippagePips: 0.4,
			ExecutedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := j.ListExecutionsBetween(base, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Ticket)
	assert.Equal(t, 0.2, got[0].Lots)
}

func TestWeeklyStore(t *testing.T) {
	j := openJournal(t)

	weekStart := time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)
	_, err := j.LoadWeekly("EURUSD", weekStart)
	assert.ErrorIs(t, err, weekly.ErrNotFound)

	upgraded := time.Date(2025, 7, 23, 15, 30, 0, 0, time.UTC)
	p := weekly.Performance{
		Symbol:         "EURUSD",
		WeekStart:      weekStart,
		TotalPnLPct:    10.5,
		TotalPnLAmount: 1050,
		TradeCount:     7,
		WinningTrades:  5,
		Strategy:       weekly.Upgraded12,
		IsUpgraded:     true,
		UpgradeTime:    &upgraded,
	}
	require.NoError(t, j.SaveWeekly(p))

	got, err := j.LoadWeekly("EURUSD", weekStart)
	require.NoError(t, err)
	assert.Equal(t, p.TotalPnLPct, got.TotalPnLPct)
	assert.Equal(t, weekly.Upgraded12, got.Strategy)
	assert.True(t, got.IsUpgraded)
	require.NotNil(t, got.UpgradeTime)
	assert.WithinDuration(t, upgraded, *got.UpgradeTime, time.Second)

	// Saving the same week again replaces the row.
	p.TotalPnLPct = 12.0
	require.NoError(t, j.SaveWeekly(p))
	got, err = j.LoadWeekly("EURUSD", weekStart)
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.TotalPnLPct)
}

func TestWeeklyStoreDrivesManager(t *testing.T) {
	j := openJournal(t)

	now := time.Date(2025, 7, 23, 12, 0, 0, 0, time.UTC)
	mgr := weekly.NewManager(j, zerolog.Nop(), weekly.WithClock(func() time.Time { return now }))

	_, err := mgr.UpdatePerformance("EURUSD", 10.5, 1050, true)
	require.NoError(t, err)

	strat, _ := mgr.RecommendedStrategy("EURUSD")
	assert.Equal(t, weekly.Upgraded12, strat)
}

func TestListWeekly(t *testing.T) {
	j := openJournal(t)

	for _, day := range []int{7, 14, 21} {
		require.NoError(t, j.SaveWeekly(weekly.Performance{
			Symbol:    "EURUSD",
			WeekStart: time.Date(2025, 7, day, 0, 0, 0, 0, time.UTC),
			Strategy:  weekly.Standard11,
		}))
	}

	got, err := j.ListWeekly("EURUSD", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 21, got[0].WeekStart.Day())
	assert.Equal(t, 14, got[1].WeekStart.Day())
}

func TestQualityStore(t *testing.T) {
	j := openJournal(t)

	spec := spc.Spec{Target: 25, USL: 50, LSL: 0, Unit: "ms"}
	base := time.Date(2025, 7, 23, 12, 0, 0, 0, time.UTC)
	for i, v := range []float64{22, 28, 75} {
		m := spc.NewMeasurement(spc.ProcSignalLatency, v, spec, "corr-1")
		m.RecordedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, j.AppendMeasurement(m))
	}

	got, err := j.MeasurementsSince(spc.ProcSignalLatency, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 28.0, got[0].Value)
	assert.True(t, got[0].WithinSpec)
	assert.False(t, got[1].WithinSpec)
	assert.Equal(t, "corr-1", got[0].CorrelationID)

	names, err := j.ProcessNames()
	require.NoError(t, err)
	assert.Equal(t, []string{spc.ProcSignalLatency}, names)
}

func TestHealthSnapshots(t *testing.T) {
	j := openJournal(t)

	h := spc.Health{
		Level:        spc.HealthHealthy,
		CheckedAt:    time.Date(2025, 7, 23, 12, 0, 0, 0, time.UTC),
		SampleCount:  40,
		ErrorRate:    0.025,
		LatencyP50Ms: 21,
		LatencyP95Ms: 44,
		LatencyP99Ms: 49,
	}
	require.NoError(t, j.RecordHealth(h))

	got, err := j.ListHealthSince(h.CheckedAt.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, spc.HealthHealthy, got[0].Level)
	assert.Equal(t, 40, got[0].SampleCount)
	assert.Equal(t, 0.025, got[0].ErrorRate)
}
