package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfox/foxbox/broker"
	"github.com/northfox/foxbox/broker/sim"
	"github.com/northfox/foxbox/journal"
	"github.com/northfox/foxbox/market"
	"github.com/northfox/foxbox/pipvalue"
	"github.com/northfox/foxbox/risk"
	"github.com/northfox/foxbox/signal"
	"github.com/northfox/foxbox/spc"
	"github.com/northfox/foxbox/weekly"
)

type fixture struct {
	pipeline *Pipeline
	terminal *sim.Terminal
	journal  *journal.SQLite
	monitor  *spc.Monitor
	tracker  *risk.Tracker
	weekly   *weekly.Manager
}

func newFixture(t *testing.T, balance float64) *fixture {
	t.Helper()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	term := sim.New(broker.Account{ID: "test", Currency: "USD", Balance: balance, Equity: balance})
	term.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.1250, Ask: 1.1250})

	log := zerolog.Nop()
	f := &fixture{
		terminal: term,
		journal:  j,
		monitor:  spc.NewMonitor(j, log),
		tracker:  risk.NewTracker(time.UTC),
		weekly:   weekly.NewManager(j, log),
	}
	f.pipeline = New(term, pipvalue.New(term, log), risk.DefaultPolicy(), f.tracker, f.weekly, f.monitor, j, log)
	return f
}

func buySignal() signal.Signal {
	return signal.New("mt5", "EURUSD", signal.Buy, 1.1250, 1.1200, 1.1350)
}

func TestProcessApprovedEndToEnd(t *testing.T) {
	f := newFixture(t, 10000)
	sig := buySignal()

	res, err := f.pipeline.Process(context.Background(), sig)
	require.NoError(t, err)

	// 10000 USD at 1% risk over a 50 pip stop at 10 USD/pip sizes 0.2 lots.
	require.NotNil(t, res.Assessment)
	assert.True(t, res.Assessment.Approved)
	assert.InDelta(t, 0.2, res.Assessment.PositionSize, 1e-9)
	assert.InDelta(t, 100.0, res.Assessment.RiskAmount, 1e-9)
	assert.InDelta(t, 100.0, res.Assessment.CalculationAccuracy, 1e-9)
	assert.False(t, res.Assessment.DegradedData)

	assert.True(t, res.Executed)
	require.NotNil(t, res.Fill)
	assert.Equal(t, 0.2, res.Fill.FilledVolume)
	assert.Equal(t, signal.StageMonitored, res.LastStage())
	for _, st := range res.Stages {
		assert.True(t, st.OK, "stage %s failed: %s", st.Stage, st.Detail)
	}

	// Audit trail is complete.
	stored, err := f.journal.GetSignal(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, signal.StatusExecuted, stored.Status)

	a, err := f.journal.GetAssessment(sig.ID)
	require.NoError(t, err)
	assert.True(t, a.Approved)

	execs, err := f.journal.ListExecutionsBetween(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, sig.ID, execs[0].SignalID)

	// Risk usage committed once.
	assert.InDelta(t, 0.01, f.tracker.Snapshot().Daily, 1e-9)

	// Quality measurements emitted for every monitored process.
	st := f.monitor.Status()
	for _, proc := range []string{spc.ProcSignalLatency, spc.ProcRiskAccuracy, spc.ProcExecutionSlippage, spc.ProcExecutionLatency, spc.ProcEndToEndLatency} {
		assert.Contains(t, st.Processes, proc)
	}
	assert.Equal(t, 100.0, st.Processes[spc.ProcRiskAccuracy].LastValue)
}

func TestProcessStopsAtValidation(t *testing.T) {
	f := newFixture(t, 10000)

	sig := buySignal()
	sig.StopLoss = 1.1300 // wrong side of entry for a buy

	res, err := f.pipeline.Process(context.Background(), sig)
	require.NoError(t, err)

	assert.Equal(t, signal.StageValidated, res.LastStage())
	assert.False(t, res.Stages[len(res.Stages)-1].OK)
	assert.Nil(t, res.Assessment)
	assert.False(t, res.Executed)

	// Nothing was journaled for a signal that never passed validation.
	_, err = f.journal.GetSignal(sig.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestProcessRejectedByRisk(t *testing.T) {
	// 100 USD at 1% risk cannot fund even the minimum volume.
	f := newFixture(t, 100)
	sig := buySignal()

	res, err := f.pipeline.Process(context.Background(), sig)
	require.NoError(t, err)

	require.NotNil(t, res.Assessment)
	assert.False(t, res.Assessment.Approved)
	assert.NotEmpty(t, res.Assessment.RejectionReasons)
	assert.Equal(t, signal.StageRiskAssessed, res.LastStage())
	assert.False(t, res.Executed)

	stored, err := f.journal.GetSignal(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, signal.StatusRejected, stored.Status)

	// Rejected trades never consume risk budget.
	assert.Zero(t, f.tracker.Snapshot().Daily)
}

func TestProcessDegradedBroker(t *testing.T) {
	f := newFixture(t, 10000)
	f.terminal.Offline = true

	res, err := f.pipeline.Process(context.Background(), buySignal())
	require.NoError(t, err)

	// Policy defaults carry the assessment: 10000 USD balance, 10 USD/pip.
	require.NotNil(t, res.Assessment)
	assert.True(t, res.Assessment.Approved)
	assert.True(t, res.Assessment.DegradedData)
	assert.LessOrEqual(t, res.Assessment.CalculationAccuracy, 95.0)
	assert.InDelta(t, 0.2, res.Assessment.PositionSize, 1e-9)

	// Execution against an offline terminal fails but the run still
	// returns a full trace.
	assert.False(t, res.Executed)
	assert.Equal(t, signal.StageExecuted, res.LastStage())
	assert.False(t, res.Stages[len(res.Stages)-1].OK)
}

func TestProcessAttachesUpgradedStrategy(t *testing.T) {
	f := newFixture(t, 10000)

	// A 10.5% week flips EURUSD to the 1:2 template.
	_, err := f.weekly.UpdatePerformance("EURUSD", 10.5, 1050, true)
	require.NoError(t, err)

	res, err := f.pipeline.Process(context.Background(), buySignal())
	require.NoError(t, err)

	require.NotNil(t, res.Strategy)
	assert.True(t, res.Strategy.IsUpgradedStrategy)
	assert.Equal(t, "1:2", res.Strategy.CurrentRRStrategy)
	assert.True(t, res.Strategy.BreakEvenLogicRequired)

	require.NotNil(t, res.BreakEven)
	assert.True(t, res.BreakEven.IsValid)
	assert.InDelta(t, 1.1300, res.BreakEven.HalfwayTP, 1e-9)
	assert.InDelta(t, 2.0, res.BreakEven.RewardRisk, 1e-9)
	assert.InDelta(t, 1.1250, res.BreakEven.BreakEvenPrice, 1e-9)
}

func TestProcessBreakEvenBufferShiftsStop(t *testing.T) {
	f := newFixture(t, 10000)
	WithBreakEvenBuffer(2)(f.pipeline)

	_, err := f.weekly.UpdatePerformance("EURUSD", 10.5, 1050, true)
	require.NoError(t, err)

	res, err := f.pipeline.Process(context.Background(), buySignal())
	require.NoError(t, err)

	// 2 pips on EURUSD is 0.0002 in price terms.
	require.NotNil(t, res.BreakEven)
	assert.InDelta(t, 1.1252, res.BreakEven.BreakEvenPrice, 1e-9)
}

func TestProcessStandardStrategyOmitsBreakEven(t *testing.T) {
	f := newFixture(t, 10000)

	res, err := f.pipeline.Process(context.Background(), buySignal())
	require.NoError(t, err)

	require.NotNil(t, res.Strategy)
	assert.False(t, res.Strategy.IsUpgradedStrategy)
	assert.Equal(t, "1:1", res.Strategy.CurrentRRStrategy)
	assert.Nil(t, res.BreakEven)
}

func TestProcessUnknownSymbolRejected(t *testing.T) {
	f := newFixture(t, 10000)

	sig := signal.New("mt5", "EURNOK", signal.Buy, 12.0500, 12.0000, 12.1500)
	res, err := f.pipeline.Process(context.Background(), sig)
	require.NoError(t, err)

	require.NotNil(t, res.Assessment)
	assert.False(t, res.Assessment.Approved)
	assert.True(t, res.Assessment.DegradedData)
	require.NotEmpty(t, res.Assessment.RejectionReasons)
	assert.Contains(t, res.Assessment.RejectionReasons[0], "unknown symbol EURNOK")
}

// barrierBroker holds every GetAccount call until all expected runs have
// arrived, forcing concurrent assessments onto the same usage snapshot.
type barrierBroker struct {
	*sim.Terminal
	barrier *sync.WaitGroup
}

func (b *barrierBroker) GetAccount(ctx context.Context) (broker.Account, error) {
	b.barrier.Done()
	b.barrier.Wait()
	return b.Terminal.GetAccount(ctx)
}

func TestConcurrentTradesHoldDailyBudget(t *testing.T) {
	f := newFixture(t, 10000)

	const n = 4
	var barrier sync.WaitGroup
	barrier.Add(n)
	b := &barrierBroker{Terminal: f.terminal, barrier: &barrier}

	log := zerolog.Nop()
	p := New(b, pipvalue.New(b, log), risk.DefaultPolicy(), f.tracker, f.weekly, f.monitor, f.journal, log)

	results := make(chan Result, n)
	for i := 0; i < n; i++ {
		go func() {
			res, err := p.Process(context.Background(), buySignal())
			assert.NoError(t, err)
			results <- res
		}()
	}

	approved := 0
	for i := 0; i < n; i++ {
		res := <-results
		require.NotNil(t, res.Assessment)
		if res.Assessment.Approved {
			approved++
		} else {
			assert.NotEmpty(t, res.Assessment.RejectionReasons)
		}
	}

	// All four assessed against zero usage, but the reservation admits only
	// what the 2% daily budget holds.
	assert.Equal(t, 2, approved)
	assert.InDelta(t, 0.02, f.tracker.Snapshot().Daily, 1e-9)
}

func TestDailyBudgetStopsThirdTrade(t *testing.T) {
	f := newFixture(t, 10000)

	// Two 1% trades fill the 2% daily budget; the third must be rejected.
	for i := 0; i < 2; i++ {
		res, err := f.pipeline.Process(context.Background(), buySignal())
		require.NoError(t, err)
		require.True(t, res.Assessment.Approved, "trade %d", i)
	}

	res, err := f.pipeline.Process(context.Background(), buySignal())
	require.NoError(t, err)
	assert.False(t, res.Assessment.Approved)
	found := false
	for _, r := range res.Assessment.RejectionReasons {
		if len(r) > 0 {
			found = true
		}
	}
	assert.True(t, found)
}
