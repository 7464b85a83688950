package weekly

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// midweek is a Wednesday.
var midweek = time.Date(2025, 7, 23, 14, 0, 0, 0, time.UTC)

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return midweek })}, opts...)
	return NewManager(NewMemoryStore(), zerolog.Nop(), opts...)
}

func TestWeekBounds(t *testing.T) {
	t.Parallel()

	start, end := WeekBounds(midweek)
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Sunday, end.Weekday())
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())

	// A Monday maps to itself, a Sunday maps back to the prior Monday.
	monday := time.Date(2025, 7, 21, 3, 0, 0, 0, time.UTC)
	s, _ := WeekBounds(monday)
	assert.Equal(t, time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC), s)

	sunday := time.Date(2025, 7, 27, 22, 0, 0, 0, time.UTC)
	s, _ = WeekBounds(sunday)
	assert.Equal(t, time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC), s)
}

func TestUpgradeAtThreshold(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	trades := []struct {
		pnlPct  float64
		upgrade bool
	}{
		{3.5, false},
		{2.8, false},
		{4.2, true}, // cumulative 10.5%
		{1.5, true},
	}

	for _, tr := range trades {
		p, err := m.UpdatePerformance("EURUSD", tr.pnlPct, tr.pnlPct*100, true)
		require.NoError(t, err)
		assert.Equal(t, tr.upgrade, p.IsUpgraded)
	}

	p, err := m.Performance("EURUSD")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, p.TotalPnLPct, 1e-9)
	assert.Equal(t, 4, p.TradeCount)
	assert.Equal(t, 4, p.WinningTrades)
	assert.Equal(t, Upgraded12, p.Strategy)
	require.NotNil(t, p.UpgradeTime)
}

func TestUpgradeIsMonotonicWithinWeek(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	_, err := m.UpdatePerformance("GBPUSD", 12.5, 1250, true)
	require.NoError(t, err)

	// Heavy losses afterwards must not downgrade the strategy this week.
	p, err := m.UpdatePerformance("GBPUSD", -8.0, -800, false)
	require.NoError(t, err)
	assert.True(t, p.IsUpgraded)
	assert.Equal(t, Upgraded12, p.Strategy)
	assert.InDelta(t, 4.5, p.TotalPnLPct, 1e-9)
}

func TestWeekRolloverResetsState(t *testing.T) {
	t.Parallel()

	now := midweek
	store := NewMemoryStore()
	m := NewManager(store, zerolog.Nop(), WithClock(func() time.Time { return now }))

	_, err := m.UpdatePerformance("USDCAD", 11.0, 1100, true)
	require.NoError(t, err)

	// Next Monday: fresh record, standard strategy, zero counters.
	now = now.AddDate(0, 0, 5)
	p, err := m.Performance("USDCAD")
	require.NoError(t, err)
	assert.Equal(t, Standard11, p.Strategy)
	assert.False(t, p.IsUpgraded)
	assert.Zero(t, p.TotalPnLPct)
	assert.Zero(t, p.TradeCount)

	// The prior week's record is untouched.
	prevStart, _ := WeekBounds(midweek)
	prev, err := store.LoadWeekly("USDCAD", prevStart)
	require.NoError(t, err)
	assert.True(t, prev.IsUpgraded)
	assert.InDelta(t, 11.0, prev.TotalPnLPct, 1e-9)
}

func TestPastWeekLocksPruned(t *testing.T) {
	t.Parallel()

	now := midweek
	m := NewManager(NewMemoryStore(), zerolog.Nop(), WithClock(func() time.Time { return now }))

	for _, sym := range []string{"EURUSD", "GBPUSD", "USDJPY"} {
		_, err := m.UpdatePerformance(sym, 1.0, 100, true)
		require.NoError(t, err)
	}

	m.mu.Lock()
	assert.Len(t, m.locks, 3)
	m.mu.Unlock()

	// A new week drops the previous week's entries on first touch.
	now = now.AddDate(0, 0, 7)
	_, err := m.UpdatePerformance("EURUSD", 1.0, 100, true)
	require.NoError(t, err)

	m.mu.Lock()
	assert.Len(t, m.locks, 1)
	m.mu.Unlock()
}

func TestConcurrentUpdatesNeverLoseWrites(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := m.UpdatePerformance("EURUSD", 0.1, 10, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := m.Performance("EURUSD")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, p.TotalPnLPct, 1e-9)
	assert.Equal(t, writers, p.TradeCount)
}

func TestRecommendedStrategy(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	strat, ctx := m.RecommendedStrategy("USDJPY")
	assert.Equal(t, Standard11, strat)
	assert.False(t, ctx.IsUpgraded)

	_, err := m.UpdatePerformance("USDJPY", 12.5, 1250, true)
	require.NoError(t, err)

	strat, ctx = m.RecommendedStrategy("USDJPY")
	assert.Equal(t, Upgraded12, strat)
	assert.True(t, ctx.IsUpgraded)
	assert.InDelta(t, 12.5, ctx.PnLPct, 1e-9)
	assert.Equal(t, 1, ctx.TradeCount)
}

func TestStrategyForAnalysis(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	sc := m.StrategyForAnalysis("GBPJPY")
	assert.Equal(t, "1:1", sc.CurrentRRStrategy)
	assert.False(t, sc.BreakEvenLogicRequired)

	_, err := m.UpdatePerformance("GBPJPY", 11.8, 1180, true)
	require.NoError(t, err)

	sc = m.StrategyForAnalysis("GBPJPY")
	assert.Equal(t, "1:2", sc.CurrentRRStrategy)
	assert.True(t, sc.IsUpgradedStrategy)
	assert.True(t, sc.BreakEvenLogicRequired)
	assert.InDelta(t, 11.8, sc.WeeklyPerformancePct, 1e-9)
}

func TestCustomThresholdAndLocation(t *testing.T) {
	t.Parallel()

	hel, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)

	m := newManager(t, WithThreshold(5.0), WithLocation(hel))

	p, err := m.UpdatePerformance("EURUSD", 5.0, 500, true)
	require.NoError(t, err)
	assert.True(t, p.IsUpgraded)

	start, _ := m.CurrentWeekBounds()
	assert.Equal(t, hel.String(), start.Location().String())
}
