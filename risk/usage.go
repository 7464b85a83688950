package risk

import (
	"sync"
	"time"

	"github.com/northfox/foxbox/weekly"
)

// Tracker maintains the per-account rolling daily/weekly risk-used
// aggregates. It replaces read-time rescans of historical assessments: each
// approved trade commits its risk fraction once, and the counters roll to
// zero when the day or the Monday-anchored week turns over. All methods are
// safe for concurrent use; read-then-commit around an approval decision must
// happen through the same Tracker.
type Tracker struct {
	mu        sync.Mutex
	loc       *time.Location
	now       func() time.Time
	day       time.Time
	weekStart time.Time
	daily     float64
	weeklyPct float64
}

type TrackerOption func(*Tracker)

func TrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(loc *time.Location, opts ...TrackerOption) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	t := &Tracker{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.mu.Lock()
	t.roll()
	t.mu.Unlock()
	return t
}

// roll must be called with mu held.
func (t *Tracker) roll() {
	now := t.now().In(t.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, t.loc)
	if !day.Equal(t.day) {
		t.day = day
		t.daily = 0
	}
	ws, _ := weekly.WeekBounds(now)
	if !ws.Equal(t.weekStart) {
		t.weekStart = ws
		t.weeklyPct = 0
	}
}

// Snapshot reports current usage, rolling the windows first.
func (t *Tracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll()
	return Usage{Daily: t.daily, Weekly: t.weeklyPct}
}

// Commit records an approved trade's risk fraction and returns the updated
// usage.
func (t *Tracker) Commit(riskPct float64) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll()
	t.daily += riskPct
	t.weeklyPct += riskPct
	return Usage{Daily: t.daily, Weekly: t.weeklyPct}
}

// Reserve re-checks the budget constraints against current usage and, when
// they still hold, commits the assessment's risk fraction under the same
// lock. Concurrent approvals built from the same stale snapshot lose the
// race here: the assessment flips to rejected with the violated budgets
// recorded, and nothing is committed.
func (t *Tracker) Reserve(a *Assessment, pol Policy) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll()

	daily := t.daily + a.RiskPct
	weeklyUsed := t.weeklyPct + a.RiskPct
	a.DailyRiskUsed = daily
	a.WeeklyRiskUsed = weeklyUsed
	a.DrawdownImpact = weeklyUsed

	if daily > pol.MaxDailyRisk {
		a.reject("daily risk %.2f%% would exceed the %.2f%% budget",
			100*daily, 100*pol.MaxDailyRisk)
	}
	if weeklyUsed > pol.MaxWeeklyRisk {
		a.reject("weekly risk %.2f%% would exceed the %.2f%% budget",
			100*weeklyUsed, 100*pol.MaxWeeklyRisk)
	}
	if weeklyUsed > pol.MaxDrawdown {
		a.reject("projected drawdown %.2f%% would exceed the %.2f%% limit",
			100*weeklyUsed, 100*pol.MaxDrawdown)
	}
	if !a.Approved {
		a.ApprovalReason = ""
		return false
	}

	t.daily = daily
	t.weeklyPct = weeklyUsed
	return true
}

// Seed restores usage counters recovered from persisted assessments, so a
// restart does not forget risk already committed today or this week. The
// arguments are fractions of balance.
func (t *Tracker) Seed(daily, weeklyPct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll()
	t.daily = daily
	t.weeklyPct = weeklyPct
}
