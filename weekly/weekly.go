// Package weekly tracks a rolling per-symbol weekly P&L ledger and decides
// which risk:reward strategy a symbol trades under. A symbol starts every
// week on the standard 1:1 template; once its cumulative weekly profit
// reaches the configured threshold it is upgraded to 1:2 with break-even
// management, and stays upgraded for the rest of that week no matter what
// later trades do.
package weekly

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

type Strategy string

const (
	Standard11 Strategy = "STANDARD_1_1"
	Upgraded12 Strategy = "UPGRADED_1_2"
)

// Ratio renders the strategy as the R:R template the decision stage consumes.
func (s Strategy) Ratio() string {
	if s == Upgraded12 {
		return "1:2"
	}
	return "1:1"
}

// DefaultProfitThreshold is the cumulative weekly profit percentage at which
// a symbol's strategy upgrades.
const DefaultProfitThreshold = 10.0

// Performance is the per-(symbol, week) ledger entry. Once the week rolls
// over a fresh record is created; the prior week's record is never touched.
type Performance struct {
	Symbol         string
	WeekStart      time.Time
	TotalPnLPct    float64
	TotalPnLAmount float64
	TradeCount     int
	WinningTrades  int
	Strategy       Strategy
	IsUpgraded     bool
	UpgradeTime    *time.Time
}

// ErrNotFound is returned by stores when no ledger entry exists yet.
var ErrNotFound = errors.New("weekly performance not found")

// Store persists ledger entries keyed by (symbol, week start).
type Store interface {
	LoadWeekly(symbol string, weekStart time.Time) (Performance, error)
	SaveWeekly(p Performance) error
}

// WeekBounds returns the Monday 00:00:00 start and Sunday 23:59:59 end of
// the week containing t, in t's location.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	days := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, -days)
	end := start.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	return start, end
}

type Manager struct {
	store     Store
	loc       *time.Location
	threshold float64
	now       func() time.Time
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Manager)

// WithThreshold overrides the upgrade threshold percentage.
func WithThreshold(pct float64) Option {
	return func(m *Manager) { m.threshold = pct }
}

// WithLocation sets the timezone that defines week boundaries. Defaults to
// UTC so rollover is deterministic across deployments.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) { m.loc = loc }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		loc:       time.UTC,
		threshold: DefaultProfitThreshold,
		now:       time.Now,
		log:       log.With().Str("component", "weekly").Logger(),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// keyLock serializes mutation per (symbol, week) so concurrent trade closes
// never race on the cumulative counters or the upgrade compare-and-set.
// Callers only ever lock the current week, so entries from earlier weeks are
// pruned the first time a new week's lock is created.
func (m *Manager) keyLock(symbol string, weekStart time.Time) *sync.Mutex {
	wk := weekStart.Format("2006-01-02")
	key := symbol + "@" + wk
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		for k := range m.locks {
			if !strings.HasSuffix(k, "@"+wk) {
				delete(m.locks, k)
			}
		}
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func (m *Manager) currentWeekStart() time.Time {
	start, _ := WeekBounds(m.now().In(m.loc))
	return start
}

// CurrentWeekBounds reports the active week window in the configured zone.
func (m *Manager) CurrentWeekBounds() (time.Time, time.Time) {
	return WeekBounds(m.now().In(m.loc))
}

func (m *Manager) load(symbol string, weekStart time.Time) (Performance, error) {
	p, err := m.store.LoadWeekly(symbol, weekStart)
	if errors.Is(err, ErrNotFound) {
		return Performance{
			Symbol:    symbol,
			WeekStart: weekStart,
			Strategy:  Standard11,
		}, nil
	}
	return p, err
}

// UpdatePerformance applies one closed trade to the symbol's weekly ledger
// and runs the upgrade transition. Store write failures are retried with the
// ledger re-read and re-applied, so callers never see a "try again" outcome.
func (m *Manager) UpdatePerformance(symbol string, pnlPct, pnlAmount float64, winning bool) (Performance, error) {
	weekStart := m.currentWeekStart()

	l := m.keyLock(symbol, weekStart)
	l.Lock()
	defer l.Unlock()

	var out Performance
	apply := func() error {
		p, err := m.load(symbol, weekStart)
		if err != nil {
			return err
		}

		p.TotalPnLPct += pnlPct
		p.TotalPnLAmount += pnlAmount
		p.TradeCount++
		if winning {
			p.WinningTrades++
		}

		if !p.IsUpgraded && p.TotalPnLPct >= m.threshold {
			now := m.now().In(m.loc)
			p.Strategy = Upgraded12
			p.IsUpgraded = true
			p.UpgradeTime = &now
			m.log.Info().Str("symbol", symbol).
				Float64("weekly_pnl_pct", p.TotalPnLPct).
				Msg("strategy upgraded to 1:2 with break-even")
		}

		if err := m.store.SaveWeekly(p); err != nil {
			return err
		}
		out = p
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(apply, bo); err != nil {
		return Performance{}, fmt.Errorf("update weekly performance %s: %w", symbol, err)
	}
	return out, nil
}

// Performance returns the symbol's ledger for the current week without
// mutating it. A symbol with no trades yet reports a zeroed standard entry.
func (m *Manager) Performance(symbol string) (Performance, error) {
	weekStart := m.currentWeekStart()
	l := m.keyLock(symbol, weekStart)
	l.Lock()
	defer l.Unlock()
	return m.load(symbol, weekStart)
}

// Context explains a strategy recommendation.
type Context struct {
	PnLPct     float64
	TradeCount int
	IsUpgraded bool
}

// RecommendedStrategy is the read-time decision hook: which R:R template a
// new trade on this symbol should target right now. Store failures fall back
// to the standard strategy rather than blocking the pipeline.
func (m *Manager) RecommendedStrategy(symbol string) (Strategy, Context) {
	p, err := m.Performance(symbol)
	if err != nil {
		m.log.Warn().Err(err).Str("symbol", symbol).Msg("weekly state unavailable, defaulting to 1:1")
		return Standard11, Context{}
	}
	return p.Strategy, Context{
		PnLPct:     p.TotalPnLPct,
		TradeCount: p.TradeCount,
		IsUpgraded: p.IsUpgraded,
	}
}

// StrategyContext is the serialized strategy summary handed to the
// downstream decision/analysis stage.
type StrategyContext struct {
	Symbol                 string  `json:"symbol"`
	CurrentRRStrategy      string  `json:"current_rr_strategy"`
	IsUpgradedStrategy     bool    `json:"is_upgraded_strategy"`
	WeeklyPerformancePct   float64 `json:"weekly_performance_pct"`
	WeeklyTradeCount       int     `json:"weekly_trade_count"`
	ProfitThresholdPct     float64 `json:"profit_threshold_pct"`
	StrategyDescription    string  `json:"strategy_description"`
	BreakEvenLogicRequired bool    `json:"break_even_logic_required"`
}

// StrategyForAnalysis packages the current strategy state for the decision
// stage's prompt. It never fails; unavailable state degrades to standard.
func (m *Manager) StrategyForAnalysis(symbol string) StrategyContext {
	strat, ctx := m.RecommendedStrategy(symbol)

	desc := "Standard 1:1 risk:reward, full position closed at take-profit"
	if strat == Upgraded12 {
		desc = "Upgraded 1:2 risk:reward, stop moves to break-even at the 1:1 level"
	}

	return StrategyContext{
		Symbol:                 symbol,
		CurrentRRStrategy:      strat.Ratio(),
		IsUpgradedStrategy:     ctx.IsUpgraded,
		WeeklyPerformancePct:   ctx.PnLPct,
		WeeklyTradeCount:       ctx.TradeCount,
		ProfitThresholdPct:     m.threshold,
		StrategyDescription:    desc,
		BreakEvenLogicRequired: strat == Upgraded12,
	}
}
