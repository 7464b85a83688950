// Package sim is an in-memory terminal used by tests and the demo command.
// Fills happen at the current ask/bid plus a configurable slippage.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/northfox/foxbox/broker"
	"github.com/northfox/foxbox/market"
	"github.com/northfox/foxbox/pkg/id"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrNoTick        = errors.New("no tick for symbol")
)

type Terminal struct {
	mu      sync.Mutex
	acct    broker.Account
	symbols map[string]market.SymbolInfo
	ticks   *market.TickStore

	// SlippagePips is added against the order on every fill.
	SlippagePips float64

	// Offline makes every call fail, for degrade-path tests.
	Offline bool
}

func New(acct broker.Account) *Terminal {
	return &Terminal{
		acct:    acct,
		symbols: market.Instruments,
		ticks:   market.NewTickStore(),
	}
}

// SetSymbol overrides or adds a symbol specification.
func (t *Terminal) SetSymbol(info market.SymbolInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.symbols == nil {
		t.symbols = map[string]market.SymbolInfo{}
	}
	// copy-on-write so the shared Instruments map is never mutated
	m := make(map[string]market.SymbolInfo, len(t.symbols)+1)
	for k, v := range t.symbols {
		m[k] = v
	}
	m[info.Name] = info
	t.symbols = m
}

func (t *Terminal) SetTick(tick market.Tick) {
	if tick.Time.IsZero() {
		tick.Time = time.Now().UTC()
	}
	t.ticks.Set(tick)
}

func (t *Terminal) GetAccount(ctx context.Context) (broker.Account, error) {
	if t.Offline {
		return broker.Account{}, context.DeadlineExceeded
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acct, nil
}

func (t *Terminal) GetSymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	if t.Offline {
		return market.SymbolInfo{}, context.DeadlineExceeded
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.symbols[symbol]
	if !ok {
		return market.SymbolInfo{}, ErrUnknownSymbol
	}
	return info, nil
}

func (t *Terminal) GetTick(ctx context.Context, symbol string) (market.Tick, error) {
	if t.Offline {
		return market.Tick{}, context.DeadlineExceeded
	}
	tick, err := t.ticks.Get(symbol)
	if err != nil {
		return market.Tick{}, ErrNoTick
	}
	return tick, nil
}

// PlaceOrder fills a market order at the touch price shifted by SlippagePips.
func (t *Terminal) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderFill, error) {
	if t.Offline {
		return broker.OrderFill{}, context.DeadlineExceeded
	}
	if req.Lots <= 0 {
		return broker.OrderFill{}, errors.New("lots must be positive")
	}

	info, err := t.GetSymbolInfo(ctx, req.Symbol)
	if err != nil {
		return broker.OrderFill{}, err
	}
	tick, err := t.GetTick(ctx, req.Symbol)
	if err != nil {
		return broker.OrderFill{}, err
	}

	slip := t.SlippagePips * info.PipSize()
	price := tick.Ask + slip
	if req.Side == "SELL" {
		price = tick.Bid - slip
	}

	return broker.OrderFill{
		Ticket:       id.New(),
		Symbol:       req.Symbol,
		FilledPrice:  price,
		FilledVolume: info.ClampVolume(req.Lots),
	}, nil
}

var _ broker.Broker = (*Terminal)(nil)
