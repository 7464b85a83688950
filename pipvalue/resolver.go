// Package pipvalue converts a symbol, lot size and account currency into a
// monetary pip value using live contract data from the terminal.
//
// Resolution order: quote-currency match, base-currency match, cross-currency
// conversion (direct rate, inverse rate, USD triangulation), then the
// terminal's native tick value as a last resort. When market data cannot be
// reached the resolver reports ErrUnavailable; callers fall back to a
// conservative default instead of blocking the pipeline.
package pipvalue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/northfox/foxbox/broker"
	"github.com/northfox/foxbox/market"
)

// ErrUnavailable means no pip value could be derived from market data.
var ErrUnavailable = errors.New("pip value unavailable")

// Resolver caches computed pip values for its own lifetime. Prices move, so
// create a fresh resolver per request or session rather than sharing one.
type Resolver struct {
	broker  broker.Broker
	limiter *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger

	mu    sync.Mutex
	cache map[string]float64
}

func New(b broker.Broker, log zerolog.Logger) *Resolver {
	return &Resolver{
		broker:  b,
		limiter: rate.NewLimiter(rate.Every(time.Second/10), 10),
		timeout: 5 * time.Second,
		log:     log.With().Str("component", "pipvalue").Logger(),
		cache:   make(map[string]float64),
	}
}

// WithTimeout overrides the per-call terminal deadline.
func (r *Resolver) WithTimeout(d time.Duration) *Resolver {
	r.timeout = d
	return r
}

// Resolve returns the pip value for one position of lotSize lots, expressed
// in accountCurrency. Passing an empty accountCurrency resolves it from the
// account.
func (r *Resolver) Resolve(ctx context.Context, symbol string, lotSize float64, accountCurrency string) (float64, error) {
	if lotSize <= 0 {
		return 0, fmt.Errorf("lot size must be positive, got %v", lotSize)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if accountCurrency == "" {
		acct, err := r.account(ctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("account currency unavailable")
			return 0, ErrUnavailable
		}
		accountCurrency = acct.Currency
	}

	key := fmt.Sprintf("%s_%v_%s", symbol, lotSize, accountCurrency)
	r.mu.Lock()
	if v, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	pv, err := r.resolve(ctx, symbol, lotSize, accountCurrency)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.cache[key] = pv
	r.mu.Unlock()

	r.log.Debug().Str("symbol", symbol).Float64("pip_value", pv).
		Str("currency", accountCurrency).Msg("pip value resolved")
	return pv, nil
}

// ResolveBatch computes pip values for several symbols in one pass. Symbols
// that cannot be resolved are omitted from the result.
func (r *Resolver) ResolveBatch(ctx context.Context, symbols []string, lotSize float64) map[string]float64 {
	out := make(map[string]float64, len(symbols))

	acct, err := r.account(ctx)
	currency := "USD"
	if err == nil {
		currency = acct.Currency
	}

	for _, sym := range symbols {
		pv, err := r.Resolve(ctx, sym, lotSize, currency)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", sym).Msg("batch pip value skipped")
			continue
		}
		out[sym] = pv
	}
	return out
}

// ClearCache drops every cached value.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]float64)
}

func (r *Resolver) resolve(ctx context.Context, symbol string, lotSize float64, accountCurrency string) (float64, error) {
	info, err := r.symbolInfo(ctx, symbol)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("symbol info unavailable")
		return 0, ErrUnavailable
	}

	base := pipValueInQuote(info, lotSize)

	// Case 1: account currency is the quote currency. No market data needed
	// beyond the contract spec, so this path is fully deterministic.
	if accountCurrency == info.QuoteCurrency {
		return base, nil
	}

	// Case 2: account currency is the base currency; divide by current bid.
	if accountCurrency == info.BaseCurrency {
		tick, err := r.tick(ctx, symbol)
		if err != nil || tick.Bid <= 0 {
			return 0, ErrUnavailable
		}
		return base / tick.Bid, nil
	}

	// Case 3: cross currency.
	if fx, ok := r.conversionRate(ctx, info.QuoteCurrency, accountCurrency); ok {
		return base * fx, nil
	}

	// Fallback: terminal tick value.
	if info.TickValue > 0 {
		if info.Digits == 3 || info.Digits == 5 {
			return info.TickValue * 10 * lotSize, nil
		}
		return info.TickValue * lotSize, nil
	}

	return 0, ErrUnavailable
}

// conversionRate finds quote->account: direct pair, inverse pair, then a USD
// triangulation of the two.
func (r *Resolver) conversionRate(ctx context.Context, from, to string) (float64, bool) {
	if fx, ok := r.directRate(ctx, from, to); ok {
		return fx, true
	}
	if from != "USD" && to != "USD" {
		leg1, ok1 := r.directRate(ctx, from, "USD")
		leg2, ok2 := r.directRate(ctx, "USD", to)
		if ok1 && ok2 {
			return leg1 * leg2, true
		}
	}
	return 0, false
}

func (r *Resolver) directRate(ctx context.Context, from, to string) (float64, bool) {
	if tick, err := r.tick(ctx, from+to); err == nil && tick.Bid > 0 {
		return tick.Bid, true
	}
	if tick, err := r.tick(ctx, to+from); err == nil && tick.Bid > 0 {
		return 1.0 / tick.Bid, true
	}
	return 0, false
}

func pipValueInQuote(info market.SymbolInfo, lotSize float64) float64 {
	return info.PipSize() * info.ContractSize * lotSize
}

func (r *Resolver) account(ctx context.Context) (broker.Account, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return broker.Account{}, err
	}
	return r.broker.GetAccount(ctx)
}

func (r *Resolver) symbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return market.SymbolInfo{}, err
	}
	return r.broker.GetSymbolInfo(ctx, symbol)
}

func (r *Resolver) tick(ctx context.Context, symbol string) (market.Tick, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return market.Tick{}, err
	}
	return r.broker.GetTick(ctx, symbol)
}
