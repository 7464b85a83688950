// Package broker defines the terminal capability boundary the pipeline core
// depends on. Every call may fail or time out; callers degrade to policy
// defaults rather than crash.
package broker

import (
	"context"

	"github.com/northfox/foxbox/market"
)

type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	GetSymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error)
	GetTick(ctx context.Context, symbol string) (market.Tick, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderFill, error)
}

type Account struct {
	ID         string
	Currency   string
	Balance    float64
	Equity     float64
	MarginUsed float64
	FreeMargin float64
}

type OrderRequest struct {
	Symbol     string
	Side       string // "BUY" or "SELL"
	Lots       float64
	StopLoss   *float64
	TakeProfit *float64
}

type OrderFill struct {
	Ticket       string  `json:"ticket"`
	Symbol       string  `json:"symbol"`
	FilledPrice  float64 `json:"filled_price"`
	FilledVolume float64 `json:"filled_volume"`
}
