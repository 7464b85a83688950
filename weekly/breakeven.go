package weekly

import (
	"fmt"

	"github.com/northfox/foxbox/signal"
)

// rrTolerance absorbs rounding in broker-supplied prices when checking the
// 2.0 reward:risk requirement.
const rrTolerance = 0.01

// BreakEven is the derived break-even plan for an upgraded 1:2 trade. Pure
// function of its inputs, never persisted.
type BreakEven struct {
	Entry          float64 `json:"entry_price"`
	StopLoss       float64 `json:"stop_loss"`
	TakeProfit     float64 `json:"take_profit"`
	RiskDistance   float64 `json:"risk_distance"`
	RewardDistance float64 `json:"reward_distance"`
	RewardRisk     float64 `json:"reward_risk"`
	HalfwayTP      float64 `json:"halfway_tp"` // the 1:1 level where the stop moves to break-even
	BreakEvenPrice float64 `json:"break_even_price"`
	IsValid        bool    `json:"is_valid"`
	Reasoning      string  `json:"reasoning"`
}

// CalculateBreakEven derives the break-even plan. bufferPipsPrice is the
// configured buffer already converted to price terms (pips * pip size); it
// shifts the break-even stop slightly into profit to cover spread.
func CalculateBreakEven(entry, stopLoss, takeProfit float64, dir signal.Direction, bufferPrice float64) BreakEven {
	be := BreakEven{
		Entry:      entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}

	switch dir {
	case signal.Buy:
		be.RiskDistance = entry - stopLoss
		be.RewardDistance = takeProfit - entry
		be.HalfwayTP = entry + be.RiskDistance
		be.BreakEvenPrice = entry + bufferPrice
	case signal.Sell:
		be.RiskDistance = stopLoss - entry
		be.RewardDistance = entry - takeProfit
		be.HalfwayTP = entry - be.RiskDistance
		be.BreakEvenPrice = entry - bufferPrice
	default:
		be.Reasoning = fmt.Sprintf("unknown direction %q", dir)
		return be
	}

	if be.RiskDistance <= 0 {
		be.Reasoning = "stop loss is on the wrong side of entry"
		return be
	}
	if be.RewardDistance <= 0 {
		be.Reasoning = "take profit is on the wrong side of entry"
		return be
	}

	be.RewardRisk = be.RewardDistance / be.RiskDistance
	if be.RewardRisk < 2.0-rrTolerance {
		be.Reasoning = fmt.Sprintf("reward:risk %.2f below the 2.0 required for an upgraded trade", be.RewardRisk)
		return be
	}

	be.IsValid = true
	be.Reasoning = fmt.Sprintf("1:%.1f setup, stop moves to break-even at %.5f", be.RewardRisk, be.HalfwayTP)
	return be
}
