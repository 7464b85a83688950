package risk

import "fmt"

// Policy carries the account risk limits plus the conservative defaults used
// when the terminal cannot be reached. Fractional fields are of balance
// (0.01 = 1%).
type Policy struct {
	MaxRiskPerTrade float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	MaxDailyRisk    float64 `json:"max_daily_risk" yaml:"max_daily_risk"`
	MaxWeeklyRisk   float64 `json:"max_weekly_risk" yaml:"max_weekly_risk"`
	MaxDrawdown     float64 `json:"max_drawdown" yaml:"max_drawdown"`

	// Fallbacks when account or market data is unavailable.
	DefaultBalance  float64 `json:"default_balance" yaml:"default_balance"`
	DefaultCurrency string  `json:"default_currency" yaml:"default_currency"`
	DefaultPipValue float64 `json:"default_pip_value" yaml:"default_pip_value"` // per lot, account currency
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRiskPerTrade: 0.01,
		MaxDailyRisk:    0.02,
		MaxWeeklyRisk:   0.05,
		MaxDrawdown:     0.10,
		DefaultBalance:  10000,
		DefaultCurrency: "USD",
		DefaultPipValue: 10,
	}
}

func (p Policy) Validate() error {
	if p.MaxRiskPerTrade <= 0 || p.MaxRiskPerTrade > 1 {
		return fmt.Errorf("max_risk_per_trade must be in (0, 1], got %v", p.MaxRiskPerTrade)
	}
	if p.MaxDailyRisk < p.MaxRiskPerTrade {
		return fmt.Errorf("max_daily_risk %v below max_risk_per_trade %v", p.MaxDailyRisk, p.MaxRiskPerTrade)
	}
	if p.MaxWeeklyRisk < p.MaxDailyRisk {
		return fmt.Errorf("max_weekly_risk %v below max_daily_risk %v", p.MaxWeeklyRisk, p.MaxDailyRisk)
	}
	if p.MaxDrawdown <= 0 {
		return fmt.Errorf("max_drawdown must be positive, got %v", p.MaxDrawdown)
	}
	if p.DefaultBalance <= 0 {
		return fmt.Errorf("default_balance must be positive, got %v", p.DefaultBalance)
	}
	return nil
}
