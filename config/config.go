package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/northfox/foxbox/risk"
	"github.com/northfox/foxbox/spc"
	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Risk    risk.Policy   `json:"risk" yaml:"risk"`
	Weekly  WeeklyConfig  `json:"weekly" yaml:"weekly"`
	Quality QualityConfig `json:"quality" yaml:"quality"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig contains account fallbacks used when the broker is
// unreachable
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// WeeklyConfig contains the weekly R:R strategy parameters
type WeeklyConfig struct {
	ProfitThresholdPct  float64 `json:"profit_threshold_pct" yaml:"profit_threshold_pct"`
	Timezone            string  `json:"timezone" yaml:"timezone"`
	BreakEvenBufferPips float64 `json:"break_even_buffer_pips" yaml:"break_even_buffer_pips"`
}

// Location resolves the configured timezone, defaulting to UTC.
func (w WeeklyConfig) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(w.Timezone)
}

// QualityConfig contains the process monitoring parameters
type QualityConfig struct {
	Policy              spc.SixSigmaPolicy  `json:"policy" yaml:"policy"`
	Specs               map[string]spc.Spec `json:"specs,omitempty" yaml:"specs,omitempty"`
	HealthInterval      string              `json:"health_interval" yaml:"health_interval"` // cron expression
	AnalysisWindowHours float64             `json:"analysis_window_hours" yaml:"analysis_window_hours"`
	HealthWindowHours   float64             `json:"health_window_hours" yaml:"health_window_hours"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// ServerConfig contains the HTTP API parameters
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// Default returns a runnable configuration with conservative budgets.
func Default() *Config {
	return &Config{
		Account: AccountConfig{ID: "default", Currency: "USD", Balance: 10000},
		Risk:    risk.DefaultPolicy(),
		Weekly:  WeeklyConfig{ProfitThresholdPct: 10.0, Timezone: "UTC", BreakEvenBufferPips: 2},
		Quality: QualityConfig{
			Policy:              spc.DefaultSixSigmaPolicy(),
			HealthInterval:      "*/5 * * * *",
			AnalysisWindowHours: 24,
			HealthWindowHours:   1,
		},
		Journal: JournalConfig{DBPath: "foxbox.db"},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON), layered over
// defaults, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays FOXBOX_* environment variables onto the config. Invalid
// numeric values are ignored rather than fatal.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FOXBOX_DB_PATH"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("FOXBOX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FOXBOX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FOXBOX_TIMEZONE"); v != "" {
		c.Weekly.Timezone = v
	}
	if v := os.Getenv("FOXBOX_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Account.Balance = f
		}
	}
	if v := os.Getenv("FOXBOX_MAX_RISK_PER_TRADE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Risk.MaxRiskPerTrade = f
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if c.Weekly.ProfitThresholdPct <= 0 {
		return fmt.Errorf("weekly.profit_threshold_pct must be positive")
	}
	if _, err := c.Weekly.Location(); err != nil {
		return fmt.Errorf("weekly.timezone: %w", err)
	}
	if c.Weekly.BreakEvenBufferPips < 0 {
		return fmt.Errorf("weekly.break_even_buffer_pips must not be negative")
	}
	for name, spec := range c.Quality.Specs {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("quality.specs.%s: %w", name, err)
		}
	}
	if c.Quality.AnalysisWindowHours <= 0 {
		return fmt.Errorf("quality.analysis_window_hours must be positive")
	}
	if c.Quality.HealthWindowHours <= 0 {
		return fmt.Errorf("quality.health_window_hours must be positive")
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	return nil
}
