package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/northfox/foxbox/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "foxbox",
	Short: "A trading-signal risk and quality pipeline",
	Long: `Foxbox takes trading signals through risk assessment, position sizing
and execution while monitoring its own processing quality with
statistical process control.

It provides tools for:
  - Dynamic pip value resolution across account currencies
  - Risk-based position sizing with daily and weekly budgets
  - Weekly performance-driven R:R strategy management
  - Six Sigma capability analysis of pipeline latency and accuracy
  - A journaled audit trail of every signal, assessment and fill`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
}

// loadConfig layers .env, the optional config file and FOXBOX_* variables.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}

	cfg := config.Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
