package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/northfox/foxbox/api"
	"github.com/northfox/foxbox/broker"
	"github.com/northfox/foxbox/broker/sim"
	"github.com/northfox/foxbox/journal"
	"github.com/northfox/foxbox/market"
	"github.com/northfox/foxbox/pipeline"
	"github.com/northfox/foxbox/pipvalue"
	"github.com/northfox/foxbox/risk"
	"github.com/northfox/foxbox/sched"
	"github.com/northfox/foxbox/spc"
	"github.com/northfox/foxbox/weekly"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signal pipeline with its HTTP API",
	Long: `Start the full pipeline: signal intake over HTTP, risk assessment,
execution against the simulated terminal, quality monitoring and
scheduled health snapshots.

The journal, risk budgets and quality targets come from the config
file (--config) overlaid with FOXBOX_* environment variables.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log)

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	term := sim.New(broker.Account{
		ID:       cfg.Account.ID,
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
		Equity:   cfg.Account.Balance,
	})
	seedTicks(term)

	loc, err := cfg.Weekly.Location()
	if err != nil {
		return err
	}

	monitor := spc.NewMonitor(j, log, spc.WithPolicy(cfg.Quality.Policy))
	tracker := risk.NewTracker(loc)
	if err := seedTracker(tracker, j, loc); err != nil {
		return err
	}
	wm := weekly.NewManager(j, log,
		weekly.WithThreshold(cfg.Weekly.ProfitThresholdPct),
		weekly.WithLocation(loc),
	)

	specs := pipeline.ProductionSpecs()
	for name, spec := range cfg.Quality.Specs {
		specs[name] = spec
	}

	p := pipeline.New(term, pipvalue.New(term, log), cfg.Risk, tracker, wm, monitor, j, log,
		pipeline.WithSpecs(specs),
		pipeline.WithBreakEvenBuffer(cfg.Weekly.BreakEvenBufferPips))

	window := time.Duration(cfg.Quality.AnalysisWindowHours * float64(time.Hour))
	healthWindow := time.Duration(cfg.Quality.HealthWindowHours * float64(time.Hour))

	scheduler := sched.New(monitor, j, healthWindow, window, log)
	if err := scheduler.Register(cfg.Quality.HealthInterval, "0 * * * *"); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(p, monitor, wm, j, specs, window, healthWindow, log)
	fmt.Printf("foxbox listening on %s (journal: %s)\n", cfg.Server.Addr, cfg.Journal.DBPath)
	return server.Run(cfg.Server.Addr)
}

// seedTracker restores today's and this week's committed risk from the
// journal so a restart does not reopen already-spent budgets.
func seedTracker(tracker *risk.Tracker, j *journal.SQLite, loc *time.Location) error {
	now := time.Now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	weekStart, _ := weekly.WeekBounds(now)

	daily, err := j.ApprovedRiskPctSince(dayStart)
	if err != nil {
		return fmt.Errorf("restore daily risk usage: %w", err)
	}
	weeklyPct, err := j.ApprovedRiskPctSince(weekStart)
	if err != nil {
		return fmt.Errorf("restore weekly risk usage: %w", err)
	}
	tracker.Seed(daily, weeklyPct)
	return nil
}

// seedTicks primes the simulated terminal with reference prices so pip
// value resolution works from the first request.
func seedTicks(term *sim.Terminal) {
	for symbol, price := range map[string][2]float64{
		"EURUSD": {1.08490, 1.08505},
		"GBPUSD": {1.27100, 1.27118},
		"USDJPY": {149.850, 149.868},
		"GBPJPY": {190.440, 190.470},
		"USDCAD": {1.36000, 1.36018},
	} {
		term.SetTick(market.Tick{Symbol: symbol, Bid: price[0], Ask: price[1]})
	}
}
