package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/northfox/foxbox/broker"
	"github.com/northfox/foxbox/broker/sim"
	"github.com/northfox/foxbox/journal"
	"github.com/northfox/foxbox/market"
	"github.com/northfox/foxbox/pipeline"
	"github.com/northfox/foxbox/pipvalue"
	"github.com/northfox/foxbox/risk"
	"github.com/northfox/foxbox/signal"
	"github.com/northfox/foxbox/spc"
	"github.com/northfox/foxbox/weekly"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run example pipeline scenarios",
	Long: `Run example scenarios against an in-memory terminal to learn how the
pipeline works.

Available demos:
  signal   - One signal end to end: validation, sizing, execution
  budget   - Daily risk budget filling up across several signals
  quality  - Capability analysis over a burst of latency measurements

Examples:
  foxbox demo signal
  foxbox demo budget`,
}

var demoSignalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Process one signal end to end",
	RunE:  runDemoSignal,
}

var demoBudgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show the daily risk budget rejecting the overflow trade",
	RunE:  runDemoBudget,
}

var demoQualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Run a capability analysis over sample latencies",
	RunE:  runDemoQuality,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.AddCommand(demoSignalCmd)
	demoCmd.AddCommand(demoBudgetCmd)
	demoCmd.AddCommand(demoQualityCmd)
}

func demoPipeline(cmd *cobra.Command) (*pipeline.Pipeline, *spc.Monitor, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log := newLogger(cfg.Log)

	dir, err := filepath.Abs(".")
	if err != nil {
		return nil, nil, nil, err
	}
	j, err := journal.NewSQLite(filepath.Join(dir, "foxbox-demo.db"))
	if err != nil {
		return nil, nil, nil, err
	}

	term := sim.New(broker.Account{ID: "DEMO-001", Currency: "USD", Balance: 10_000, Equity: 10_000})
	term.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.12500, Ask: 1.12515})
	term.SlippagePips = 0.3

	monitor := spc.NewMonitor(j, log)
	p := pipeline.New(term, pipvalue.New(term, log), cfg.Risk, risk.NewTracker(time.UTC),
		weekly.NewManager(j, log), monitor, j, log,
		pipeline.WithBreakEvenBuffer(cfg.Weekly.BreakEvenBufferPips))
	return p, monitor, func() { j.Close() }, nil
}

func runDemoSignal(cmd *cobra.Command, args []string) error {
	p, _, cleanup, err := demoPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("=== Signal Demo ===")
	fmt.Println()

	sig := signal.New("demo", "EURUSD", signal.Buy, 1.12500, 1.12000, 1.13500)
	res, err := p.Process(context.Background(), sig)
	if err != nil {
		return err
	}

	printResult(res)
	return nil
}

func runDemoBudget(cmd *cobra.Command, args []string) error {
	p, _, cleanup, err := demoPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("=== Risk Budget Demo ===")
	fmt.Println()

	for i := 1; i <= 3; i++ {
		sig := signal.New("demo", "EURUSD", signal.Buy, 1.12500, 1.12000, 1.13500)
		res, err := p.Process(context.Background(), sig)
		if err != nil {
			return err
		}

		fmt.Printf("--- trade %d ---\n", i)
		if res.Assessment.Approved {
			fmt.Printf("approved: %.2f lots, daily budget used %.2f%%\n",
				res.Assessment.PositionSize, 100*res.Assessment.DailyRiskUsed)
		} else {
			for _, reason := range res.Assessment.RejectionReasons {
				fmt.Printf("rejected: %s\n", reason)
			}
		}
		fmt.Println()
	}
	return nil
}

func runDemoQuality(cmd *cobra.Command, args []string) error {
	_, monitor, cleanup, err := demoPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("=== Quality Analysis Demo ===")
	fmt.Println()

	spec := pipeline.ProductionSpecs()[spc.ProcSignalLatency]
	latencies := []float64{22.1, 24.8, 23.5, 26.2, 25.1, 24.3, 27.0, 23.8, 25.6, 24.1}
	for _, ms := range latencies {
		if err := monitor.Record(spc.NewMeasurement(spc.ProcSignalLatency, ms, spec, "demo")); err != nil {
			return err
		}
	}

	cap, err := monitor.Capability(spc.ProcSignalLatency, spc.DefaultWindow)
	if err != nil {
		return err
	}

	fmt.Printf("process:      %s\n", cap.Process)
	fmt.Printf("samples:      %d\n", cap.SampleSize)
	fmt.Printf("mean / sigma: %.2f / %.2f ms\n", cap.Mean, cap.StdDev)
	fmt.Printf("Cp / Cpk:     %.2f / %.2f\n", cap.Cp, cap.Cpk)
	fmt.Printf("sigma level:  %.2f (DPMO %.1f)\n", cap.SigmaLevel, cap.DPMO)
	fmt.Printf("status:       %s\n", cap.QualityStatus)
	for _, rec := range cap.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
	return nil
}

func printResult(res pipeline.Result) {
	fmt.Printf("correlation id: %s\n", res.CorrelationID)
	for _, st := range res.Stages {
		mark := "ok"
		if !st.OK {
			mark = "FAILED"
		}
		fmt.Printf("  %-14s %-6s %7.2fms  %s\n", st.Stage, mark, st.DurationMs, st.Detail)
	}
	fmt.Println()

	if res.Assessment != nil {
		a := res.Assessment
		if a.Approved {
			fmt.Printf("approved: %.2f lots risking %.2f (%.2f pips stop, accuracy %.1f%%)\n",
				a.PositionSize, a.RiskAmount, a.StopPips, a.CalculationAccuracy)
		} else {
			fmt.Println("rejected:")
			for _, reason := range a.RejectionReasons {
				fmt.Printf("  - %s\n", reason)
			}
		}
	}
	if res.Fill != nil {
		fmt.Printf("filled: ticket %s at %.5f for %.2f lots\n",
			res.Fill.Ticket, res.Fill.FilledPrice, res.Fill.FilledVolume)
	}
	if res.Strategy != nil {
		fmt.Printf("strategy: %s (weekly %.2f%%)\n",
			res.Strategy.CurrentRRStrategy, res.Strategy.WeeklyPerformancePct)
	}
}
