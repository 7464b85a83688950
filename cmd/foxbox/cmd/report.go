package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/northfox/foxbox/journal"
	"github.com/northfox/foxbox/spc"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the quality report over the journaled measurements",
	Long: `Run capability analysis over the quality measurements in the journal
and print the aggregated report: per-process Cp/Cpk, sigma levels,
DPMO and prioritized improvement actions.`,
	RunE: runReport,
}

var reportHours float64

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&journalDBPath, "db", "d", "./foxbox.db", "path to SQLite journal DB")
	reportCmd.Flags().Float64Var(&reportHours, "hours", 24, "analysis window in hours")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log)

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	monitor := spc.NewMonitor(j, log, spc.WithPolicy(cfg.Quality.Policy))
	rep, err := monitor.Report(time.Duration(reportHours * float64(time.Hour)))
	if err != nil {
		return err
	}

	fmt.Printf("quality report, %.0fh window (generated %s)\n\n", rep.WindowHours, rep.GeneratedAt.Format(time.RFC3339))

	if len(rep.Processes) == 0 {
		fmt.Println("no processes with enough data to analyze")
	}
	for name, cap := range rep.Processes {
		fmt.Printf("%s\n", name)
		fmt.Printf("  samples %d, mean %.3f, sigma %.3f\n", cap.SampleSize, cap.Mean, cap.StdDev)
		fmt.Printf("  Cp %.2f  Cpk %.2f  sigma level %.2f  DPMO %.1f  [%s]\n",
			cap.Cp, cap.Cpk, cap.SigmaLevel, cap.DPMO, cap.QualityStatus)
	}
	for _, name := range rep.PendingAnalysis {
		fmt.Printf("%s\n  insufficient data\n", name)
	}

	fmt.Printf("\noverall: sigma %.2f, avg Cpk %.2f, meets six sigma: %v (%d of %d processes)\n",
		rep.OverallSigma, rep.AverageCpk, rep.MeetsSixSigma, rep.MeetingSixSigma, rep.TotalProcesses)
	fmt.Printf("system health: %s\n", rep.SystemHealth)

	if len(rep.Actions) > 0 {
		fmt.Println("\nimprovement actions:")
		for _, a := range rep.Actions {
			fmt.Printf("  [%s] %s: %s\n", a.Priority, a.Process, a.Detail)
		}
	}
	return nil
}
