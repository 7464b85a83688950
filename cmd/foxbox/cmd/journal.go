package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/northfox/foxbox/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the pipeline audit trail",
	Long: `Query and display journal records from the SQLite database.

Subcommands:
  signal     - Get a signal and its risk assessment by ID
  today      - List signals received today
  executions - List order executions for a day
  weekly     - List the weekly performance ledger for a symbol

Examples:
  foxbox journal signal <signal-id>
  foxbox journal today
  foxbox journal executions 2026-08-28
  foxbox journal weekly EURUSD`,
}

var journalSignalCmd = &cobra.Command{
	Use:   "signal <signal-id>",
	Short: "Get a signal and its risk assessment",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSignal,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List signals received today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalExecutionsCmd = &cobra.Command{
	Use:   "executions <YYYY-MM-DD>",
	Short: "List order executions for a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalExecutions,
}

var journalWeeklyCmd = &cobra.Command{
	Use:   "weekly <symbol>",
	Short: "List the weekly performance ledger for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalWeekly,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalSignalCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalExecutionsCmd)
	journalCmd.AddCommand(journalWeeklyCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./foxbox.db", "path to SQLite journal DB")
}

func openJournal() (*journal.SQLite, error) {
	return journal.NewSQLite(journalDBPath)
}

func runJournalSignal(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	sig, err := j.GetSignal(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("signal %s\n", sig.ID)
	fmt.Printf("  %s %s @ %.5f  sl %.5f  tp %.5f\n", sig.Direction, sig.Symbol, sig.EntryPrice, sig.StopLoss, sig.TakeProfit)
	fmt.Printf("  source %s, status %s, received %s\n", sig.Source, sig.Status, sig.ReceivedAt.Format(time.RFC3339))

	a, err := j.GetAssessment(sig.ID)
	if err != nil {
		fmt.Println("  no risk assessment recorded")
		return nil
	}
	if a.Approved {
		fmt.Printf("  assessment: approved %.2f lots risking %.2f (%.1f%% accuracy)\n",
			a.PositionSize, a.RiskAmount, a.CalculationAccuracy)
	} else {
		fmt.Println("  assessment: rejected")
		for _, reason := range a.RejectionReasons {
			fmt.Printf("    - %s\n", reason)
		}
	}
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return listSignals(start, start.AddDate(0, 0, 1))
}

func listSignals(start, end time.Time) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	signals, err := j.ListSignalsBetween(start, end)
	if err != nil {
		return err
	}
	if len(signals) == 0 {
		fmt.Println("no signals")
		return nil
	}
	for _, s := range signals {
		fmt.Printf("%s  %-7s %-4s %s @ %.5f  [%s]\n",
			s.ReceivedAt.Format("15:04:05"), s.Symbol, s.Direction, s.ID[:8], s.EntryPrice, s.Status)
	}
	return nil
}

func runJournalExecutions(cmd *cobra.Command, args []string) error {
	day, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", args[0], err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	execs, err := j.ListExecutionsBetween(day, day.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if len(execs) == 0 {
		fmt.Println("no executions")
		return nil
	}
	for _, e := range execs {
		fmt.Printf("%s  %-7s %-4s %.2f lots @ %.5f  slip %.1f pips  ticket %s\n",
			e.ExecutedAt.Format("15:04:05"), e.Symbol, e.Side, e.Lots, e.FillPrice, e.SlippagePips, e.Ticket)
	}
	return nil
}

func runJournalWeekly(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	weeks, err := j.ListWeekly(args[0], 12)
	if err != nil {
		return err
	}
	if len(weeks) == 0 {
		fmt.Println("no weekly records")
		return nil
	}
	for _, w := range weeks {
		upgraded := ""
		if w.IsUpgraded {
			upgraded = "  (upgraded)"
		}
		fmt.Printf("week of %s  %+.2f%%  %d trades (%d wins)  %s%s\n",
			w.WeekStart.Format("2006-01-02"), w.TotalPnLPct, w.TradeCount, w.WinningTrades, w.Strategy, upgraded)
	}
	return nil
}
