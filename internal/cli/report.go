package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/prasanth-sim/off-highway/internal/executor"
	"github.com/prasanth-sim/off-highway/internal/report"
)

var (
	reportRunFlag  string
	reportListFlag bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the outcome of a previous run",
	Long: `Show the summary of the most recent run, a specific run, or list all
recorded runs.

Examples:
  off-highway report                       # latest run
  off-highway report --list                # all runs
  off-highway report --run 20260830-143000-ab12cd34`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportRunFlag, "run", "", "run label to show")
	reportCmd.Flags().BoolVar(&reportListFlag, "list", false, "list recorded runs")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	runs, err := listRuns(cfg.StateDir)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	if reportListFlag {
		for _, r := range runs {
			fmt.Println(r)
		}
		return nil
	}

	label := reportRunFlag
	if label == "" {
		label = runs[len(runs)-1] // labels sort chronologically
	}

	runDir := filepath.Join(cfg.StateDir, label)
	if _, err := os.Stat(runDir); err != nil {
		return fmt.Errorf("unknown run %q", label)
	}

	summaryPath := filepath.Join(runDir, "summary.txt")
	if data, err := os.ReadFile(summaryPath); err == nil {
		fmt.Print(string(data))
		return nil
	}

	// No summary (run crashed or is in flight): rebuild what we can from
	// the tracker.
	fmt.Fprintf(os.Stderr, "Warning: no summary for run %s, rebuilding from tracker\n", label)
	s := report.Finalize(filepath.Join(runDir, "tracker.csv"), label, time.Time{}, time.Time{}, nil)
	fmt.Print(renderSummary(s))
	return nil
}

// listRuns returns run labels under the state directory, oldest first.
func listRuns(stateDir string) ([]string, error) {
	entries, err := os.ReadDir(stateDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state directory: %w", err)
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// renderSummary renders a run summary for the terminal.
func renderSummary(s report.Summary) string {
	theme := defaultTheme

	out := fmt.Sprintf("\nRun %s\n", s.RunID)
	if !s.Started.IsZero() {
		out += fmt.Sprintf("  started:  %s\n", s.Started.Format(time.RFC3339))
		out += fmt.Sprintf("  finished: %s\n", s.Finished.Format(time.RFC3339))
	}
	for _, e := range s.Entries {
		tag := theme.successStyle().Render("[PASS]")
		if e.Status == executor.StatusFail {
			tag = theme.errorStyle().Render("[FAIL]")
		}
		out += fmt.Sprintf("  %s %s -> %s\n", tag, e.Job, e.LogFile)
	}

	succeeded, failed := s.Counts()
	out += fmt.Sprintf("\n%d succeeded, %d failed\n", succeeded, failed)
	return out
}
