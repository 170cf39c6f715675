// Package cli provides the command-line interface for off-highway.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/prasanth-sim/off-highway/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose        bool
	nonInteractive bool

	// Global config
	cfg config.Config

	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "off-highway",
	Short: "Clone, configure and build the off-highway repositories",
	Long: `off-highway orchestrates builds of the off-highway platform: the Angular
frontend and its backend services. It remembers your selections, branches
and build variants between runs, builds the selected repositories in
parallel, and writes a per-run tracker and summary you can inspect later.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		if nonInteractive {
			cfg.NonInteractive = true
		}

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		logCleanup = cleanup
		slog.SetDefault(logger)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt; resolve everything from flags and saved choices")
}
