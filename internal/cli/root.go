// Package cli implements the perdcomp command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
)

// version is overridden at build time with -ldflags "-X ...cli.version=".
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "perdcomp",
	Short:         "Recover and extract fields from PER/DCOMP documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

// newLogger writes JSON logs to stderr so stdout stays clean for output.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig is swapped in tests.
var loadConfig = common.LoadConfig
