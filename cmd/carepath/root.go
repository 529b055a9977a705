package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/carepath/pkg/cli"
	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "carepath",
	Short: "Carepath - clinical pathway condition engine",
	Long: `Carepath evaluates the conditions of clinical-pathway modules against
simulated patients.

It provides:
  - Loading and validation of condition libraries (JSON or YAML)
  - Condition test suites with patient fixtures
  - One-off evaluations with Prometheus metrics
  - An evaluation audit trail in memory or SQLite`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code for its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var failure *cli.TestFailureError
		if !errors.As(err, &failure) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the config file, if any, and CAREPATH_ environment
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, &cli.InvalidInputError{Path: cfgFile, Err: err}
	}
	return cfg, nil
}

// newLogger builds the command logger. Logs go to stderr so that command
// output on stdout stays machine-readable.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	lc := cfg.Telemetry.Logging
	if verbose {
		lc.Level = "debug"
	}
	return logging.New(lc, os.Stderr)
}
