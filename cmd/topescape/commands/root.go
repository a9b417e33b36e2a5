package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/topescape/internal/indexconfig"
)

var (
	// Global flags
	profileFile string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "topescape",
	Short: "Bull-top escape index for the mainland A-share market",
	Long: `topescape builds a daily 0-100 crowding composite from index
turnover, amplitude, margin balances, search interest and valuation,
and backtests its warning signals against known market tops.

Usage:
  go run ./cmd/topescape [command]

Examples:
  go run ./cmd/topescape calc
  go run ./cmd/topescape backtest --step 0.2
  go run ./cmd/topescape fetch
  go run ./cmd/topescape serve`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&profileFile, "profile", "", "profile YAML (default: built-in profile)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadProfile resolves the profile: the --profile YAML when given, the
// built-in default otherwise.
func loadProfile() (*indexconfig.Config, error) {
	if profileFile == "" {
		return indexconfig.Default(), nil
	}
	cfg, _, err := indexconfig.Load(profileFile)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", profileFile, err)
	}
	return cfg, nil
}
