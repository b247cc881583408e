package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "stockpulse",
	Short: "Event-driven stock analysis pipeline",
	Long: `StockPulse analyzes financial instruments through a three-stage
pipeline: deterministic report generation, reasoning-backend consultation
and completion publishing.

Usage:
  go run ./cmd/stockpulse [command]

Examples:
  go run ./cmd/stockpulse run
  go run ./cmd/stockpulse analyze AAPL
  go run ./cmd/stockpulse analyze AAPL --purchase-price 172.40
  go run ./cmd/stockpulse test-db`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
