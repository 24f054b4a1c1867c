package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "piker",
	Short: "OHLC chart rendering backend",
	Long: `A chart rendering backend built with Go: incremental OHLC bar
geometry, two-tier render batch compilation, synchronized multi-panel
crosshairs and draggable price-level annotations.

Features:
• Append-only bar geometry cache with O(1) live-bar updates
• History/live render batches compiled incrementally per append
• Debounced crosshair with snap-to-index redraw suppression
• Pre-measured level and top-of-book labels
• NATS-fed live bars, InfluxDB history, Redis warm cache`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
