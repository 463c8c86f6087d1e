package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "forestwatch",
		Short: "Deforestation monitoring dashboard",
		Long: `ForestWatch serves a scroll-driven deforestation dashboard.

The server owns the page's element tree and streams animation
patches to a thin browser client over WebSocket:

  • Scroll-triggered reveals and parallax
  • Animated stat counters with grouped digits
  • Region hotspot map data and alert feed
  • Satellite image upload and stubbed analysis`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
