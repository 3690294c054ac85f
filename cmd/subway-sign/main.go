// Package main is the entry point for the subway-sign CLI.
//
// Usage:
//
//	subway-sign run -c config.yml       # Run the sign
//	subway-sign validate -c config.yml  # Validate configuration
//	subway-sign version                 # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "subway-sign",
	Short: "NYC subway platform countdown sign",
	Long: `subway-sign drives a platform countdown display from the MTA
GTFS-Realtime feeds: upcoming arrivals for a configured station on the
top row, cycling trains or scrolling service alerts on the bottom row.

Quick start:
  1. Create a config file (config.yml) naming your station and routes
  2. Run: subway-sign run -c config.yml`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("subway-sign %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
