package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mta-display/subway-sign/config"
)

// validateCmd validates a config file without starting the sign.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a sign configuration file without starting the sign.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	stations, err := loadStations(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var resolver config.StationResolver
	if stations != nil {
		resolver = stations
	}

	cfg, err := config.Load(configFile, resolver)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Platforms:  %d\n", len(cfg.StationStops))
	fmt.Printf("  Routes:     %v\n", cfg.Routes)
	fmt.Printf("  Max trains: %d\n", cfg.Display.MaxTrains)
	fmt.Printf("  Intervals:  trains %ds, alerts %ds\n",
		cfg.Refresh.TrainsIntervalSec, cfg.Refresh.AlertsIntervalSec)
	fmt.Printf("  Source:     %s\n", cfg.Source.Mode)
	return nil
}
