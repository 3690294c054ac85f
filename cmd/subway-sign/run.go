package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mta-display/subway-sign/config"
	"github.com/mta-display/subway-sign/mta"
	"github.com/mta-display/subway-sign/orchestrator"
	"github.com/mta-display/subway-sign/pipe"
	"github.com/mta-display/subway-sign/poller"
	"github.com/mta-display/subway-sign/render"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sign",
	Long: `Run the sign: fetch arrivals and alerts on their configured
intervals, watch the config file for changes, and render frames to
stdout until interrupted (Ctrl+C) or SIGTERM.`,
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = runCmd.MarkFlagRequired("config")
}

func runSign(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	stations, err := loadStations(configFile)
	if err != nil {
		return err
	}
	var resolver config.StationResolver
	if stations != nil {
		resolver = stations
	}

	store, err := config.NewStore(configFile, resolver)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := store.Current()
	slog.Info("config loaded",
		"platforms", len(cfg.StationStops),
		"routes", cfg.Routes,
		"source", cfg.Source.Mode,
	)

	source, err := mta.NewSource(cfg.Source, stations)
	if err != nil {
		return err
	}

	snapshots := pipe.New()
	fetcher := poller.New(store, source, snapshots)
	renderer := render.NewTextRenderer(os.Stdout)
	orch := orchestrator.New(store, snapshots, renderer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fetcher.Run(ctx) })
	g.Go(func() error { return orch.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}

// loadStations reads just the stations_db path out of the config file
// and loads the station database if one is configured. This runs before
// full config parsing because resolving a station_name needs the
// database.
func loadStations(configFile string) (*mta.StationRepository, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var peek struct {
		Source struct {
			StationsDB string `yaml:"stations_db"`
		} `yaml:"source"`
	}
	if err := yaml.Unmarshal(data, &peek); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if peek.Source.StationsDB == "" {
		return nil, nil
	}
	stations, err := mta.LoadStationRepository(peek.Source.StationsDB)
	if err != nil {
		return nil, err
	}
	return stations, nil
}
