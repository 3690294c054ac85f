package mta

import (
	"context"
	"fmt"

	"github.com/mta-display/subway-sign/config"
	"github.com/mta-display/subway-sign/model"
)

// Source is the capability contract for realtime transit data. Both
// operations are total: they always return a (possibly empty or stale)
// result and never an error. Degraded upstream conditions surface as
// stale data, not failures.
type Source interface {
	// FetchTrains returns upcoming arrivals for the given platform stop
	// ids and routes, soonest first, at most maxCount entries.
	FetchTrains(ctx context.Context, stopIDs []string, routes map[string]struct{}, maxCount int) []model.Train

	// FetchAlerts returns service alerts whose affected routes
	// intersect the given set.
	FetchAlerts(ctx context.Context, routes map[string]struct{}) []model.Alert
}

// NewSource selects a Source implementation from explicit configuration.
// The synthetic source is only ever chosen by config, never by ambient
// process environment.
func NewSource(cfg config.SourceConfig, stations *StationRepository) (Source, error) {
	switch cfg.Mode {
	case "", "live":
		return NewClient(stations), nil
	case "synthetic":
		return NewSyntheticClient(cfg.Scenario)
	}
	return nil, fmt.Errorf("unknown source mode %q", cfg.Mode)
}
