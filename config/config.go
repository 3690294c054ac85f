package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mta-display/subway-sign/model"
)

// StationResolver resolves a station name to its platform stop ids and
// served routes. Implemented by mta.StationRepository.
type StationResolver interface {
	StopIDsForStation(name string) []string
	RoutesForStation(name string) []string
}

// rawConfig mirrors the YAML document. The station section supports
// three formats: station_name (resolved through a StationResolver),
// an explicit stations list, and the legacy single platform pair.
type rawConfig struct {
	Station rawStation    `yaml:"station"`
	Display DisplayConfig `yaml:"display" validate:"required"`
	Refresh RefreshConfig `yaml:"refresh"`
	Source  SourceConfig  `yaml:"source"`
}

type rawStation struct {
	StationName    string           `yaml:"station_name"`
	Routes         []string         `yaml:"routes"`
	Stations       []rawStationPair `yaml:"stations"`
	UptownStopID   string           `yaml:"uptown_stop_id"`
	DowntownStopID string           `yaml:"downtown_stop_id"`
}

type rawStationPair struct {
	Uptown   string `yaml:"uptown" validate:"required"`
	Downtown string `yaml:"downtown" validate:"required"`
}

// DisplayConfig contains display settings.
type DisplayConfig struct {
	Brightness float64 `yaml:"brightness" validate:"gte=0,lte=1"`
	MaxTrains  int     `yaml:"max_trains" validate:"gte=1,lte=20"`
	ShowAlerts bool    `yaml:"show_alerts"`
}

// RefreshConfig contains fetch intervals in seconds.
type RefreshConfig struct {
	TrainsIntervalSec int `yaml:"trains_interval" validate:"gte=0"`
	AlertsIntervalSec int `yaml:"alerts_interval" validate:"gte=0"`
}

// SourceConfig selects the data source implementation. Mode is "live"
// (default) or "synthetic"; Scenario names a synthetic scenario.
type SourceConfig struct {
	Mode       string `yaml:"mode" validate:"omitempty,oneof=live synthetic"`
	Scenario   string `yaml:"scenario"`
	StationsDB string `yaml:"stations_db"`
}

// Config is the resolved, immutable application configuration.
type Config struct {
	StationStops []model.StationStop
	Routes       []string
	Display      DisplayConfig
	Refresh      RefreshConfig
	Source       SourceConfig
}

const (
	defaultTrainsIntervalSec = 20
	defaultAlertsIntervalSec = 60
)

// Load reads, parses and validates the configuration file. The resolver
// is consulted only for the station_name format and may be nil when
// explicit stop ids are configured.
func Load(path string, resolver StationResolver) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, resolver)
}

// Parse builds a Config from raw YAML bytes.
func Parse(data []byte, resolver StationResolver) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	v := validator.New()
	if err := v.Struct(raw); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	for _, p := range raw.Station.Stations {
		if err := v.Struct(p); err != nil {
			return nil, fmt.Errorf("validate station pair: %w", err)
		}
	}

	stops, routes, err := resolveStation(raw.Station, resolver)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StationStops: stops,
		Routes:       routes,
		Display:      raw.Display,
		Refresh:      raw.Refresh,
		Source:       raw.Source,
	}
	if cfg.Refresh.TrainsIntervalSec == 0 {
		cfg.Refresh.TrainsIntervalSec = defaultTrainsIntervalSec
	}
	if cfg.Refresh.AlertsIntervalSec == 0 {
		cfg.Refresh.AlertsIntervalSec = defaultAlertsIntervalSec
	}
	if cfg.Source.Mode == "" {
		cfg.Source.Mode = "live"
	}

	if len(cfg.Routes) == 0 {
		return nil, fmt.Errorf("validate config: routes cannot be empty")
	}
	if len(cfg.StationStops) == 0 {
		return nil, fmt.Errorf("validate config: station stops cannot be empty")
	}
	return cfg, nil
}

// resolveStation maps the raw station section to platform pairs and a
// route list, according to whichever of the three formats is present.
func resolveStation(st rawStation, resolver StationResolver) ([]model.StationStop, []string, error) {
	switch {
	case st.StationName != "":
		if resolver == nil {
			return nil, nil, fmt.Errorf("station_name %q requires a station database", st.StationName)
		}
		stopIDs := resolver.StopIDsForStation(st.StationName)
		if len(stopIDs) == 0 {
			return nil, nil, fmt.Errorf("station %q not found in database", st.StationName)
		}
		routes := st.Routes
		if len(routes) == 0 {
			routes = resolver.RoutesForStation(st.StationName)
		}
		return model.StopIDsToStationStops(stopIDs), routes, nil

	case len(st.Stations) > 0:
		stops := make([]model.StationStop, 0, len(st.Stations))
		for _, p := range st.Stations {
			stops = append(stops, model.StationStop{Uptown: p.Uptown, Downtown: p.Downtown})
		}
		return stops, st.Routes, nil

	case st.UptownStopID != "" && st.DowntownStopID != "":
		return []model.StationStop{{Uptown: st.UptownStopID, Downtown: st.DowntownStopID}}, st.Routes, nil
	}
	return nil, nil, fmt.Errorf("config missing station configuration (station_name, stations, or uptown_stop_id/downtown_stop_id)")
}

// AllStopIDs returns every configured platform stop id, uptown first
// within each pair.
func (c *Config) AllStopIDs() []string {
	out := make([]string, 0, 2*len(c.StationStops))
	for _, p := range c.StationStops {
		out = append(out, p.Uptown, p.Downtown)
	}
	return out
}

// RouteSet returns the configured routes as a set.
func (c *Config) RouteSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Routes))
	for _, r := range c.Routes {
		set[r] = struct{}{}
	}
	return set
}
