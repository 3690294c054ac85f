package mta

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mta-display/subway-sign/model"
)

// syntheticDestinations maps each route to its uptown and downtown
// terminals, used to fabricate plausible headsigns.
var syntheticDestinations = map[string][2]string{
	"1": {"Van Cortlandt Park-242 St", "South Ferry"},
	"2": {"Wakefield-241 St", "Flatbush Av-Brooklyn College"},
	"3": {"Harlem-148 St", "New Lots Av"},
	"4": {"Woodlawn", "Crown Hts-Utica Av"},
	"5": {"Eastchester-Dyre Av", "Flatbush Av-Brooklyn College"},
	"6": {"Pelham Bay Park", "Brooklyn Bridge-City Hall"},
	"7": {"Flushing-Main St", "34 St-Hudson Yards"},
	"A": {"Inwood-207 St", "Far Rockaway"},
	"C": {"168 St", "Euclid Av"},
	"E": {"Jamaica Center", "World Trade Center"},
	"B": {"Bedford Park Blvd", "Brighton Beach"},
	"D": {"Norwood-205 St", "Coney Island-Stillwell Av"},
	"F": {"Jamaica-179 St", "Coney Island-Stillwell Av"},
	"M": {"Forest Hills-71 Av", "Middle Village-Metropolitan Av"},
	"G": {"Court Sq", "Church Av"},
	"J": {"Jamaica Center", "Broad St"},
	"Z": {"Jamaica Center", "Broad St"},
	"L": {"8 Av", "Canarsie-Rockaway Pkwy"},
	"N": {"Astoria-Ditmars Blvd", "Coney Island-Stillwell Av"},
	"Q": {"96 St", "Coney Island-Stillwell Av"},
	"R": {"Forest Hills-71 Av", "Bay Ridge-95 St"},
	"W": {"Astoria-Ditmars Blvd", "Whitehall St-South Ferry"},
}

var syntheticAlertTemplates = []string{
	"[%[1]s] Delays: Signal problems at %[2]s",
	"[%[1]s] Service change: No %[1]s trains between %[2]s and %[3]s",
	"[%[1]s] Local service only in both directions",
	"[%[1]s] Expect 15-20 minute delays due to earlier incident",
	"[%[1]s] Planned work: Service suspended %[2]s to %[3]s",
	"Good service on the [%[1]s]",
	"[%[1]s] Running with delays due to crew availability",
	"[%[1]s] Trains running every 10 minutes",
	"[%[1]s] Skip-stop service in effect",
	"[%[1]s] Some trains are running express",
}

var syntheticStations = []string{
	"Times Sq-42 St", "34 St-Herald Sq", "14 St-Union Sq", "Grand Central",
	"Penn Station", "Chambers St", "Fulton St", "Brooklyn Bridge",
	"Atlantic Av-Barclays Ctr", "Jay St-MetroTech", "Court Sq",
	"Jackson Hts-Roosevelt Av", "Flushing-Main St", "125 St",
	"149 St-Grand Concourse",
}

// scenarioConfig shapes the synthetic data for one named scenario.
type scenarioConfig struct {
	trainsMin, trainsMax int
	minutesMin           int
	minutesMax           int

	forceConcurrentZero bool
	concurrentZeroProb  float64
	zeroMin, zeroMax    int

	alertProb            float64
	alertsMin, alertsMax int

	failureProb float64
}

var scenarios = map[string]scenarioConfig{
	"rush_hour": {
		trainsMin: 8, trainsMax: 15,
		minutesMin: 1, minutesMax: 20,
		concurrentZeroProb: 0.4, zeroMin: 2, zeroMax: 4,
		alertProb: 0.5, alertsMin: 1, alertsMax: 4,
	},
	"concurrent_arrivals": {
		trainsMin: 4, trainsMax: 8,
		minutesMin: 1, minutesMax: 20,
		forceConcurrentZero: true, zeroMin: 3, zeroMax: 6,
		alertProb: 0.2, alertsMin: 0, alertsMax: 2,
	},
	"alert_storm": {
		trainsMin: 4, trainsMax: 8,
		minutesMin: 1, minutesMax: 20,
		alertProb: 1.0, alertsMin: 3, alertsMax: 8,
	},
	"network_chaos": {
		trainsMin: 5, trainsMax: 10,
		minutesMin: 1, minutesMax: 20,
		failureProb: 0.3,
		alertProb:   0.3, alertsMin: 0, alertsMax: 2,
	},
	"rapid_state_change": {
		trainsMin: 6, trainsMax: 12,
		minutesMin: 0, minutesMax: 5,
		alertProb: 0.3, alertsMin: 0, alertsMax: 2,
	},
	"normal": {
		trainsMin: 5, trainsMax: 10,
		minutesMin: 1, minutesMax: 20,
		alertProb: 0.3, alertsMin: 0, alertsMax: 2,
	},
}

// SyntheticClient generates scenario-driven data for load and behavior
// testing without touching the network. It implements Source.
type SyntheticClient struct {
	scenario string
	cfg      scenarioConfig
	rng      *rand.Rand

	callCount    int
	cachedAlerts []model.Alert

	now func() time.Time
}

// NewSyntheticClient creates a synthetic source for a named scenario.
// An empty scenario selects "normal"; unknown scenarios are an error.
func NewSyntheticClient(scenario string) (*SyntheticClient, error) {
	if scenario == "" {
		scenario = "normal"
	}
	cfg, ok := scenarios[scenario]
	if !ok {
		return nil, fmt.Errorf("unknown synthetic scenario %q", scenario)
	}
	slog.Info("synthetic source enabled", "scenario", scenario)
	return &SyntheticClient{
		scenario: scenario,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}, nil
}

// FetchTrains generates synthetic arrivals for the configured scenario.
func (c *SyntheticClient) FetchTrains(_ context.Context, stopIDs []string, routes map[string]struct{}, maxCount int) []model.Train {
	c.callCount++

	if c.cfg.failureProb > 0 && c.rng.Float64() < c.cfg.failureProb {
		slog.Debug("synthetic network failure", "call", c.callCount)
		return nil
	}

	routeList := make([]string, 0, len(routes))
	for r := range routes {
		routeList = append(routeList, r)
	}
	sort.Strings(routeList)
	if len(routeList) == 0 {
		return nil
	}

	n := c.randBetween(c.cfg.trainsMin, c.cfg.trainsMax)
	if n > maxCount {
		n = maxCount
	}

	var trains []model.Train
	if c.cfg.forceConcurrentZero {
		zero := c.randBetween(c.cfg.zeroMin, c.cfg.zeroMax)
		if zero > n {
			zero = n
		}
		for i := 0; i < zero; i++ {
			trains = append(trains, c.generateTrain(routeList, stopIDs, true))
		}
	} else if c.cfg.concurrentZeroProb > 0 && c.rng.Float64() < c.cfg.concurrentZeroProb {
		zero := c.randBetween(c.cfg.zeroMin, c.cfg.zeroMax)
		for i := 0; i < zero; i++ {
			trains = append(trains, c.generateTrain(routeList, stopIDs, true))
		}
	}
	for len(trains) < n {
		trains = append(trains, c.generateTrain(routeList, stopIDs, false))
	}

	sort.Slice(trains, func(i, j int) bool { return trains[i].ArrivalTime.Before(trains[j].ArrivalTime) })
	if len(trains) > maxCount {
		trains = trains[:maxCount]
	}
	return trains
}

// FetchAlerts generates synthetic alerts, holding the previous batch
// steady between regeneration rolls so alerts persist across polls.
func (c *SyntheticClient) FetchAlerts(_ context.Context, routes map[string]struct{}) []model.Alert {
	if c.rng.Float64() > c.cfg.alertProb {
		return c.cachedAlerts
	}

	routeList := make([]string, 0, len(routes))
	for r := range routes {
		routeList = append(routeList, r)
	}
	sort.Strings(routeList)
	if len(routeList) == 0 {
		return nil
	}

	n := c.randBetween(c.cfg.alertsMin, c.cfg.alertsMax)
	var alerts []model.Alert
	seen := map[string]struct{}{}
	for i := 0; i < n; i++ {
		a := c.generateAlert(routeList)
		if _, dup := seen[a.Text]; dup {
			continue
		}
		seen[a.Text] = struct{}{}
		alerts = append(alerts, a)
	}
	c.cachedAlerts = alerts
	return alerts
}

func (c *SyntheticClient) generateTrain(routes, stopIDs []string, forceZero bool) model.Train {
	route := routes[c.rng.Intn(len(routes))]
	dir := model.Uptown
	if c.rng.Intn(2) == 1 {
		dir = model.Downtown
	}

	dest := "Unknown"
	if terms, ok := syntheticDestinations[route]; ok {
		if dir == model.Uptown {
			dest = terms[0]
		} else {
			dest = terms[1]
		}
	}

	minutes := 0
	if !forceZero {
		minutes = c.randBetween(c.cfg.minutesMin, c.cfg.minutesMax)
	}

	express := IsExpressCapable(route) && c.rng.Float64() < 0.3

	stopID := ""
	suffix := "N"
	if dir == model.Downtown {
		suffix = "S"
	}
	var matching []string
	for _, s := range stopIDs {
		if strings.HasSuffix(s, suffix) {
			matching = append(matching, s)
		}
	}
	if len(matching) > 0 {
		stopID = matching[c.rng.Intn(len(matching))]
	} else if len(stopIDs) > 0 {
		stopID = stopIDs[c.rng.Intn(len(stopIDs))]
	}

	return model.Train{
		Route:       route,
		Destination: dest,
		Minutes:     minutes,
		Express:     express,
		ArrivalTime: c.now().Add(time.Duration(minutes) * time.Minute),
		Direction:   dir,
		StopID:      stopID,
	}
}

func (c *SyntheticClient) generateAlert(routes []string) model.Alert {
	template := syntheticAlertTemplates[c.rng.Intn(len(syntheticAlertTemplates))]
	route := routes[c.rng.Intn(len(routes))]
	station := syntheticStations[c.rng.Intn(len(syntheticStations))]
	station2 := station
	for station2 == station {
		station2 = syntheticStations[c.rng.Intn(len(syntheticStations))]
	}

	text := fmt.Sprintf(template, route, station, station2)

	affected := map[string]struct{}{route: {}}
	if !strings.Contains(text, "Good service") && c.rng.Float64() < 0.3 {
		for _, r := range routes {
			affected[r] = struct{}{}
			if len(affected) >= 3 {
				break
			}
		}
	}

	priority := 2
	switch {
	case strings.Contains(text, "Delays") || strings.Contains(text, "suspended"):
		priority = 1
	case strings.Contains(text, "Good service"):
		priority = 3
	}

	return model.Alert{
		Text:           text,
		AffectedRoutes: affected,
		Priority:       priority,
		ID:             "synthetic_" + uuid.NewString(),
	}
}

func (c *SyntheticClient) randBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.rng.Intn(hi-lo+1)
}
