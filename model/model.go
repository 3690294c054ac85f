package model

import (
	"time"
)

// PlaceholderMinutes marks a Train slot with no real arrival behind it.
const PlaceholderMinutes = 999

// Direction a train is traveling, derived from the stop id suffix.
type Direction int

const (
	Uptown   Direction = iota // stop ids ending in N
	Downtown                  // stop ids ending in S
)

func (d Direction) String() string {
	if d == Downtown {
		return "downtown"
	}
	return "uptown"
}

// Train is a single upcoming arrival.
type Train struct {
	Route       string
	Destination string
	Minutes     int
	Express     bool
	ArrivalTime time.Time
	Direction   Direction
	StopID      string
}

// PlaceholderTrain returns the empty slot shown when fewer trains are
// available than the display has rows for.
func PlaceholderTrain() Train {
	return Train{Destination: "---", Minutes: PlaceholderMinutes}
}

// IsPlaceholder reports whether t is a padding entry rather than a real
// arrival.
func (t Train) IsPlaceholder() bool {
	return t.Route == "" && t.Minutes == PlaceholderMinutes
}

// Alert is a service alert relevant to the configured routes.
type Alert struct {
	Text           string
	AffectedRoutes map[string]struct{}
	Priority       int
	ID             string
}

// NewAlert builds an Alert with an initialized route set.
func NewAlert(id, text string, priority int, routes ...string) Alert {
	a := Alert{
		Text:           text,
		AffectedRoutes: make(map[string]struct{}, len(routes)),
		Priority:       priority,
		ID:             id,
	}
	for _, r := range routes {
		a.AffectedRoutes[r] = struct{}{}
	}
	return a
}

// Key returns the stable identity used for cooldown and dedup tracking.
// Falls back to a text prefix when the upstream entity id is absent.
func (a Alert) Key() string {
	if a.ID != "" {
		return a.ID
	}
	if len(a.Text) > 100 {
		return a.Text[:100]
	}
	return a.Text
}

// DisplaySnapshot bundles everything a frame needs: trains ordered
// soonest-first, the current alert set, and the fetch wall-clock time.
type DisplaySnapshot struct {
	Trains    []Train
	Alerts    []Alert
	FetchedAt time.Time
}

// EmptySnapshot returns the snapshot used before the first fetch lands.
func EmptySnapshot() DisplaySnapshot {
	return DisplaySnapshot{}
}

// FirstTrain returns the soonest arrival across both directions, or a
// placeholder when no trains are known.
func (s *DisplaySnapshot) FirstTrain() Train {
	if len(s.Trains) == 0 {
		return PlaceholderTrain()
	}
	return s.Trains[0]
}

// CyclingTrains returns trains #2..#(count+1) for the bottom-row cycle,
// padded with placeholders so the result always has count entries.
func (s *DisplaySnapshot) CyclingTrains(count int) []Train {
	out := make([]Train, 0, count)
	for i := 1; i < len(s.Trains) && len(out) < count; i++ {
		out = append(out, s.Trains[i])
	}
	for len(out) < count {
		out = append(out, PlaceholderTrain())
	}
	return out
}

// StationStop is an (uptown, downtown) platform pair.
type StationStop struct {
	Uptown   string
	Downtown string
}

// StopIDsToStationStops groups direction-suffixed stop ids into
// platform pairs. Ids lacking a matching opposite platform are dropped.
func StopIDsToStationStops(stopIDs []string) []StationStop {
	type pair struct{ n, s string }
	platforms := map[string]*pair{}
	order := []string{}
	for _, id := range stopIDs {
		if len(id) < 2 {
			continue
		}
		base, dir := id[:len(id)-1], id[len(id)-1]
		p, ok := platforms[base]
		if !ok {
			p = &pair{}
			platforms[base] = p
			order = append(order, base)
		}
		switch dir {
		case 'N':
			p.n = id
		case 'S':
			p.s = id
		}
	}
	out := make([]StationStop, 0, len(order))
	for _, base := range order {
		p := platforms[base]
		if p.n != "" && p.s != "" {
			out = append(out, StationStop{Uptown: p.n, Downtown: p.s})
		}
	}
	return out
}
