package mta

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Station is one record in the station database.
type Station struct {
	Name    string   `json:"name"`
	StopIDs []string `json:"stop_ids"`
	Routes  []string `json:"routes"`
	Borough string   `json:"borough"`
}

// StationRepository maps stop ids to station names and station names to
// platforms and routes. It is constructed once and passed by reference
// to whichever components need lookups; there is no package-level
// database.
type StationRepository struct {
	stations     []Station
	byName       map[string]int // normalized name -> index
	stopIDToName map[string]string
}

// NewStationRepository builds a repository from station records.
func NewStationRepository(stations []Station) *StationRepository {
	r := &StationRepository{
		stations:     stations,
		byName:       make(map[string]int, 2*len(stations)),
		stopIDToName: make(map[string]string),
	}
	for i, st := range stations {
		lower := strings.ToLower(st.Name)
		if _, ok := r.byName[lower]; !ok {
			r.byName[lower] = i
		}
		norm := normalizeStationName(st.Name)
		if _, ok := r.byName[norm]; !ok {
			r.byName[norm] = i
		}
		for _, sid := range st.StopIDs {
			base := strings.TrimRight(sid, "NS")
			if _, ok := r.stopIDToName[base]; !ok {
				r.stopIDToName[base] = st.Name
			}
		}
	}
	return r
}

// LoadStationRepository reads a JSON station database file.
func LoadStationRepository(path string) (*StationRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read station database: %w", err)
	}
	var stations []Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("parse station database: %w", err)
	}
	return NewStationRepository(stations), nil
}

// StationNameForStopID returns the station name for a platform stop id
// (with or without the N/S direction suffix).
func (r *StationRepository) StationNameForStopID(stopID string) (string, bool) {
	name, ok := r.stopIDToName[strings.TrimRight(stopID, "NS")]
	return name, ok
}

// StopIDsForStation returns the platform stop ids for a station name,
// matching case-insensitively and then by normalized form.
func (r *StationRepository) StopIDsForStation(name string) []string {
	if st, ok := r.lookup(name); ok {
		return st.StopIDs
	}
	return nil
}

// RoutesForStation returns the routes serving a station name.
func (r *StationRepository) RoutesForStation(name string) []string {
	if st, ok := r.lookup(name); ok {
		return st.Routes
	}
	return nil
}

func (r *StationRepository) lookup(name string) (Station, bool) {
	if i, ok := r.byName[strings.ToLower(name)]; ok {
		return r.stations[i], true
	}
	if i, ok := r.byName[normalizeStationName(name)]; ok {
		return r.stations[i], true
	}
	return Station{}, false
}

var (
	ordinalRe = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
	dashRe    = regexp.MustCompile(`\s*-\s*`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// normalizeStationName canonicalizes a station name for matching:
// lowercase, ordinal suffixes stripped, spacing standardized, common
// abbreviations applied.
func normalizeStationName(name string) string {
	name = strings.ToLower(name)
	name = ordinalRe.ReplaceAllString(name, "$1")
	name = dashRe.ReplaceAllString(name, "-")
	name = spaceRe.ReplaceAllString(name, " ")
	name = strings.ReplaceAll(name, "street", "st")
	name = strings.ReplaceAll(name, "avenue", "av")
	name = strings.ReplaceAll(name, "square", "sq")
	return strings.TrimSpace(name)
}
