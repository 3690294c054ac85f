package mta

import "testing"

func testRepository() *StationRepository {
	return NewStationRepository([]Station{
		{
			Name:    "Astoria Blvd",
			StopIDs: []string{"R03N", "R03S"},
			Routes:  []string{"N", "W"},
			Borough: "Queens",
		},
		{
			Name:    "86th Street",
			StopIDs: []string{"R44N", "R44S"},
			Routes:  []string{"R"},
			Borough: "Brooklyn",
		},
		{
			Name:    "Pelham Bay Park",
			StopIDs: []string{"601N", "601S"},
			Routes:  []string{"6"},
			Borough: "Bronx",
		},
	})
}

func TestStationNameForStopID(t *testing.T) {
	r := testRepository()
	for _, stopID := range []string{"601", "601N", "601S"} {
		name, ok := r.StationNameForStopID(stopID)
		if !ok {
			t.Errorf("stop %s not found", stopID)
			continue
		}
		if name != "Pelham Bay Park" {
			t.Errorf("stop %s resolved to %q", stopID, name)
		}
	}
	if _, ok := r.StationNameForStopID("999N"); ok {
		t.Error("unknown stop id should not resolve")
	}
}

func TestStopIDsForStation_CaseInsensitive(t *testing.T) {
	r := testRepository()
	ids := r.StopIDsForStation("astoria blvd")
	if len(ids) != 2 || ids[0] != "R03N" {
		t.Errorf("unexpected stop ids: %v", ids)
	}
}

func TestStopIDsForStation_NormalizedMatch(t *testing.T) {
	r := testRepository()
	// "86 St" normalizes to the same form as "86th Street".
	ids := r.StopIDsForStation("86 St")
	if len(ids) != 2 || ids[0] != "R44N" {
		t.Errorf("normalized lookup failed: %v", ids)
	}
}

func TestRoutesForStation(t *testing.T) {
	r := testRepository()
	routes := r.RoutesForStation("Pelham Bay Park")
	if len(routes) != 1 || routes[0] != "6" {
		t.Errorf("unexpected routes: %v", routes)
	}
	if got := r.RoutesForStation("Nowhere"); got != nil {
		t.Errorf("unknown station should return nil, got %v", got)
	}
}

func TestNormalizeStationName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"86th Street", "86 st"},
		{"Astoria Boulevard", "astoria boulevard"},
		{"Times Sq - 42nd Street", "times sq-42 st"},
		{"5th   Avenue", "5 av"},
		{"Union Square", "union sq"},
	}
	for _, tc := range cases {
		if got := normalizeStationName(tc.in); got != tc.want {
			t.Errorf("normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
