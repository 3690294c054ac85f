package mta

// FeedBaseURL is the base URL for the MTA GTFS-RT trip-update feeds.
// Each feed partition appends a suffix ("", "-ace", ...).
const FeedBaseURL = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs"

// AlertsURL is the consolidated subway service-alerts feed.
const AlertsURL = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/camsys%2Fsubway-alerts"

// alertsPartition keys backoff and error-log state for the alerts feed.
const alertsPartition = "alerts"

// FeedIDForRoute returns the feed partition suffix serving a route.
// Unknown routes return ok=false and are silently ignored by callers.
func FeedIDForRoute(route string) (string, bool) {
	switch route {
	case "1", "2", "3", "4", "5", "6", "GS":
		return "", true
	case "A", "C", "E", "H", "FS":
		return "-ace", true
	case "B", "D", "F", "M":
		return "-bdfm", true
	case "G":
		return "-g", true
	case "J", "Z":
		return "-jz", true
	case "N", "Q", "R", "W":
		return "-nqrw", true
	case "L":
		return "-l", true
	case "7":
		return "-7", true
	case "SI", "SIR":
		return "-si", true
	}
	return "", false
}

// FeedIDsForRoutes returns the deduplicated partition suffixes needed
// for a set of routes, in first-seen order.
func FeedIDsForRoutes(routes []string) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, route := range routes {
		id, ok := FeedIDForRoute(route)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// FeedURLForID returns the full fetch URL for a partition suffix.
func FeedURLForID(id string) string {
	return FeedBaseURL + id
}

// expressCapable lists the routes that run express variants; the
// trip-id X suffix only marks express service on these.
var expressCapable = map[string]struct{}{
	"2": {}, "3": {}, "4": {}, "5": {}, "6": {}, "7": {},
	"A": {}, "D": {}, "E": {},
}

// IsExpressCapable reports whether a route runs express variants.
func IsExpressCapable(route string) bool {
	_, ok := expressCapable[route]
	return ok
}
