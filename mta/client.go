package mta

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"

	"github.com/mta-display/subway-sign/model"
)

const (
	// cacheTTL bounds how long a partition's last parse is retained.
	cacheTTL = 300 * time.Second
	// errorLogInterval rate-limits error logs per source during
	// sustained outages.
	errorLogInterval = 300 * time.Second
	// backoffBase and backoffCap bound the retry delay after
	// consecutive failures: min(cap, base * 2^(n-1)).
	backoffBase = 15 * time.Second
	backoffCap  = 300 * time.Second

	httpTimeout   = 12 * time.Second
	fetchWorkers  = 8
	feedCacheSize = 16
)

// feedCacheEntry is the last-known state of one feed partition.
type feedCacheEntry struct {
	trains        []model.Train
	feedTimestamp uint64
	fetchedAt     time.Time
}

// backoffState tracks consecutive failures for one partition.
type backoffState struct {
	failures   int
	retryAfter time.Time
}

// Client fetches live MTA GTFS-RT data with per-partition caching,
// change detection and exponential backoff. Neither FetchTrains nor
// FetchAlerts ever returns an error: every failure path resolves to
// cached (possibly empty) data.
//
// A Client is owned by the fetch loop and is not safe for concurrent
// use; the internal worker pool only parallelizes the network calls.
type Client struct {
	httpClient *http.Client
	stations   *StationRepository

	baseURL   string
	alertsURL string

	feedCache   gcache.Cache
	alertsCache []model.Alert
	alertsETag  string

	backoff      map[string]*backoffState
	lastErrorLog map[string]time.Time

	workers int
	now     func() time.Time
}

// NewClient creates a live feed client. stations may be nil, in which
// case destinations fall back to "Unknown".
func NewClient(stations *StationRepository) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		stations:   stations,
		baseURL:    FeedBaseURL,
		alertsURL:  AlertsURL,
		feedCache: gcache.New(feedCacheSize).
			LRU().
			Expiration(cacheTTL).
			Build(),
		backoff:      map[string]*backoffState{},
		lastErrorLog: map[string]time.Time{},
		workers:      fetchWorkers,
		now:          time.Now,
	}
}

// FetchTrains fetches upcoming arrivals for the given stop ids and
// routes. Feed partitions are fetched concurrently through a bounded
// worker pool; partitions inside their backoff window are served from
// cache without a network call.
func (c *Client) FetchTrains(ctx context.Context, stopIDs []string, routes map[string]struct{}, maxCount int) []model.Train {
	routeList := make([]string, 0, len(routes))
	for r := range routes {
		routeList = append(routeList, r)
	}
	sort.Strings(routeList)
	feedIDs := FeedIDsForRoutes(routeList)

	stopIDSet := make(map[string]struct{}, len(stopIDs))
	for _, id := range stopIDs {
		stopIDSet[id] = struct{}{}
	}

	var all []model.Train
	var due []string
	for _, id := range feedIDs {
		if c.shouldFetch(id) {
			due = append(due, id)
		} else {
			all = append(all, c.cachedTrains(id)...)
		}
	}

	now := c.now()
	for res := range c.fetchFeeds(ctx, due) {
		if res.err != nil {
			c.logError("feed"+res.feedID, fmt.Sprintf("fetch %s: %v", feedLabel(res.feedID), res.err))
			c.recordFailure(res.feedID)
			all = append(all, c.cachedTrains(res.feedID)...)
			continue
		}
		ts := res.msg.GetHeader().GetTimestamp()
		if entry := c.cacheEntry(res.feedID); entry != nil && ts > 0 && ts == entry.feedTimestamp {
			// Upstream unchanged since last parse: cache hit, skip
			// reparsing. The entry keeps its original fetch time.
			c.recordSuccess(res.feedID)
			all = append(all, entry.trains...)
			continue
		}
		trains := c.parseTrains(res.msg, stopIDSet, routes, now)
		c.recordSuccess(res.feedID)
		_ = c.feedCache.Set(res.feedID, &feedCacheEntry{
			trains:        trains,
			feedTimestamp: ts,
			fetchedAt:     now,
		})
		all = append(all, trains...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ArrivalTime.Before(all[j].ArrivalTime) })
	all = dedupTrains(all)
	if len(all) > maxCount {
		all = all[:maxCount]
	}
	return all
}

// FetchAlerts fetches service alerts via a conditional request. An
// unchanged upstream (HTTP 304) short-circuits to cached alerts.
func (c *Client) FetchAlerts(ctx context.Context, routes map[string]struct{}) []model.Alert {
	if !c.shouldFetch(alertsPartition) {
		return c.cachedAlerts()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.alertsURL, nil)
	if err != nil {
		return c.alertsFailure(err)
	}
	if c.alertsETag != "" {
		req.Header.Set("If-None-Match", c.alertsETag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.alertsFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		c.recordSuccess(alertsPartition)
		return c.cachedAlerts()
	}
	if resp.StatusCode != http.StatusOK {
		return c.alertsFailure(fmt.Errorf("HTTP %d from alerts feed", resp.StatusCode))
	}
	if etag := resp.Header.Get("Etag"); etag != "" {
		c.alertsETag = etag
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.alertsFailure(err)
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(body, &fm); err != nil {
		return c.alertsFailure(err)
	}

	alerts := parseAlerts(&fm, routes)
	c.alertsCache = alerts
	c.recordSuccess(alertsPartition)
	return c.cachedAlerts()
}

func (c *Client) alertsFailure(err error) []model.Alert {
	c.logError(alertsPartition, fmt.Sprintf("fetch alerts: %v", err))
	c.recordFailure(alertsPartition)
	return c.cachedAlerts()
}

func (c *Client) cachedAlerts() []model.Alert {
	out := make([]model.Alert, len(c.alertsCache))
	copy(out, c.alertsCache)
	return out
}

// feedResult is one partition's fetch outcome.
type feedResult struct {
	feedID string
	msg    *gtfsrtpb.FeedMessage
	err    error
}

// fetchFeeds fans the given partitions out over the worker pool and
// returns a channel of results, closed once all fetches resolve.
func (c *Client) fetchFeeds(ctx context.Context, feedIDs []string) <-chan feedResult {
	jobs := make(chan string, len(feedIDs))
	results := make(chan feedResult, len(feedIDs))

	workers := c.workers
	if workers > len(feedIDs) {
		workers = len(feedIDs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				results <- c.fetchOne(ctx, id)
			}
		}()
	}
	for _, id := range feedIDs {
		jobs <- id
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// fetchOne fetches and decodes a single partition, recovering panics so
// a bad worker can never take down the fetch loop.
func (c *Client) fetchOne(ctx context.Context, feedID string) (res feedResult) {
	res.feedID = feedID
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			slog.Error("feed fetch panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			res.msg = nil
			res.err = fmt.Errorf("fetch panic (correlation_id: %s)", correlationID)
		}
	}()
	res.msg, res.err = c.fetchFeed(ctx, c.baseURL+feedID)
	return res
}

// fetchFeed fetches one GTFS-RT feed and returns the decoded message.
func (c *Client) fetchFeed(ctx context.Context, url string) (*gtfsrtpb.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, err
	}
	return &fm, nil
}

// parseTrains extracts arrivals at the requested stops from a decoded
// trip-updates feed. Only the first matching stop-time per trip counts,
// and arrivals already in the past are discarded.
func (c *Client) parseTrains(fm *gtfsrtpb.FeedMessage, stopIDs, routes map[string]struct{}, now time.Time) []model.Train {
	var trains []model.Train
	for _, e := range fm.GetEntity() {
		tu := e.GetTripUpdate()
		if tu == nil {
			continue
		}
		trip := tu.GetTrip()
		route := trip.GetRouteId()
		if _, ok := routes[route]; !ok {
			continue
		}
		express := IsExpressCapable(route) && strings.HasSuffix(trip.GetTripId(), "X")

		for _, stu := range tu.GetStopTimeUpdate() {
			stopID := stu.GetStopId()
			if _, ok := stopIDs[stopID]; !ok {
				continue
			}
			arrival := stu.GetArrival().GetTime()
			if arrival == 0 {
				continue
			}
			at := time.Unix(arrival, 0)
			if !at.After(now) {
				continue // already passed
			}
			mins := int(at.Sub(now).Minutes())
			if mins < 0 {
				mins = 0
			}
			dir := model.Uptown
			if strings.HasSuffix(stopID, "S") {
				dir = model.Downtown
			}
			trains = append(trains, model.Train{
				Route:       route,
				Destination: c.destinationFor(tu),
				Minutes:     mins,
				Express:     express,
				ArrivalTime: at,
				Direction:   dir,
				StopID:      stopID,
			})
			break // first matching stop per trip
		}
	}
	return trains
}

// destinationFor resolves a trip's headsign as the station name of its
// terminal stop (highest stop sequence).
func (c *Client) destinationFor(tu *gtfsrtpb.TripUpdate) string {
	var last *gtfsrtpb.TripUpdate_StopTimeUpdate
	for _, stu := range tu.GetStopTimeUpdate() {
		if last == nil || stu.GetStopSequence() >= last.GetStopSequence() {
			last = stu
		}
	}
	if last != nil && c.stations != nil {
		if name, ok := c.stations.StationNameForStopID(last.GetStopId()); ok {
			return name
		}
	}
	return "Unknown"
}

// parseAlerts extracts alerts whose affected routes intersect the
// requested set, deduplicated by message text within the batch.
func parseAlerts(fm *gtfsrtpb.FeedMessage, routes map[string]struct{}) []model.Alert {
	var alerts []model.Alert
	seenTexts := map[string]struct{}{}
	for _, e := range fm.GetEntity() {
		a := e.GetAlert()
		if a == nil {
			continue
		}
		relevant := map[string]struct{}{}
		for _, ie := range a.GetInformedEntity() {
			rid := ie.GetRouteId()
			if rid == "" {
				continue
			}
			if _, ok := routes[rid]; ok {
				relevant[rid] = struct{}{}
			}
		}
		if len(relevant) == 0 {
			continue
		}
		text := translatedText(a.GetHeaderText())
		if text == "" {
			continue
		}
		if _, dup := seenTexts[text]; dup {
			continue
		}
		seenTexts[text] = struct{}{}
		alerts = append(alerts, model.Alert{
			Text:           text,
			AffectedRoutes: relevant,
			Priority:       effectPriority(a.GetEffect()),
			ID:             e.GetId(),
		})
	}
	return alerts
}

// effectPriority maps the GTFS-RT effect enumeration to a display
// priority. Lower is more severe; unrecognized effects map to the
// lowest priority.
func effectPriority(effect gtfsrtpb.Alert_Effect) int {
	switch effect {
	case gtfsrtpb.Alert_NO_SERVICE:
		return 1
	case gtfsrtpb.Alert_REDUCED_SERVICE:
		return 2
	case gtfsrtpb.Alert_SIGNIFICANT_DELAYS:
		return 3
	case gtfsrtpb.Alert_DETOUR:
		return 4
	case gtfsrtpb.Alert_ADDITIONAL_SERVICE:
		return 5
	case gtfsrtpb.Alert_MODIFIED_SERVICE:
		return 6
	case gtfsrtpb.Alert_OTHER_EFFECT:
		return 7
	case gtfsrtpb.Alert_UNKNOWN_EFFECT:
		return 8
	case gtfsrtpb.Alert_STOP_MOVED:
		return 9
	}
	return 10
}

// translatedText returns the first translation of a TranslatedString
// with whitespace collapsed.
func translatedText(ts *gtfsrtpb.TranslatedString) string {
	for _, tr := range ts.GetTranslation() {
		return strings.Join(strings.Fields(tr.GetText()), " ")
	}
	return ""
}

// dedupTrains removes duplicate arrivals sharing (route, destination,
// minutes), keeping the first occurrence.
func dedupTrains(trains []model.Train) []model.Train {
	type trainKey struct {
		route, dest string
		minutes     int
	}
	seen := make(map[trainKey]struct{}, len(trains))
	out := make([]model.Train, 0, len(trains))
	for _, t := range trains {
		k := trainKey{t.Route, t.Destination, t.Minutes}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// shouldFetch reports whether a partition is outside its backoff window.
func (c *Client) shouldFetch(feedID string) bool {
	st, ok := c.backoff[feedID]
	if !ok {
		return true
	}
	return !c.now().Before(st.retryAfter)
}

// recordSuccess clears a partition's failure count immediately.
func (c *Client) recordSuccess(feedID string) {
	delete(c.backoff, feedID)
}

// recordFailure increments a partition's failure count and pushes its
// earliest-retry time out exponentially.
func (c *Client) recordFailure(feedID string) {
	failures := 1
	if st, ok := c.backoff[feedID]; ok {
		failures = st.failures + 1
	}
	c.backoff[feedID] = &backoffState{
		failures:   failures,
		retryAfter: c.now().Add(backoffDelay(failures)),
	}
}

// backoffDelay returns min(backoffCap, backoffBase * 2^(failures-1)):
// 15s, 30s, 60s, 120s, 240s, then capped at 300s.
func backoffDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	shift := failures - 1
	if shift > 5 {
		shift = 5
	}
	d := backoffBase << shift
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

func (c *Client) cacheEntry(feedID string) *feedCacheEntry {
	v, err := c.feedCache.Get(feedID)
	if err != nil {
		return nil
	}
	entry, ok := v.(*feedCacheEntry)
	if !ok {
		return nil
	}
	return entry
}

func (c *Client) cachedTrains(feedID string) []model.Train {
	if entry := c.cacheEntry(feedID); entry != nil {
		return entry.trains
	}
	return nil
}

// logError logs at most once per source per errorLogInterval so a
// sustained outage cannot flood the log.
func (c *Client) logError(source, msg string) {
	now := c.now()
	if last, ok := c.lastErrorLog[source]; ok && now.Sub(last) < errorLogInterval {
		return
	}
	c.lastErrorLog[source] = now
	slog.Warn("mta fetch error", "source", source, "detail", msg)
}

func feedLabel(feedID string) string {
	if feedID == "" {
		return "base"
	}
	return strings.TrimPrefix(feedID, "-")
}
