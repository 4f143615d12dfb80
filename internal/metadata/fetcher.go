// Package metadata resolves best-effort route and airframe information for
// displayed flights. Lookups are TTL-cached (including "not found" results,
// so unresolvable callsigns don't get hammered every cycle) and gated by a
// rate limiter since both upstream APIs are unauthenticated.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rl-enjoyer/flight-display/pkg/cache"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

// RouteInfo is the origin/destination of a flight. Either code may be empty
// when the upstream doesn't know it.
type RouteInfo struct {
	Origin      string `json:"origin"`      // ICAO airport code
	Destination string `json:"destination"` // ICAO airport code
}

// TypeInfo is static airframe metadata keyed by transponder address.
type TypeInfo struct {
	TypeCode     string `json:"type_code"` // e.g. "B738"
	Registration string `json:"registration"`
}

// TTLs configures cache lifetimes per lookup class.
type TTLs struct {
	Route  time.Duration // successful route lookups
	Type   time.Duration // successful airframe lookups
	Failed time.Duration // "not found" results
}

// Options configures a Fetcher.
type Options struct {
	RouteBaseURL string // defaults to https://api.adsbdb.com/v0
	TypeBaseURL  string // defaults to https://opensky-network.org/api
	Timeout      time.Duration
	TTL          TTLs
	RatePerSec   float64 // lookup rate limit, defaults to 1/s
	Burst        int     // defaults to 3
}

// Fetcher performs cached route and aircraft-type lookups.
type Fetcher struct {
	httpClient   *http.Client
	routeBaseURL string
	typeBaseURL  string
	ttl          TTLs
	limiter      *rate.Limiter
	logger       *logger.Logger

	routes *cache.Cache[string, RouteInfo]
	types  *cache.Cache[string, TypeInfo]
}

// NewFetcher creates a metadata fetcher backed by fresh caches.
func NewFetcher(opts Options, log *logger.Logger) *Fetcher {
	routeBase := opts.RouteBaseURL
	if routeBase == "" {
		routeBase = "https://api.adsbdb.com/v0"
	}
	typeBase := opts.TypeBaseURL
	if typeBase == "" {
		typeBase = "https://opensky-network.org/api"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := opts.TTL
	if ttl.Route <= 0 {
		ttl.Route = time.Hour
	}
	if ttl.Type <= 0 {
		ttl.Type = 24 * time.Hour
	}
	if ttl.Failed <= 0 {
		ttl.Failed = 5 * time.Minute
	}
	perSec := opts.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 3
	}

	return &Fetcher{
		httpClient:   &http.Client{Timeout: timeout},
		routeBaseURL: strings.TrimRight(routeBase, "/"),
		typeBaseURL:  strings.TrimRight(typeBase, "/"),
		ttl:          ttl,
		limiter:      rate.NewLimiter(rate.Limit(perSec), burst),
		logger:       log.Named("metadata"),
		routes:       cache.New[string, RouteInfo](),
		types:        cache.New[string, TypeInfo](),
	}
}

// Route returns the cached or freshly fetched route for a callsign. The
// second return is false when nothing (not even a cached negative) is known;
// a hard fetch failure is logged, not cached, and reported as absent.
func (f *Fetcher) Route(ctx context.Context, callsign string) (RouteInfo, bool) {
	cs := strings.ToUpper(strings.TrimSpace(callsign))
	if cs == "" {
		return RouteInfo{}, false
	}

	if route, ok := f.routes.Get(cs); ok {
		return route, true
	}

	route, notFound, err := f.fetchRoute(ctx, cs)
	if err != nil {
		f.logger.Warn("Route lookup failed", logger.String("callsign", cs), logger.Error(err))
		return RouteInfo{}, false
	}
	if notFound {
		f.routes.Put(cs, RouteInfo{}, f.ttl.Failed)
		return RouteInfo{}, true
	}
	f.routes.Put(cs, route, f.ttl.Route)
	return route, true
}

// AircraftType returns the cached or freshly fetched airframe metadata for a
// transponder address. Same absence semantics as Route.
func (f *Fetcher) AircraftType(ctx context.Context, icao24 string) (TypeInfo, bool) {
	hex := strings.ToLower(strings.TrimSpace(icao24))
	if hex == "" {
		return TypeInfo{}, false
	}

	if info, ok := f.types.Get(hex); ok {
		return info, true
	}

	info, notFound, err := f.fetchType(ctx, hex)
	if err != nil {
		f.logger.Warn("Aircraft type lookup failed", logger.String("icao24", hex), logger.Error(err))
		return TypeInfo{}, false
	}
	if notFound {
		f.types.Put(hex, TypeInfo{}, f.ttl.Failed)
		return TypeInfo{}, true
	}
	f.types.Put(hex, info, f.ttl.Type)
	return info, true
}

// Sweep removes expired entries from both caches.
func (f *Fetcher) Sweep() {
	removed := f.routes.Sweep() + f.types.Sweep()
	if removed > 0 {
		f.logger.Debug("Swept metadata caches", logger.Int("removed", removed))
	}
}

// fetchRoute calls the adsbdb callsign endpoint. Returns notFound=true for a
// 404 or an "unknown callsign" body, both of which are cacheable outcomes.
func (f *Fetcher) fetchRoute(ctx context.Context, callsign string) (RouteInfo, bool, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return RouteInfo{}, false, fmt.Errorf("rate limiter: %w", err)
	}

	urlStr := fmt.Sprintf("%s/callsign/%s", f.routeBaseURL, callsign)
	body, status, err := f.get(ctx, urlStr)
	if err != nil {
		return RouteInfo{}, false, err
	}
	if status == http.StatusNotFound {
		return RouteInfo{}, true, nil
	}
	if status != http.StatusOK {
		return RouteInfo{}, false, fmt.Errorf("unexpected status %d", status)
	}

	// The response field is either an object or the string "unknown callsign".
	var probe struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return RouteInfo{}, false, fmt.Errorf("failed to parse response: %w", err)
	}
	var unknown string
	if err := json.Unmarshal(probe.Response, &unknown); err == nil {
		return RouteInfo{}, true, nil
	}

	var payload struct {
		FlightRoute struct {
			Origin struct {
				ICAOCode string `json:"icao_code"`
			} `json:"origin"`
			Destination struct {
				ICAOCode string `json:"icao_code"`
			} `json:"destination"`
		} `json:"flightroute"`
	}
	if err := json.Unmarshal(probe.Response, &payload); err != nil {
		return RouteInfo{}, false, fmt.Errorf("failed to parse flightroute: %w", err)
	}

	return RouteInfo{
		Origin:      payload.FlightRoute.Origin.ICAOCode,
		Destination: payload.FlightRoute.Destination.ICAOCode,
	}, false, nil
}

// fetchType calls the OpenSky aircraft metadata endpoint.
func (f *Fetcher) fetchType(ctx context.Context, icao24 string) (TypeInfo, bool, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return TypeInfo{}, false, fmt.Errorf("rate limiter: %w", err)
	}

	urlStr := fmt.Sprintf("%s/metadata/aircraft/icao24/%s", f.typeBaseURL, icao24)
	body, status, err := f.get(ctx, urlStr)
	if err != nil {
		return TypeInfo{}, false, err
	}
	if status == http.StatusNotFound {
		return TypeInfo{}, true, nil
	}
	if status != http.StatusOK {
		return TypeInfo{}, false, fmt.Errorf("unexpected status %d", status)
	}

	var payload struct {
		TypeCode     string `json:"typecode"`
		Registration string `json:"registration"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return TypeInfo{}, false, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return TypeInfo{
		TypeCode:     strings.TrimSpace(payload.TypeCode),
		Registration: strings.TrimSpace(payload.Registration),
	}, false, nil
}

func (f *Fetcher) get(ctx context.Context, urlStr string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
