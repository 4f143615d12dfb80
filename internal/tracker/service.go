package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rl-enjoyer/flight-display/internal/geo"
	"github.com/rl-enjoyer/flight-display/internal/metadata"
	"github.com/rl-enjoyer/flight-display/internal/opensky"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

// StateSource fetches raw state vectors for a bounding box.
type StateSource interface {
	FetchStates(ctx context.Context, bbox opensky.BoundingBox) ([]opensky.StateVector, error)
}

// MetadataSource resolves best-effort route and airframe data.
type MetadataSource interface {
	Route(ctx context.Context, callsign string) (metadata.RouteInfo, bool)
	AircraftType(ctx context.Context, icao24 string) (metadata.TypeInfo, bool)
	Sweep()
}

// Broadcaster pushes a published snapshot to connected clients.
type Broadcaster interface {
	BroadcastSnapshot(snapshot *Snapshot)
}

// ServiceOptions configures the tracker service.
type ServiceOptions struct {
	HomeLat         float64
	HomeLon         float64
	RadiusKm        float64
	PollInterval    time.Duration
	Rules           FilterRules
	EnrichmentLimit int
	SweepEveryPolls int
}

// Service runs the poll cycle and owns the published snapshot.
type Service struct {
	states   StateSource
	metadata MetadataSource
	bcast    Broadcaster // may be nil
	logger   *logger.Logger

	bbox            opensky.BoundingBox
	pollInterval    time.Duration
	rules           FilterRules
	enrichmentLimit int
	sweepEveryPolls int

	// snapshot is nil until the first successful poll.
	snapshot atomic.Pointer[Snapshot]
	version  atomic.Uint64

	// enrichments carries resolved metadata across cycles so a flight that
	// drops out of the enrichment window keeps its route on screen.
	enrichments map[string]Enrichment

	statusMu      sync.RWMutex
	lastFetchTime time.Time
	lastFetchOK   bool
	lastError     string

	pollCount int
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewService creates a tracker service.
func NewService(states StateSource, meta MetadataSource, bcast Broadcaster, opts ServiceOptions, log *logger.Logger) *Service {
	lamin, lomin, lamax, lomax := geo.BoundingBox(opts.HomeLat, opts.HomeLon, opts.RadiusKm)
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	sweepEvery := opts.SweepEveryPolls
	if sweepEvery <= 0 {
		sweepEvery = 20
	}

	return &Service{
		states:          states,
		metadata:        meta,
		bcast:           bcast,
		logger:          log.Named("tracker"),
		bbox:            opensky.BoundingBox{LatMin: lamin, LonMin: lomin, LatMax: lamax, LonMax: lomax},
		pollInterval:    pollInterval,
		rules:           opts.Rules,
		enrichmentLimit: opts.EnrichmentLimit,
		sweepEveryPolls: sweepEvery,
		enrichments:     make(map[string]Enrichment),
		stopCh:          make(chan struct{}),
	}
}

// Start runs an initial poll and launches the background poll loop.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting tracker service",
		logger.Duration("poll_interval", s.pollInterval),
		logger.Float64("lat_min", s.bbox.LatMin),
		logger.Float64("lat_max", s.bbox.LatMax),
		logger.Float64("lon_min", s.bbox.LonMin),
		logger.Float64("lon_max", s.bbox.LonMax),
	)

	s.pollOnce(ctx)

	s.wg.Add(1)
	go s.pollLoop(ctx)

	return nil
}

// Stop halts the poll loop and waits for it to finish.
func (s *Service) Stop() {
	s.logger.Info("Stopping tracker service")
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Tracker service stopped")
}

// Snapshot returns the most recently published snapshot, or nil before the
// first successful poll.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Status describes the health of the poll loop.
type Status struct {
	LastFetchTime time.Time `json:"last_fetch_time"`
	LastFetchOK   bool      `json:"last_fetch_ok"`
	LastError     string    `json:"last_error,omitempty"`
	FlightCount   int       `json:"flight_count"`
	Version       uint64    `json:"version"`
}

// Status returns the current poll loop health.
func (s *Service) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	st := Status{
		LastFetchTime: s.lastFetchTime,
		LastFetchOK:   s.lastFetchOK,
		LastError:     s.lastError,
	}
	if snap := s.snapshot.Load(); snap != nil {
		st.FlightCount = len(snap.Flights)
		st.Version = snap.Version
	}
	return st
}

func (s *Service) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pollOnce(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pollOnce runs one fetch-filter-enrich-publish cycle. Fetch failures keep
// the previous snapshot on screen; the display must not blank on a transient
// upstream error.
func (s *Service) pollOnce(ctx context.Context) {
	states, err := s.states.FetchStates(ctx, s.bbox)
	if err != nil {
		s.logger.Warn("Poll failed, retaining previous snapshot", logger.Error(err))
		s.setStatus(false, err.Error())
		return
	}

	ranked := Rank(Filter(states, s.rules))
	s.pruneEnrichments(ranked)
	s.enrich(ctx, SelectForEnrichment(ranked, s.enrichmentLimit))

	snap := &Snapshot{
		Flights:   AssembleDisplay(ranked, s.enrichments),
		Version:   s.version.Add(1),
		FetchedAt: time.Now(),
	}
	s.snapshot.Store(snap)
	s.setStatus(true, "")

	s.logger.Info("Published snapshot",
		logger.Int("raw", len(states)),
		logger.Int("shown", len(snap.Flights)),
		logger.Uint64("version", snap.Version),
	)

	if s.bcast != nil {
		s.bcast.BroadcastSnapshot(snap)
	}

	s.pollCount++
	if s.pollCount%s.sweepEveryPolls == 0 {
		s.metadata.Sweep()
	}
}

// enrich resolves route and type for the selected candidates in parallel.
// Lookup failures leave the flight unenriched; they never fail the cycle.
func (s *Service) enrich(ctx context.Context, selected []Candidate) {
	if len(selected) == 0 {
		return
	}

	results := make([]Enrichment, len(selected))
	found := make([]bool, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range selected {
		i, c := i, c
		g.Go(func() error {
			var e Enrichment
			var any bool
			if route, ok := s.metadata.Route(gctx, c.State.Callsign); ok {
				e.Route = route
				any = true
			}
			if info, ok := s.metadata.AircraftType(gctx, c.State.ICAO24); ok {
				e.Type = info
				any = true
			}
			results[i] = e
			found[i] = any
			return nil
		})
	}
	// The goroutines report misses through found, never as errors; Wait is
	// only the join point.
	_ = g.Wait()

	for i, c := range selected {
		if !found[i] {
			continue
		}
		// Merge over the carried value so a fresh negative doesn't erase
		// data resolved in an earlier cycle.
		merged := s.enrichments[c.State.ICAO24]
		if results[i].Route.Origin != "" {
			merged.Route.Origin = results[i].Route.Origin
		}
		if results[i].Route.Destination != "" {
			merged.Route.Destination = results[i].Route.Destination
		}
		if results[i].Type.TypeCode != "" {
			merged.Type.TypeCode = results[i].Type.TypeCode
		}
		if results[i].Type.Registration != "" {
			merged.Type.Registration = results[i].Type.Registration
		}
		s.enrichments[c.State.ICAO24] = merged
	}
}

// pruneEnrichments drops carried metadata for flights no longer in range.
func (s *Service) pruneEnrichments(ranked []Candidate) {
	active := make(map[string]bool, len(ranked))
	for _, c := range ranked {
		active[c.State.ICAO24] = true
	}
	for icao := range s.enrichments {
		if !active[icao] {
			delete(s.enrichments, icao)
		}
	}
}

func (s *Service) setStatus(ok bool, errMsg string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.lastFetchTime = time.Now()
	s.lastFetchOK = ok
	s.lastError = errMsg
}
