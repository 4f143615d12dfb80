package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl-enjoyer/flight-display/internal/metadata"
	"github.com/rl-enjoyer/flight-display/internal/opensky"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

type fakeStateSource struct {
	states []opensky.StateVector
	err    error
	calls  int
}

func (f *fakeStateSource) FetchStates(ctx context.Context, bbox opensky.BoundingBox) ([]opensky.StateVector, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.states, nil
}

type fakeMetadata struct {
	routes map[string]metadata.RouteInfo
	types  map[string]metadata.TypeInfo
	sweeps int

	// lookups is bumped from the enrichment goroutines, so it must be atomic.
	lookups atomic.Int64
}

func (f *fakeMetadata) Route(ctx context.Context, callsign string) (metadata.RouteInfo, bool) {
	f.lookups.Add(1)
	r, ok := f.routes[callsign]
	return r, ok
}

func (f *fakeMetadata) AircraftType(ctx context.Context, icao24 string) (metadata.TypeInfo, bool) {
	ti, ok := f.types[icao24]
	return ti, ok
}

func (f *fakeMetadata) Sweep() { f.sweeps++ }

func newTestService(src StateSource, meta MetadataSource) *Service {
	return NewService(src, meta, nil, ServiceOptions{
		HomeLat:         testRules.HomeLat,
		HomeLon:         testRules.HomeLon,
		RadiusKm:        60,
		PollInterval:    time.Hour, // loop never ticks in tests
		Rules:           testRules,
		EnrichmentLimit: 3,
		SweepEveryPolls: 2,
	}, logger.NewNop())
}

func TestSnapshotNilBeforeFirstPoll(t *testing.T) {
	svc := newTestService(&fakeStateSource{}, &fakeMetadata{})
	if svc.Snapshot() != nil {
		t.Error("snapshot must be nil before the first poll")
	}
}

func TestPollPublishesSnapshot(t *testing.T) {
	src := &fakeStateSource{states: []opensky.StateVector{
		vectorAt("aaa111", testRules.HomeLat, testRules.HomeLon, 10),
		vectorAt("bbb222", testRules.HomeLat, testRules.HomeLon, 40),
	}}
	svc := newTestService(src, &fakeMetadata{})

	svc.pollOnce(context.Background())

	snap := svc.Snapshot()
	if snap == nil {
		t.Fatal("expected a published snapshot")
	}
	if len(snap.Flights) != 2 {
		t.Fatalf("expected 2 flights, got %d", len(snap.Flights))
	}
	if snap.Version != 1 {
		t.Errorf("expected version 1, got %d", snap.Version)
	}

	st := svc.Status()
	if !st.LastFetchOK || st.FlightCount != 2 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestPollFailureRetainsSnapshot(t *testing.T) {
	src := &fakeStateSource{states: []opensky.StateVector{
		vectorAt("aaa111", testRules.HomeLat, testRules.HomeLon, 10),
	}}
	svc := newTestService(src, &fakeMetadata{})

	svc.pollOnce(context.Background())
	before := svc.Snapshot()

	src.err = &opensky.FetchError{Kind: opensky.KindNetwork, Err: errors.New("connection refused")}
	svc.pollOnce(context.Background())

	after := svc.Snapshot()
	if after != before {
		t.Error("snapshot must be unchanged after a failed poll")
	}
	if st := svc.Status(); st.LastFetchOK || st.LastError == "" {
		t.Errorf("status should record the failure: %+v", st)
	}
}

func TestPollEmptyPublishesEmptySnapshot(t *testing.T) {
	svc := newTestService(&fakeStateSource{}, &fakeMetadata{})

	svc.pollOnce(context.Background())

	snap := svc.Snapshot()
	if snap == nil {
		t.Fatal("empty result must still publish a snapshot")
	}
	if len(snap.Flights) != 0 {
		t.Errorf("expected empty flight list, got %d", len(snap.Flights))
	}
}

func TestPollEnrichesNearestOnly(t *testing.T) {
	var states []opensky.StateVector
	for i := 0; i < 7; i++ {
		states = append(states, vectorAt(string(rune('a'+i))+"00000", testRules.HomeLat, testRules.HomeLon, float64(i+1)*5))
	}
	meta := &fakeMetadata{routes: map[string]metadata.RouteInfo{}, types: map[string]metadata.TypeInfo{}}
	for _, s := range states {
		meta.routes[s.Callsign] = metadata.RouteInfo{Origin: "EDDM", Destination: "EGLL"}
	}
	svc := newTestService(&fakeStateSource{states: states}, meta)

	svc.pollOnce(context.Background())

	snap := svc.Snapshot()
	enriched := 0
	for _, f := range snap.Flights {
		if f.Enriched() {
			enriched++
		}
	}
	if enriched != 3 {
		t.Errorf("expected 3 enriched flights, got %d", enriched)
	}
	if got := meta.lookups.Load(); got != 3 {
		t.Errorf("expected 3 route lookups, got %d", got)
	}
}

func TestEnrichmentCarriesOverAcrossPolls(t *testing.T) {
	near := vectorAt("aaa111", testRules.HomeLat, testRules.HomeLon, 10)
	meta := &fakeMetadata{
		routes: map[string]metadata.RouteInfo{near.Callsign: {Origin: "EDDM", Destination: "EGLL"}},
	}
	src := &fakeStateSource{states: []opensky.StateVector{near}}
	svc := newTestService(src, meta)

	svc.pollOnce(context.Background())

	// Three closer flights push the enriched one out of the lookup window.
	var crowd []opensky.StateVector
	for i := 0; i < 3; i++ {
		crowd = append(crowd, vectorAt(string(rune('b'+i))+"00000", testRules.HomeLat, testRules.HomeLon, float64(i+1)))
	}
	src.states = append(crowd, near)
	svc.pollOnce(context.Background())

	snap := svc.Snapshot()
	var found *DisplayFlight
	for i := range snap.Flights {
		if snap.Flights[i].ICAO24 == "aaa111" {
			found = &snap.Flights[i]
		}
	}
	if found == nil {
		t.Fatal("carried flight missing from snapshot")
	}
	if found.Origin != "EDDM" || found.Destination != "EGLL" {
		t.Errorf("route should carry over when flight leaves the enrichment window: %+v", found)
	}
	// One lookup in the first poll, three for the crowd in the second.
	if got := meta.lookups.Load(); got != 4 {
		t.Errorf("expected 4 route lookups across both polls, got %d", got)
	}
}

func TestEnrichmentPrunedWhenFlightLeaves(t *testing.T) {
	near := vectorAt("aaa111", testRules.HomeLat, testRules.HomeLon, 10)
	meta := &fakeMetadata{
		routes: map[string]metadata.RouteInfo{near.Callsign: {Origin: "EDDM", Destination: "EGLL"}},
	}
	src := &fakeStateSource{states: []opensky.StateVector{near}}
	svc := newTestService(src, meta)

	svc.pollOnce(context.Background())
	src.states = nil
	svc.pollOnce(context.Background())

	if len(svc.enrichments) != 0 {
		t.Errorf("carried enrichment should be pruned when flight departs, %d left", len(svc.enrichments))
	}
}

func TestSweepCadence(t *testing.T) {
	meta := &fakeMetadata{}
	svc := newTestService(&fakeStateSource{}, meta)

	for i := 0; i < 4; i++ {
		svc.pollOnce(context.Background())
	}
	// SweepEveryPolls is 2, so 4 polls trigger 2 sweeps.
	if meta.sweeps != 2 {
		t.Errorf("expected 2 sweeps after 4 polls, got %d", meta.sweeps)
	}
}

func TestVersionMonotonic(t *testing.T) {
	svc := newTestService(&fakeStateSource{}, &fakeMetadata{})

	var last uint64
	for i := 0; i < 3; i++ {
		svc.pollOnce(context.Background())
		v := svc.Snapshot().Version
		if v <= last {
			t.Errorf("version not monotonic: %d after %d", v, last)
		}
		last = v
	}
}

func TestStartStop(t *testing.T) {
	src := &fakeStateSource{states: []opensky.StateVector{
		vectorAt("aaa111", testRules.HomeLat, testRules.HomeLon, 10),
	}}
	svc := newTestService(src, &fakeMetadata{})

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if svc.Snapshot() == nil {
		t.Error("Start should run an initial poll")
	}
	svc.Stop()
}
