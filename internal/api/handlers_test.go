package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rl-enjoyer/flight-display/internal/tracker"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

type fakeTracker struct {
	snap   *tracker.Snapshot
	status tracker.Status
}

func (f *fakeTracker) Snapshot() *tracker.Snapshot { return f.snap }
func (f *fakeTracker) Status() tracker.Status      { return f.status }

func newTestServer(t *testing.T, svc TrackerService) *httptest.Server {
	t.Helper()
	router := NewRouter(NewHandler(svc, logger.NewNop()), nil, logger.NewNop())
	server := httptest.NewServer(router.Routes())
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
	}
	return resp.StatusCode
}

func TestGetFlightsScanning(t *testing.T) {
	server := newTestServer(t, &fakeTracker{})

	var resp struct {
		Scanning bool                    `json:"scanning"`
		Flights  []tracker.DisplayFlight `json:"flights"`
	}
	if code := getJSON(t, server.URL+"/api/v1/flights", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !resp.Scanning {
		t.Error("expected scanning=true before first poll")
	}
	if resp.Flights == nil || len(resp.Flights) != 0 {
		t.Errorf("expected empty flights array, got %v", resp.Flights)
	}
}

func TestGetFlightsWithSnapshot(t *testing.T) {
	now := time.Now()
	server := newTestServer(t, &fakeTracker{snap: &tracker.Snapshot{
		Flights: []tracker.DisplayFlight{
			{ICAO24: "4b1816", Callsign: "SWR123", Rank: 1, Total: 1},
		},
		Version:   7,
		FetchedAt: now,
	}})

	var resp struct {
		Scanning bool                    `json:"scanning"`
		Flights  []tracker.DisplayFlight `json:"flights"`
		Version  uint64                  `json:"version"`
	}
	if code := getJSON(t, server.URL+"/api/v1/flights", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Scanning {
		t.Error("expected scanning=false with a snapshot")
	}
	if len(resp.Flights) != 1 || resp.Flights[0].Callsign != "SWR123" {
		t.Errorf("unexpected flights %v", resp.Flights)
	}
	if resp.Version != 7 {
		t.Errorf("expected version 7, got %d", resp.Version)
	}
}

func TestGetStatus(t *testing.T) {
	server := newTestServer(t, &fakeTracker{status: tracker.Status{
		LastFetchOK: true,
		FlightCount: 3,
		Version:     12,
	}})

	var status tracker.Status
	if code := getJSON(t, server.URL+"/api/v1/status", &status); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !status.LastFetchOK || status.FlightCount != 3 || status.Version != 12 {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestGetHealth(t *testing.T) {
	server := newTestServer(t, &fakeTracker{})

	var health map[string]string
	if code := getJSON(t, server.URL+"/health", &health); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if health["status"] != "ok" {
		t.Errorf("expected status ok, got %q", health["status"])
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t, &fakeTracker{})
	if code := getJSON(t, server.URL+"/api/v1/nope", nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}
