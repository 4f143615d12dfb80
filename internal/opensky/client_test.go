package opensky

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

var testBBox = BoundingBox{LatMin: 47.9, LonMin: 11.0, LatMax: 48.8, LonMax: 12.5}

func newTestClient(baseURL string) *Client {
	return NewClient(Options{BaseURL: baseURL, Timeout: 2 * time.Second}, logger.NewNop())
}

func TestFetchStatesDecodesVectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/states/all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		for _, key := range []string{"lamin", "lomin", "lamax", "lomax"} {
			if q.Get(key) == "" {
				t.Errorf("missing query param %s", key)
			}
		}
		// One complete vector, one with nulls, in the API's positional format.
		w.Write([]byte(`{"time": 1700000000, "states": [
			["4b1816", "SWR123  ", "Switzerland", 1699999998, 1700000000, 11.78, 48.35, 10668.0, false, 231.5, 90.5, -0.5, null, 10700.0, "1000", false, 0],
			["abc123", null, "Germany", null, null, null, null, null, true, null, null, null, null, null, null, false, 0]
		]}`))
	}))
	defer server.Close()

	states, err := newTestClient(server.URL).FetchStates(context.Background(), testBBox)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}

	sv := states[0]
	if sv.ICAO24 != "4b1816" {
		t.Errorf("expected icao24 4b1816, got %s", sv.ICAO24)
	}
	if sv.Callsign != "SWR123  " {
		t.Errorf("callsign should be kept raw, got %q", sv.Callsign)
	}
	if sv.OriginCountry != "Switzerland" {
		t.Errorf("expected Switzerland, got %s", sv.OriginCountry)
	}
	if !sv.HasPosition() {
		t.Fatal("expected position to be present")
	}
	if *sv.Latitude != 48.35 || *sv.Longitude != 11.78 {
		t.Errorf("wrong position: %f, %f", *sv.Latitude, *sv.Longitude)
	}
	if sv.BaroAltitude == nil || *sv.BaroAltitude != 10668.0 {
		t.Error("expected baro altitude 10668")
	}
	if sv.OnGround {
		t.Error("expected airborne")
	}

	nulls := states[1]
	if nulls.HasPosition() {
		t.Error("expected missing position for null fields")
	}
	if nulls.BaroAltitude != nil || nulls.Velocity != nil || nulls.TrueTrack != nil {
		t.Error("expected nil numeric fields for null values")
	}
	if !nulls.OnGround {
		t.Error("expected on-ground flag to survive decoding")
	}
}

func TestFetchStatesUppercaseHexLowered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"time": 1, "states": [["4B1816", "X", "Y", null, null, 1.0, 2.0, null, false, null, null, null, null, null, null, false, 0]]}`))
	}))
	defer server.Close()

	states, err := newTestClient(server.URL).FetchStates(context.Background(), testBBox)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if states[0].ICAO24 != "4b1816" {
		t.Errorf("expected lowercased icao24, got %s", states[0].ICAO24)
	}
}

func TestFetchStatesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"time": 1700000000, "states": null}`))
	}))
	defer server.Close()

	states, err := newTestClient(server.URL).FetchStates(context.Background(), testBBox)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected no states, got %d", len(states))
	}
}

func TestFetchStatesErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, "slow down", KindRateLimited},
		{"server error", http.StatusInternalServerError, "boom", KindUpstream},
		{"bad gateway", http.StatusBadGateway, "", KindUpstream},
		{"malformed body", http.StatusOK, `{"time": not json`, KindUpstream},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchStates(context.Background(), testBBox)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T", err)
			}
			if fe.Kind != tc.want {
				t.Errorf("expected kind %s, got %s", tc.want, fe.Kind)
			}
		})
	}
}

func TestFetchStatesNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := newTestClient(server.URL).FetchStates(context.Background(), testBBox)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Kind != KindNetwork {
		t.Errorf("expected network kind, got %s", fe.Kind)
	}
}

func TestBearerTokenCached(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if r.FormValue("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant type %s", r.FormValue("grant_type"))
		}
		w.Write([]byte(`{"access_token": "tok-1", "expires_in": 1800}`))
	})
	mux.HandleFunc("/states/all", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		w.Write([]byte(`{"time": 1, "states": []}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(Options{
		BaseURL:      server.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
		Timeout:      2 * time.Second,
	}, logger.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := client.FetchStates(context.Background(), testBBox); err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("expected a single token request, got %d", tokenCalls)
	}
}
