package opensky

import "fmt"

// ErrorKind classifies a fetch failure so the poller can decide how to react
// without inspecting error strings.
type ErrorKind int

const (
	// KindNetwork covers transport-level failures: timeouts, refused
	// connections, DNS errors.
	KindNetwork ErrorKind = iota
	// KindRateLimited is an HTTP 429 from the upstream API.
	KindRateLimited
	// KindUpstream covers 5xx responses and bodies that fail to decode.
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// FetchError is the error type returned by Client for all upstream failures.
type FetchError struct {
	Kind   ErrorKind
	Status int // HTTP status when applicable, 0 otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("opensky fetch failed (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("opensky fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BoundingBox is the lat/lon rectangle passed to the states endpoint.
type BoundingBox struct {
	LatMin float64
	LonMin float64
	LatMax float64
	LonMax float64
}

// StateVector is one aircraft state as reported by the states/all endpoint.
// Units are the API's own: meters, m/s, degrees. Fields the upstream may omit
// are pointers so "missing" stays distinguishable from zero.
type StateVector struct {
	ICAO24        string   // lowercased hex transponder address
	Callsign      string   // raw, may be blank or padded
	OriginCountry string
	Longitude     *float64
	Latitude      *float64
	BaroAltitude  *float64 // meters
	OnGround      bool
	Velocity      *float64 // m/s over ground
	TrueTrack     *float64 // degrees clockwise from north
	VerticalRate  *float64 // m/s
	GeoAltitude   *float64 // meters
	Squawk        string
}

// HasPosition reports whether the vector carries a usable lat/lon.
func (s *StateVector) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}
