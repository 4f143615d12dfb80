// Package tracker owns the poll cycle: fetch state vectors, filter and rank
// them around the home location, enrich the nearest few with route and
// airframe metadata, and publish an immutable snapshot for the renderer.
package tracker

import "time"

// Placeholder is shown for fields with no resolved value.
const Placeholder = "—"

// DisplayFlight is one flight prepared for rendering. Built once per poll
// cycle and never mutated afterwards.
type DisplayFlight struct {
	ICAO24       string  `json:"icao24"`
	Callsign     string  `json:"callsign"`      // trimmed, uppercased; falls back to icao24
	AircraftType string  `json:"aircraft_type"` // ICAO type designator or Placeholder
	Registration string  `json:"registration"`
	Origin       string  `json:"origin"`      // ICAO airport code or Placeholder
	Destination  string  `json:"destination"` // ICAO airport code or Placeholder
	Country      string  `json:"country"`

	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	DistanceKm   float64  `json:"distance_km"`
	BearingDeg   float64  `json:"bearing_deg"`
	Octant       string   `json:"octant"` // compass octant from home toward the flight
	AltitudeM    *float64 `json:"altitude_m,omitempty"`
	SpeedMps     *float64 `json:"speed_mps,omitempty"`
	TrackDeg     *float64 `json:"track_deg,omitempty"`
	VerticalMps  *float64 `json:"vertical_mps,omitempty"`

	Rank  int `json:"rank"`  // 1-based position in the ranked list
	Total int `json:"total"` // size of the ranked list
}

// Enriched reports whether the flight carries a resolved route.
func (f *DisplayFlight) Enriched() bool {
	return f.Origin != Placeholder || f.Destination != Placeholder
}

// Snapshot is the ordered flight list published after each successful poll.
// A nil *Snapshot means no poll has succeeded yet; an empty Flights slice
// means the sky is clear.
type Snapshot struct {
	Flights   []DisplayFlight `json:"flights"`
	Version   uint64          `json:"version"` // increments on every publish
	FetchedAt time.Time       `json:"fetched_at"`
}
