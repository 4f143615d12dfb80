package tracker

import (
	"sort"
	"strings"

	"github.com/rl-enjoyer/flight-display/internal/geo"
	"github.com/rl-enjoyer/flight-display/internal/metadata"
	"github.com/rl-enjoyer/flight-display/internal/opensky"
)

// FilterRules are the knobs applied to each raw state vector.
type FilterRules struct {
	HomeLat                float64
	HomeLon                float64
	MaxDistanceKm          float64
	MinAltitudeM           float64
	ExcludeOnGround        bool
	IncludeUnknownAltitude bool
}

// Candidate pairs a state vector with its geometry relative to home.
type Candidate struct {
	State      opensky.StateVector
	DistanceKm float64
	BearingDeg float64
}

// Filter drops vectors without a position, on-ground traffic, low or unknown
// altitudes, and anything outside the display radius. Distance and bearing
// from home are computed for every survivor.
func Filter(states []opensky.StateVector, rules FilterRules) []Candidate {
	out := make([]Candidate, 0, len(states))
	for _, s := range states {
		if !s.HasPosition() {
			continue
		}
		if rules.ExcludeOnGround && s.OnGround {
			continue
		}
		if s.BaroAltitude == nil {
			if !rules.IncludeUnknownAltitude {
				continue
			}
		} else if *s.BaroAltitude < rules.MinAltitudeM {
			continue
		}

		dist := geo.DistanceKm(rules.HomeLat, rules.HomeLon, *s.Latitude, *s.Longitude)
		if dist > rules.MaxDistanceKm {
			continue
		}

		out = append(out, Candidate{
			State:      s,
			DistanceKm: dist,
			BearingDeg: geo.BearingDeg(rules.HomeLat, rules.HomeLon, *s.Latitude, *s.Longitude),
		})
	}
	return out
}

// Rank sorts candidates nearest-first. Equal distances fall back to icao24
// order so successive polls rank identical inputs identically.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return ranked[i].State.ICAO24 < ranked[j].State.ICAO24
	})
	return ranked
}

// SelectForEnrichment returns the nearest limit candidates. Only these get
// route/type lookups each cycle, keeping the per-cycle call count bounded.
func SelectForEnrichment(ranked []Candidate, limit int) []Candidate {
	if limit < 0 {
		limit = 0
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	return ranked[:limit]
}

// Enrichment holds resolved metadata for one flight, keyed off its icao24.
type Enrichment struct {
	Route metadata.RouteInfo
	Type  metadata.TypeInfo
}

// AssembleDisplay builds the final flight list. Every ranked candidate gets
// an entry; enriched holds route/type for the subset that was looked up (or
// carried over), everything else shows placeholders.
func AssembleDisplay(ranked []Candidate, enriched map[string]Enrichment) []DisplayFlight {
	flights := make([]DisplayFlight, 0, len(ranked))
	total := len(ranked)
	for i, c := range ranked {
		f := DisplayFlight{
			ICAO24:       c.State.ICAO24,
			Callsign:     displayCallsign(c.State),
			AircraftType: Placeholder,
			Origin:       Placeholder,
			Destination:  Placeholder,
			Country:      c.State.OriginCountry,
			Latitude:     *c.State.Latitude,
			Longitude:    *c.State.Longitude,
			DistanceKm:   c.DistanceKm,
			BearingDeg:   c.BearingDeg,
			Octant:       geo.CompassOctant(c.BearingDeg),
			AltitudeM:    c.State.BaroAltitude,
			SpeedMps:     c.State.Velocity,
			TrackDeg:     c.State.TrueTrack,
			VerticalMps:  c.State.VerticalRate,
			Rank:         i + 1,
			Total:        total,
		}
		if e, ok := enriched[c.State.ICAO24]; ok {
			if e.Route.Origin != "" {
				f.Origin = e.Route.Origin
			}
			if e.Route.Destination != "" {
				f.Destination = e.Route.Destination
			}
			if e.Type.TypeCode != "" {
				f.AircraftType = e.Type.TypeCode
			}
			f.Registration = e.Type.Registration
		}
		flights = append(flights, f)
	}
	return flights
}

// displayCallsign trims and uppercases the reported callsign, falling back
// to the transponder address when the field is blank.
func displayCallsign(s opensky.StateVector) string {
	cs := strings.ToUpper(strings.TrimSpace(s.Callsign))
	if cs == "" {
		return strings.ToUpper(s.ICAO24)
	}
	return cs
}
