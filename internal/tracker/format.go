package tracker

import (
	"fmt"
	"math"
)

const (
	metersToFeet = 3.28084
	mpsToKnots   = 1.94384
	mpsToFpm     = 196.85
)

// FormatAltitude renders an altitude in flight levels above the transition
// altitude and feet below it. unit "ft" forces feet everywhere.
func FormatAltitude(meters *float64, unit string) string {
	if meters == nil {
		return "---"
	}
	feet := *meters * metersToFeet
	if unit != "ft" && feet >= 18000 {
		return fmt.Sprintf("FL%d", int(math.Round(feet/100)))
	}
	return fmt.Sprintf("%dft", int(math.Round(feet)))
}

// FormatSpeed renders a ground speed in knots.
func FormatSpeed(mps *float64) string {
	if mps == nil {
		return "---"
	}
	return fmt.Sprintf("%dkt", int(math.Round(*mps*mpsToKnots)))
}

// FormatHeading renders a track as compass point plus 3-digit degrees,
// sixteen-wind style ("NE045").
func FormatHeading(degrees *float64) string {
	if degrees == nil {
		return "---"
	}
	points := [16]string{
		"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
	}
	idx := int((*degrees+11.25)/22.5) % 16
	if idx < 0 {
		idx += 16
	}
	return fmt.Sprintf("%s%03d", points[idx], int(*degrees))
}

// FormatDistance renders a distance in km, with one decimal under 10km.
func FormatDistance(km float64) string {
	if km < 10 {
		return fmt.Sprintf("%.1fkm", km)
	}
	return fmt.Sprintf("%dkm", int(math.Round(km)))
}

// FormatVerticalRate renders a climb/descent rate in feet per minute.
// Rates under 0.5 m/s are treated as level flight and render empty.
func FormatVerticalRate(mps *float64) string {
	if mps == nil || (*mps < 0.5 && *mps > -0.5) {
		return ""
	}
	return fmt.Sprintf("%+dfpm", int(math.Round(*mps*mpsToFpm)))
}

// FormatRoute renders "origin > destination", substituting "?" for an
// unknown leg. Both unknown renders empty.
func FormatRoute(origin, dest string) string {
	if origin == Placeholder {
		origin = ""
	}
	if dest == Placeholder {
		dest = ""
	}
	switch {
	case origin != "" && dest != "":
		return origin + " > " + dest
	case origin != "":
		return origin + " > ?"
	case dest != "":
		return "? > " + dest
	default:
		return ""
	}
}
