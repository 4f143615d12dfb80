package display

import (
	"context"
	"strconv"
	"time"

	"github.com/rl-enjoyer/flight-display/internal/tracker"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

// SnapshotSource yields the latest published snapshot, nil before the first
// successful poll.
type SnapshotSource interface {
	Snapshot() *tracker.Snapshot
}

// RendererOptions configures the render loop.
type RendererOptions struct {
	CycleInterval time.Duration // per-flight display time
	TickInterval  time.Duration // render loop period
	Brightness    float64
	AltitudeUnit  string // "fl" or "ft"
}

// Renderer cycles through the current snapshot's flights on a fixed tick,
// independent of the poll interval.
type Renderer struct {
	sink   Sink
	source SnapshotSource
	logger *logger.Logger

	cycleInterval time.Duration
	tickInterval  time.Duration
	altitudeUnit  string

	// Replaceable clock for deterministic cycling tests.
	now func() time.Time

	cursor    int
	lastCycle time.Time
	back      *Frame
}

// NewRenderer creates a renderer pushing frames to sink.
func NewRenderer(sink Sink, source SnapshotSource, opts RendererOptions, log *logger.Logger) *Renderer {
	cycle := opts.CycleInterval
	if cycle <= 0 {
		cycle = 5 * time.Second
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	if opts.Brightness > 0 {
		sink.SetBrightness(opts.Brightness)
	}

	return &Renderer{
		sink:          sink,
		source:        source,
		logger:        log.Named("display"),
		cycleInterval: cycle,
		tickInterval:  tick,
		altitudeUnit:  opts.AltitudeUnit,
		now:           time.Now,
		back:          NewFrame(),
	}
}

// Run drives the render loop until ctx is cancelled, then shows a goodbye
// frame and clears the panel.
func (r *Renderer) Run(ctx context.Context) error {
	r.logger.Info("Starting render loop",
		logger.Duration("tick", r.tickInterval),
		logger.Duration("cycle", r.cycleInterval),
	)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.RenderTick(r.now()); err != nil {
				r.logger.Error("Failed to push frame", logger.Error(err))
			}
		case <-ctx.Done():
			r.shutdown()
			return nil
		}
	}
}

// RenderTick draws and commits one frame for the given instant.
func (r *Renderer) RenderTick(now time.Time) error {
	snap := r.source.Snapshot()

	r.back.Clear()
	switch {
	case snap == nil:
		r.drawStatus("Scanning...")
	case len(snap.Flights) == 0:
		r.drawStatus("No flights nearby")
		r.cursor = 0
		r.lastCycle = now
	default:
		r.advance(now, len(snap.Flights))
		r.drawFlight(&snap.Flights[r.cursor])
	}

	return r.sink.Show(r.back)
}

// Cursor returns the index of the flight currently on screen.
func (r *Renderer) Cursor() int {
	return r.cursor
}

// advance moves the cursor to the next flight once the cycle interval has
// elapsed, wrapping at the end. The cursor is clamped first in case the
// snapshot shrank since the previous tick.
func (r *Renderer) advance(now time.Time, total int) {
	if r.cursor >= total {
		r.cursor = 0
	}
	if r.lastCycle.IsZero() {
		r.lastCycle = now
		return
	}
	if now.Sub(r.lastCycle) >= r.cycleInterval {
		r.cursor = (r.cursor + 1) % total
		r.lastCycle = now
	}
}

// drawFlight lays out one flight across the four text rows.
func (r *Renderer) drawFlight(f *tracker.DisplayFlight) {
	// Row 0: callsign and type, registration right-aligned.
	left := f.Callsign
	if f.AircraftType != tracker.Placeholder {
		left += " " + f.AircraftType
	}
	r.drawRow(0, left, f.Registration, ColorCallsign)

	// Row 1: altitude and speed, vertical rate right-aligned.
	r.drawRow(1,
		tracker.FormatAltitude(f.AltitudeM, r.altitudeUnit)+" "+tracker.FormatSpeed(f.SpeedMps),
		tracker.FormatVerticalRate(f.VerticalMps),
		ColorData)

	// Row 2: route, heading right-aligned.
	r.drawRow(2, tracker.FormatRoute(f.Origin, f.Destination), tracker.FormatHeading(f.TrackDeg), ColorRoute)

	// Row 3: distance and octant, rank plus country right-aligned.
	right := ""
	if f.Total > 0 {
		right = "[" + strconv.Itoa(f.Rank) + "/" + strconv.Itoa(f.Total) + "]"
	}
	if cc := countryCode(f.Country); cc != "" {
		right += " " + cc
	}
	r.drawRow(3, tracker.FormatDistance(f.DistanceKm)+" "+f.Octant, right, ColorDistance)
}

// drawStatus shows a single message on the second row.
func (r *Renderer) drawStatus(msg string) {
	DrawText(r.back, 0, RowHeight, msg, ColorStatus)
}

// drawRow draws left-aligned and right-aligned text on row (0..3).
func (r *Renderer) drawRow(row int, left, right string, c Color) {
	y := row * RowHeight
	DrawText(r.back, 0, y, left, c)
	if right != "" {
		DrawText(r.back, Width-TextWidth(right), y, right, c)
	}
}

// shutdown shows a goodbye frame briefly, then clears and closes the sink.
func (r *Renderer) shutdown() {
	r.back.Clear()
	r.drawStatus("Goodbye!")
	if err := r.sink.Show(r.back); err == nil {
		time.Sleep(time.Second)
	}
	if err := r.sink.Clear(); err != nil {
		r.logger.Warn("Failed to clear panel", logger.Error(err))
	}
	if err := r.sink.Close(); err != nil {
		r.logger.Warn("Failed to close sink", logger.Error(err))
	}
	r.logger.Info("Render loop stopped")
}

func countryCode(country string) string {
	if country == "" {
		return ""
	}
	runes := []rune(country)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	out := make([]rune, len(runes))
	for i, r := range runes {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out[i] = r
	}
	return string(out)
}
