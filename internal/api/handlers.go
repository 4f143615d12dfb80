package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rl-enjoyer/flight-display/internal/tracker"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

// TrackerService is the slice of the tracker the API reads from.
type TrackerService interface {
	Snapshot() *tracker.Snapshot
	Status() tracker.Status
}

// Handler contains the API handlers
type Handler struct {
	tracker TrackerService
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(trackerService TrackerService, log *logger.Logger) *Handler {
	return &Handler{
		tracker: trackerService,
		logger:  log.Named("api-handler"),
	}
}

// flightsResponse wraps the snapshot for the flights endpoint. Scanning is
// true until the first successful poll.
type flightsResponse struct {
	Scanning  bool                    `json:"scanning"`
	Flights   []tracker.DisplayFlight `json:"flights"`
	Version   uint64                  `json:"version"`
	FetchedAt *time.Time              `json:"fetched_at,omitempty"`
}

// GetFlights returns the currently displayed flights
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	resp := flightsResponse{Scanning: true, Flights: []tracker.DisplayFlight{}}
	if snap := h.tracker.Snapshot(); snap != nil {
		resp.Scanning = false
		resp.Flights = snap.Flights
		resp.Version = snap.Version
		resp.FetchedAt = &snap.FetchedAt
	}
	h.writeJSON(w, resp)
}

// GetStatus returns poll loop health
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.tracker.Status())
}

// GetHealth returns a basic liveness response
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}
