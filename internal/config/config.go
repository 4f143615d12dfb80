package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Home       HomeConfig       `toml:"home"`       // Observer location settings
	OpenSky    OpenSkyConfig    `toml:"opensky"`    // Aircraft state data source settings
	Filtering  FilteringConfig  `toml:"filtering"`  // Flight filtering rules
	Enrichment EnrichmentConfig `toml:"enrichment"` // Route and aircraft type lookup settings
	Display    DisplayConfig    `toml:"display"`    // LED panel rendering settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the status API
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// HomeConfig contains the observer location the display is centered on
type HomeConfig struct {
	Latitude  float64 `toml:"latitude"`  // Latitude of the home location in decimal degrees
	Longitude float64 `toml:"longitude"` // Longitude of the home location in decimal degrees
}

// OpenSkyConfig contains OpenSky API data source configuration
type OpenSkyConfig struct {
	BaseURL          string  `toml:"base_url"`              // API base URL, defaults to https://opensky-network.org/api
	ClientID         string  `toml:"client_id"`             // OAuth2 client ID (empty = anonymous access)
	ClientSecret     string  `toml:"client_secret"`         // OAuth2 client secret
	TokenURL         string  `toml:"token_url"`             // OAuth2 token endpoint override
	RadiusKm         float64 `toml:"radius_km"`             // Half-width of the query bounding box in kilometers
	PollIntervalSecs int     `toml:"poll_interval_seconds"` // How often to fetch new state vectors (in seconds)
	TimeoutSecs      int     `toml:"timeout_seconds"`       // HTTP timeout for API requests in seconds
}

// FilteringConfig contains rules for which flights are shown
type FilteringConfig struct {
	MaxDistanceKm          float64 `toml:"max_distance_km"`          // Flights farther than this from home are dropped
	MinAltitudeM           float64 `toml:"min_altitude_m"`           // Flights below this barometric altitude (meters) are dropped
	ExcludeOnGround        bool    `toml:"exclude_on_ground"`        // Drop aircraft reporting on-ground
	IncludeUnknownAltitude bool    `toml:"include_unknown_altitude"` // Keep flights with no altitude report instead of dropping them
}

// EnrichmentConfig contains settings for route and aircraft type lookups
type EnrichmentConfig struct {
	Limit           int     `toml:"limit"`               // Number of top-ranked flights to enrich per cycle
	RouteBaseURL    string  `toml:"route_base_url"`      // Route lookup API base URL, defaults to https://api.adsbdb.com/v0
	TypeBaseURL     string  `toml:"type_base_url"`       // Aircraft metadata API base URL, defaults to https://opensky-network.org/api
	RouteTTLMins    int     `toml:"route_ttl_minutes"`   // Cache lifetime for resolved routes in minutes
	TypeTTLMins     int     `toml:"type_ttl_minutes"`    // Cache lifetime for resolved aircraft types in minutes
	FailedTTLMins   int     `toml:"failed_ttl_minutes"`  // Cache lifetime for failed lookups in minutes
	RatePerSec      float64 `toml:"rate_per_second"`     // Lookup rate limit in requests per second
	TimeoutSecs     int     `toml:"timeout_seconds"`     // HTTP timeout for lookup requests in seconds
	SweepEveryPolls int     `toml:"sweep_every_polls"`   // Cache sweep cadence, in poll cycles
}

// DisplayConfig contains LED panel rendering configuration
type DisplayConfig struct {
	Sink              string  `toml:"sink"`                // Output sink: "terminal" (tcell emulator) or "headless"
	FallbackHeadless  bool    `toml:"fallback_headless"`   // Fall back to the headless sink when the terminal is unavailable
	Brightness        float64 `toml:"brightness"`          // Panel brightness scale, 0.0-1.0
	CycleIntervalSecs float64 `toml:"cycle_interval_seconds"` // How long each flight stays on screen before cycling
	TickHz            float64 `toml:"tick_hz"`             // Render loop frequency
	AltitudeUnit      string  `toml:"altitude_unit"`       // "fl" (flight levels) or "ft"
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults for optional fields
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}

	// Validate home location
	if c.Home.Latitude < -90 || c.Home.Latitude > 90 {
		return fmt.Errorf("invalid home latitude: %f", c.Home.Latitude)
	}
	if c.Home.Longitude < -180 || c.Home.Longitude > 180 {
		return fmt.Errorf("invalid home longitude: %f", c.Home.Longitude)
	}

	// Validate OpenSky config
	if c.OpenSky.RadiusKm == 0 {
		c.OpenSky.RadiusKm = 50
	}
	if c.OpenSky.RadiusKm <= 0 {
		return fmt.Errorf("opensky radius_km must be positive: %f", c.OpenSky.RadiusKm)
	}
	if c.OpenSky.PollIntervalSecs == 0 {
		c.OpenSky.PollIntervalSecs = 10
	}
	if c.OpenSky.PollIntervalSecs <= 0 {
		return fmt.Errorf("invalid poll interval: %d", c.OpenSky.PollIntervalSecs)
	}
	if c.OpenSky.TimeoutSecs == 0 {
		c.OpenSky.TimeoutSecs = 10
	}
	if c.OpenSky.TimeoutSecs <= 0 {
		return fmt.Errorf("invalid opensky timeout: %d", c.OpenSky.TimeoutSecs)
	}
	if (c.OpenSky.ClientID == "") != (c.OpenSky.ClientSecret == "") {
		return fmt.Errorf("opensky client_id and client_secret must be set together")
	}

	// Validate filtering config
	if c.Filtering.MaxDistanceKm == 0 {
		c.Filtering.MaxDistanceKm = 50
	}
	if c.Filtering.MaxDistanceKm <= 0 {
		return fmt.Errorf("filtering max_distance_km must be positive: %f", c.Filtering.MaxDistanceKm)
	}
	if c.Filtering.MinAltitudeM < 0 {
		return fmt.Errorf("filtering min_altitude_m must be >= 0: %f", c.Filtering.MinAltitudeM)
	}

	// Validate enrichment config
	if c.Enrichment.Limit == 0 {
		c.Enrichment.Limit = 3
	}
	if c.Enrichment.Limit < 0 {
		return fmt.Errorf("enrichment limit must be >= 0: %d", c.Enrichment.Limit)
	}
	if c.Enrichment.RouteTTLMins == 0 {
		c.Enrichment.RouteTTLMins = 60
	}
	if c.Enrichment.TypeTTLMins == 0 {
		c.Enrichment.TypeTTLMins = 24 * 60
	}
	if c.Enrichment.FailedTTLMins == 0 {
		c.Enrichment.FailedTTLMins = 5
	}
	if c.Enrichment.RouteTTLMins < 0 || c.Enrichment.TypeTTLMins < 0 || c.Enrichment.FailedTTLMins < 0 {
		return fmt.Errorf("enrichment TTLs must be >= 0")
	}
	if c.Enrichment.RatePerSec == 0 {
		c.Enrichment.RatePerSec = 1
	}
	if c.Enrichment.RatePerSec < 0 {
		return fmt.Errorf("enrichment rate_per_second must be >= 0: %f", c.Enrichment.RatePerSec)
	}
	if c.Enrichment.TimeoutSecs == 0 {
		c.Enrichment.TimeoutSecs = 10
	}
	if c.Enrichment.SweepEveryPolls == 0 {
		c.Enrichment.SweepEveryPolls = 20
	}
	if c.Enrichment.SweepEveryPolls < 0 {
		return fmt.Errorf("enrichment sweep_every_polls must be >= 0: %d", c.Enrichment.SweepEveryPolls)
	}

	// Validate display config
	if c.Display.Sink == "" {
		c.Display.Sink = "terminal"
	}
	if c.Display.Sink != "terminal" && c.Display.Sink != "headless" {
		return fmt.Errorf("invalid display sink: %s (must be 'terminal' or 'headless')", c.Display.Sink)
	}
	if c.Display.Brightness == 0 {
		c.Display.Brightness = 1.0
	}
	if c.Display.Brightness < 0 || c.Display.Brightness > 1 {
		return fmt.Errorf("display brightness must be between 0.0 and 1.0: %f", c.Display.Brightness)
	}
	if c.Display.CycleIntervalSecs == 0 {
		c.Display.CycleIntervalSecs = 5
	}
	if c.Display.CycleIntervalSecs <= 0 {
		return fmt.Errorf("display cycle_interval_seconds must be positive: %f", c.Display.CycleIntervalSecs)
	}
	if c.Display.TickHz == 0 {
		c.Display.TickHz = 10
	}
	if c.Display.TickHz <= 0 {
		return fmt.Errorf("display tick_hz must be positive: %f", c.Display.TickHz)
	}
	if c.Display.AltitudeUnit == "" {
		c.Display.AltitudeUnit = "fl"
	}
	if c.Display.AltitudeUnit != "fl" && c.Display.AltitudeUnit != "ft" {
		return fmt.Errorf("invalid altitude unit: %s (must be 'fl' or 'ft')", c.Display.AltitudeUnit)
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// PollInterval returns the poll interval as a duration
func (c *OpenSkyConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// Timeout returns the HTTP timeout as a duration
func (c *OpenSkyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RouteTTL returns the route cache lifetime as a duration
func (c *EnrichmentConfig) RouteTTL() time.Duration {
	return time.Duration(c.RouteTTLMins) * time.Minute
}

// TypeTTL returns the aircraft type cache lifetime as a duration
func (c *EnrichmentConfig) TypeTTL() time.Duration {
	return time.Duration(c.TypeTTLMins) * time.Minute
}

// FailedTTL returns the negative cache lifetime as a duration
func (c *EnrichmentConfig) FailedTTL() time.Duration {
	return time.Duration(c.FailedTTLMins) * time.Minute
}

// CycleInterval returns the per-flight display time as a duration
func (c *DisplayConfig) CycleInterval() time.Duration {
	return time.Duration(c.CycleIntervalSecs * float64(time.Second))
}

// TickInterval returns the render loop period as a duration
func (c *DisplayConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.TickHz)
}
