package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rl-enjoyer/flight-display/internal/api"
	"github.com/rl-enjoyer/flight-display/internal/config"
	"github.com/rl-enjoyer/flight-display/internal/display"
	"github.com/rl-enjoyer/flight-display/internal/display/term"
	"github.com/rl-enjoyer/flight-display/internal/metadata"
	"github.com/rl-enjoyer/flight-display/internal/opensky"
	"github.com/rl-enjoyer/flight-display/internal/tracker"
	"github.com/rl-enjoyer/flight-display/internal/websocket"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	log.Info("Starting flight display",
		logger.String("version", Version),
		logger.Float64("home_lat", cfg.Home.Latitude),
		logger.Float64("home_lon", cfg.Home.Longitude),
		logger.Float64("radius_km", cfg.OpenSky.RadiusKm),
	)

	// Rendering sink first: an unusable sink with no fallback is the one
	// startup failure the process must exit non-zero on.
	sink, quitCh, err := newSink(cfg, log)
	if err != nil {
		log.Error("Failed to initialize display sink", logger.Error(err))
		return 1
	}

	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	openskyClient := opensky.NewClient(opensky.Options{
		BaseURL:      cfg.OpenSky.BaseURL,
		ClientID:     cfg.OpenSky.ClientID,
		ClientSecret: cfg.OpenSky.ClientSecret,
		TokenURL:     cfg.OpenSky.TokenURL,
		Timeout:      cfg.OpenSky.Timeout(),
	}, log)

	metaFetcher := metadata.NewFetcher(metadata.Options{
		RouteBaseURL: cfg.Enrichment.RouteBaseURL,
		TypeBaseURL:  cfg.Enrichment.TypeBaseURL,
		Timeout:      time.Duration(cfg.Enrichment.TimeoutSecs) * time.Second,
		TTL: metadata.TTLs{
			Route:  cfg.Enrichment.RouteTTL(),
			Type:   cfg.Enrichment.TypeTTL(),
			Failed: cfg.Enrichment.FailedTTL(),
		},
		RatePerSec: cfg.Enrichment.RatePerSec,
	}, log)

	trackerService := tracker.NewService(openskyClient, metaFetcher, wsServer, tracker.ServiceOptions{
		HomeLat:      cfg.Home.Latitude,
		HomeLon:      cfg.Home.Longitude,
		RadiusKm:     cfg.OpenSky.RadiusKm,
		PollInterval: cfg.OpenSky.PollInterval(),
		Rules: tracker.FilterRules{
			HomeLat:                cfg.Home.Latitude,
			HomeLon:                cfg.Home.Longitude,
			MaxDistanceKm:          cfg.Filtering.MaxDistanceKm,
			MinAltitudeM:           cfg.Filtering.MinAltitudeM,
			ExcludeOnGround:        cfg.Filtering.ExcludeOnGround,
			IncludeUnknownAltitude: cfg.Filtering.IncludeUnknownAltitude,
		},
		EnrichmentLimit: cfg.Enrichment.Limit,
		SweepEveryPolls: cfg.Enrichment.SweepEveryPolls,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := trackerService.Start(ctx); err != nil {
		log.Error("Failed to start tracker service", logger.Error(err))
		return 1
	}

	router := api.NewRouter(api.NewHandler(trackerService, log), wsServer, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.Error(err))
		}
	}()

	renderer := display.NewRenderer(sink, trackerService, display.RendererOptions{
		CycleInterval: cfg.Display.CycleInterval(),
		TickInterval:  cfg.Display.TickInterval(),
		Brightness:    cfg.Display.Brightness,
		AltitudeUnit:  cfg.Display.AltitudeUnit,
	}, log)

	// Cancel the render context on SIGINT/SIGTERM or the emulator quit key.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("Received signal, shutting down", logger.String("signal", sig.String()))
		case <-quitCh:
			log.Info("Quit requested from display")
		case <-ctx.Done():
			return
		}
		cancel()
	}()

	// The render loop owns the main goroutine until shutdown.
	if err := renderer.Run(ctx); err != nil {
		log.Error("Render loop failed", logger.Error(err))
	}

	log.Info("Shutting down...")
	trackerService.Stop()
	wsServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Shutdown complete")
	return 0
}

// newSink builds the configured rendering sink. A dead quit channel is
// returned for sinks with no user input.
func newSink(cfg *config.Config, log *logger.Logger) (display.Sink, <-chan struct{}, error) {
	switch cfg.Display.Sink {
	case "headless":
		log.Info("Using headless display sink")
		return display.NewHeadlessSink(), make(chan struct{}), nil
	default:
		sink, err := term.NewSink()
		if err != nil {
			if cfg.Display.FallbackHeadless {
				log.Warn("Terminal unavailable, falling back to headless sink", logger.Error(err))
				return display.NewHeadlessSink(), make(chan struct{}), nil
			}
			return nil, nil, err
		}
		return sink, sink.Quit(), nil
	}
}
