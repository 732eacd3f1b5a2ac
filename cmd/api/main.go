package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ibi-group/sAVe/internal/app"
	"github.com/ibi-group/sAVe/internal/appconf"
	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/feeds"
	"github.com/ibi-group/sAVe/internal/geocode"
	"github.com/ibi-group/sAVe/internal/logging"
	"github.com/ibi-group/sAVe/internal/metrics"
	"github.com/ibi-group/sAVe/internal/micromobility"
	"github.com/ibi-group/sAVe/internal/planner"
	"github.com/ibi-group/sAVe/internal/restapi"
	"github.com/ibi-group/sAVe/internal/routing"
	"github.com/ibi-group/sAVe/internal/stations"
	"github.com/ibi-group/sAVe/internal/webui"
	"github.com/ibi-group/sAVe/tripdb"
)

// DataConfig points at the reference data and external services the
// planner needs. URLs and keys for external services come from the
// environment so deployments never put secrets on the command line.
type DataConfig struct {
	StationsPath string
	AccessPath   string
	FeedsPath    string
	TripDBPath   string
	GeocoderURL  string
	GeocoderKey  string
	RouterURL    string
	RouterKey    string
	FeedsURL     string
	FeedsKey     string
	MobilityURL  string
	MobilityKey  string
	Verbose      bool
}

func main() {
	var cfg appconf.Config
	var data DataConfig
	var envFlag, apiKeys string

	flag.IntVar(&cfg.Port, "port", 4000, "API server port")
	flag.StringVar(&envFlag, "env", "development", "Environment (development|test|production)")
	flag.StringVar(&apiKeys, "api-keys", "test", "Comma-delimited list of valid API keys")
	flag.IntVar(&cfg.RateLimit, "rate-limit", 100, "Requests per second allowed per API key")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Verbose logging")
	flag.StringVar(&data.StationsPath, "stations", "data/stations.csv", "Path to the station reference CSV")
	flag.StringVar(&data.AccessPath, "accessibility", "data/equipment.xml", "Path to the accessibility equipment XML")
	flag.StringVar(&data.FeedsPath, "feeds", "", "Path to a feed registry YAML (empty for the built-in mapping)")
	flag.StringVar(&data.TripDBPath, "trip-db", "trips.db", "Path to the trip statistics SQLite database")
	flag.Parse()

	cfg.Env = appconf.EnvFromString(envFlag)
	cfg.ApiKeys = ParseAPIKeys(apiKeys)
	data.Verbose = cfg.Verbose

	// Optional; real deployments set environment variables directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env file: %v", err)
	}
	data.GeocoderURL = os.Getenv("SAVE_GEOCODER_URL")
	data.GeocoderKey = os.Getenv("SAVE_GEOCODER_KEY")
	data.RouterURL = os.Getenv("SAVE_ROUTER_URL")
	data.RouterKey = os.Getenv("SAVE_ROUTER_KEY")
	data.FeedsURL = os.Getenv("SAVE_FEEDS_URL")
	data.FeedsKey = os.Getenv("SAVE_FEEDS_KEY")
	data.MobilityURL = os.Getenv("SAVE_MOBILITY_URL")
	data.MobilityKey = os.Getenv("SAVE_MOBILITY_KEY")

	coreApp, err := BuildApplication(cfg, data)
	if err != nil {
		log.Fatal(err)
	}

	if err := Run(coreApp, cfg); err != nil {
		log.Fatal(err)
	}
}

// ParseAPIKeys splits a comma-delimited key list, trimming whitespace.
func ParseAPIKeys(input string) []string {
	keys := strings.Split(input, ",")
	for i, key := range keys {
		keys[i] = strings.TrimSpace(key)
	}
	if input == "" {
		return []string{}
	}
	return keys
}

// BuildApplication loads the reference data, opens the statistics store,
// and wires the trip planning pipeline.
func BuildApplication(cfg appconf.Config, data DataConfig) (*app.Application, error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	appMetrics := metrics.NewWithLogger(logger)
	realClock := clock.RealClock{}

	stationIndex, err := stations.LoadIndex(data.StationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load station index: %w", err)
	}
	access, err := stations.LoadAccessibility(data.AccessPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load accessibility data: %w", err)
	}
	registry, err := feeds.LoadRegistry(data.FeedsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed registry: %w", err)
	}

	tripDB, err := tripdb.NewClient(tripdb.NewConfig(data.TripDBPath, cfg.Env, cfg.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to open trip statistics store: %w", err)
	}
	appMetrics.StartDBStatsCollector(tripDB.DB, 15*time.Second)

	geocoder := geocode.NewClient(data.GeocoderURL, data.GeocoderKey)
	router := routing.NewClient(data.RouterURL, data.RouterKey)
	bikes := micromobility.NewClient(data.MobilityURL, data.MobilityKey)
	fetcher := feeds.NewFetcher(data.FeedsURL, data.FeedsKey, registry, appMetrics)

	shaper := planner.NewShaper(stationIndex, access, bikes, realClock)
	annotator := planner.NewAnnotator(fetcher, realClock)
	tripPlanner := planner.NewPlanner(
		geocoder, router, shaper, annotator, tripDB, appMetrics, realClock, logger)

	return &app.Application{
		Config:   cfg,
		Logger:   logger,
		Clock:    realClock,
		Metrics:  appMetrics,
		Planner:  tripPlanner,
		Stations: stationIndex,
		TripDB:   tripDB,
	}, nil
}

// CreateServer builds the HTTP server with the full middleware chain.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	mux := http.NewServeMux()

	api := restapi.NewRestAPI(coreApp)
	api.SetRoutes(mux)

	ui := webui.NewWebUI(coreApp)
	ui.SetRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv, api
}

// Run starts the server and blocks until SIGINT/SIGTERM, then drains
// in-flight requests before releasing resources.
func Run(coreApp *app.Application, cfg appconf.Config) error {
	srv, api := CreateServer(coreApp, cfg)
	defer api.Shutdown()
	defer coreApp.Metrics.Shutdown()
	defer logging.SafeCloseWithLogging(coreApp.TripDB, coreApp.Logger, "trip_db")

	errChan := make(chan error, 1)
	go func() {
		coreApp.Logger.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.String("env", cfg.Env.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-stop:
		coreApp.Logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
