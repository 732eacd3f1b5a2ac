package restapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibi-group/sAVe/internal/app"
	"github.com/ibi-group/sAVe/internal/appconf"
	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/geocode"
	"github.com/ibi-group/sAVe/internal/metrics"
	"github.com/ibi-group/sAVe/internal/models"
	"github.com/ibi-group/sAVe/internal/planner"
	"github.com/ibi-group/sAVe/internal/stations"
	"github.com/ibi-group/sAVe/tripdb"

	"github.com/OneBusAway/go-gtfs"
)

// Stubs for the planner's collaborators so handler tests never touch the
// network.

type fixedGeocoder struct {
	coords map[string][2]float64
}

func (g *fixedGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	if c, ok := g.coords[address]; ok {
		return c[0], c[1], nil
	}
	return 0, 0, fmt.Errorf("geocoding %q: %w", address, geocode.ErrNotFound)
}

type fixedRouter struct {
	trip func(now time.Time) *models.Trip
	err  error
}

func (r *fixedRouter) Route(ctx context.Context, oLat, oLon, dLat, dLon float64, accessible bool) (*models.Trip, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.trip(time.Now()), nil
}

type fixedLocator struct{ near bool }

func (l *fixedLocator) AnyNear(ctx context.Context, lat, lon, radiusKm float64) (bool, error) {
	return l.near, nil
}

type fixedFeeds struct{}

func (fixedFeeds) FetchFeeds(ctx context.Context, lines map[string]struct{}) (map[string]*gtfs.Realtime, error) {
	return nil, nil
}

var testStations = []models.Station{
	{StopID: "127", Name: "Times Sq-42 St", Lat: 40.75529, Lon: -73.987495},
	{StopID: "631", Name: "Grand Central-42 St", Lat: 40.751776, Lon: -73.976848},
}

func metroTestTrip(now time.Time) *models.Trip {
	return &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{
			{
				Mode:         models.ModeMetro,
				TransitRoute: "2",
				StationStart: &models.Place{ID: "127", Name: "Times Sq-42 St"},
				StationEnd:   &models.Place{ID: "631", Name: "Grand Central-42 St"},
				StartTime:    now.Add(5 * time.Minute),
				EndTime:      now.Add(12 * time.Minute),
			},
		}},
	}}
}

type testAPI struct {
	*RestAPI
	tripDB *tripdb.Client
	clock  *clock.MockClock
	router *fixedRouter
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := appconf.Config{
		Port:      4000,
		Env:       appconf.Test,
		ApiKeys:   []string{"test"},
		RateLimit: 100,
	}

	tripDB, err := tripdb.NewClient(tripdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tripDB.Close() })

	mockClock := clock.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	index := stations.NewIndex(testStations)
	geocoder := &fixedGeocoder{coords: map[string][2]float64{
		"times square":  {40.7555, -73.9870},
		"grand central": {40.7520, -73.9770},
	}}
	router := &fixedRouter{trip: metroTestTrip}

	shaper := planner.NewShaper(index, models.AccessibilityFlags{}, &fixedLocator{}, mockClock)
	annotator := planner.NewAnnotator(fixedFeeds{}, mockClock)
	tripPlanner := planner.NewPlanner(
		geocoder, router, shaper, annotator, tripDB, m, mockClock, logger)

	application := &app.Application{
		Config:   cfg,
		Logger:   logger,
		Clock:    mockClock,
		Metrics:  m,
		Planner:  tripPlanner,
		Stations: index,
		TripDB:   tripDB,
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)

	return &testAPI{RestAPI: api, tripDB: tripDB, clock: mockClock, router: router}
}
