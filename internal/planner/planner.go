package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/geocode"
	"github.com/ibi-group/sAVe/internal/logging"
	"github.com/ibi-group/sAVe/internal/metrics"
	"github.com/ibi-group/sAVe/internal/models"
	"github.com/ibi-group/sAVe/tripdb"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (float64, float64, error)
}

// Router produces candidate itineraries between two coordinates.
type Router interface {
	Route(ctx context.Context, originLat, originLon, destLat, destLon float64, accessible bool) (*models.Trip, error)
}

// StatsStore records planned trips for later analytics.
type StatsStore interface {
	WriteTrip(ctx context.Context, rec *tripdb.TripRecord) error
}

// Planner runs the full trip pipeline: geocode, shape, route, splice,
// record, annotate.
type Planner struct {
	geocoder  Geocoder
	router    Router
	shaper    *Shaper
	annotator *Annotator
	stats     StatsStore
	metrics   *metrics.Metrics
	clock     clock.Clock
	logger    *slog.Logger
}

// NewPlanner wires the trip pipeline together.
func NewPlanner(
	geocoder Geocoder,
	router Router,
	shaper *Shaper,
	annotator *Annotator,
	stats StatsStore,
	m *metrics.Metrics,
	clk clock.Clock,
	logger *slog.Logger,
) *Planner {
	return &Planner{
		geocoder:  geocoder,
		router:    router,
		shaper:    shaper,
		annotator: annotator,
		stats:     stats,
		metrics:   m,
		clock:     clk,
		logger:    logger,
	}
}

// PlanTrip plans a trip between two street addresses.
//
// Hard failures (geocoding, shaping, routing) abort the plan before
// anything is recorded. Once itineraries exist, recording and annotation
// are both best-effort: a statistics write failure or a feed outage is
// logged and counted, and the trip is still returned to the rider.
func (p *Planner) PlanTrip(
	ctx context.Context,
	originAddr, destAddr string,
	radiusKm float64,
	prefs models.Preferences,
	userID int64,
) (*models.Trip, models.Changes, error) {
	originLat, originLon, err := p.geocoder.Geocode(ctx, originAddr)
	if err != nil {
		p.countPlan(outcomeOf(err))
		return nil, nil, fmt.Errorf("resolving origin: %w", err)
	}
	destLat, destLon, err := p.geocoder.Geocode(ctx, destAddr)
	if err != nil {
		p.countPlan(outcomeOf(err))
		return nil, nil, fmt.Errorf("resolving destination: %w", err)
	}

	changes := models.Changes{}

	routeOriginLat, routeOriginLon, originMoved, err := p.shaper.ResolveEndpoint(
		ctx, originLat, originLon, radiusKm, prefs.ADA, changes)
	if err != nil {
		p.countPlan("shape_error")
		return nil, nil, fmt.Errorf("shaping origin: %w", err)
	}
	routeDestLat, routeDestLon, destMoved, err := p.shaper.ResolveEndpoint(
		ctx, destLat, destLon, radiusKm, prefs.ADA, changes)
	if err != nil {
		p.countPlan("shape_error")
		return nil, nil, fmt.Errorf("shaping destination: %w", err)
	}

	trip, err := p.router.Route(ctx,
		routeOriginLat, routeOriginLon, routeDestLat, routeDestLon, prefs.ADA)
	if err != nil {
		p.countPlan("route_error")
		return nil, nil, fmt.Errorf("routing trip: %w", err)
	}

	if originMoved {
		p.shaper.SpliceRideshare(trip, false)
	}
	if destMoved {
		p.shaper.SpliceRideshare(trip, true)
	}

	if prefs.Student {
		changes.Set(models.ChangeStudent)
	}
	if prefs.Senior {
		changes.Set(models.ChangeSenior)
	}
	if prefs.Income > 0 && prefs.Income <= models.LowIncomeThreshold {
		changes.Set(models.ChangeLowIncome)
	}

	rec := &tripdb.TripRecord{
		Origin:      originAddr,
		Destination: destAddr,
		OriginLat:   originLat,
		OriginLon:   originLon,
		DestLat:     destLat,
		DestLon:     destLon,
		Trip:        trip,
		Changes:     changes,
		UserID:      userID,
		PlannedAt:   p.clock.Now(),
	}
	if err := p.stats.WriteTrip(ctx, rec); err != nil {
		logging.LogError(p.logger, "recording planned trip failed", err,
			slog.String("component", "planner"))
	}

	if err := p.annotator.Annotate(ctx, trip); err != nil {
		p.metrics.AnnotationFailuresTotal.Inc()
		logging.LogError(p.logger, "realtime annotation failed", err,
			slog.String("component", "planner"))
	}

	p.countPlan("ok")
	return trip, changes, nil
}

func (p *Planner) countPlan(outcome string) {
	p.metrics.TripPlansTotal.WithLabelValues(outcome).Inc()
}

func outcomeOf(err error) string {
	if errors.Is(err, geocode.ErrNotFound) {
		return "address_not_found"
	}
	return "geocode_error"
}
