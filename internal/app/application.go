// Package app holds the dependency container shared by HTTP handlers and
// middleware.
package app

import (
	"log/slog"

	"github.com/ibi-group/sAVe/internal/appconf"
	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/metrics"
	"github.com/ibi-group/sAVe/internal/planner"
	"github.com/ibi-group/sAVe/internal/stations"
	"github.com/ibi-group/sAVe/tripdb"
)

// Application holds the dependencies for our HTTP handlers, helpers, and
// middleware.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Planner  *planner.Planner
	Stations *stations.Index
	TripDB   *tripdb.Client
}
