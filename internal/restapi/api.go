// Package restapi exposes the trip planner over HTTP.
package restapi

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ibi-group/sAVe/internal/app"
)

// RestAPI holds the handlers for the JSON API.
type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI creates the API surface over the application container.
func NewRestAPI(application *app.Application) *RestAPI {
	return &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(
			application.Config.RateLimit,
			time.Second,
			application.Config.ApiKeys,
			application.Clock,
		),
	}
}

// SetRoutes registers the API routes and wraps them in the middleware
// chain: request ID, request logging, metrics, rate limiting, gzip.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/directions", api.directionsHandler)
	mux.HandleFunc("POST /api/trips/{id}/choose", api.chooseTripHandler)
	mux.HandleFunc("GET /api/statistics", api.statisticsHandler)
	mux.HandleFunc("GET /api/statistics/totals", api.totalsHandler)
	mux.HandleFunc("GET /api/statistics/locations", api.locationsHandler)
	mux.HandleFunc("GET /api/current-time", api.currentTimeHandler)
	mux.HandleFunc("GET /health", api.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(
		api.Metrics.Registry, promhttp.HandlerOpts{}))
}

// Handler wraps the mux in the middleware chain.
func (api *RestAPI) Handler(mux *http.ServeMux) http.Handler {
	var handler http.Handler = mux
	handler = gzhttp.GzipHandler(handler)
	handler = api.rateLimiter.Handler()(handler)
	handler = MetricsHandler(api.Metrics)(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// Shutdown releases background resources held by the middleware.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
