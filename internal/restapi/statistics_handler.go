package restapi

import (
	"net/http"
	"strings"

	"github.com/ibi-group/sAVe/internal/models"
)

// statFilter pulls the optional flag filter out of the query string:
// ?flags=ada,senior&conjunction=or. An empty flags parameter means no
// filtering.
func statFilter(r *http.Request) (flags []string, conjunction string) {
	raw := strings.TrimSpace(r.URL.Query().Get("flags"))
	if raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				flags = append(flags, f)
			}
		}
	}
	conjunction = r.URL.Query().Get("conjunction")
	if conjunction == "" {
		conjunction = "AND"
	}
	return flags, conjunction
}

// statisticsHandler returns the per-flag and per-mode itinerary counts.
func (api *RestAPI) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	if !api.HasValidAPIKey(r) {
		api.sendUnauthorized(w, r)
		return
	}

	counts, err := api.TripDB.GetTripStatistics(r.Context())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(counts, api.Clock))
}

// totalsHandler returns planned/chosen totals, optionally filtered by
// flags.
func (api *RestAPI) totalsHandler(w http.ResponseWriter, r *http.Request) {
	if !api.HasValidAPIKey(r) {
		api.sendUnauthorized(w, r)
		return
	}

	flags, conjunction := statFilter(r)

	if len(flags) == 0 {
		totals, err := api.TripDB.GetTotals(r.Context())
		if err != nil {
			api.serverErrorResponse(w, r, err)
			return
		}
		api.sendResponse(w, r, models.NewOKResponse(totals, api.Clock))
		return
	}

	totals, err := api.TripDB.GetStatistic(r.Context(), flags, conjunction)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(totals, api.Clock))
}

// locationsHandler returns recorded origin/destination coordinate pairs,
// optionally filtered by flags.
func (api *RestAPI) locationsHandler(w http.ResponseWriter, r *http.Request) {
	if !api.HasValidAPIKey(r) {
		api.sendUnauthorized(w, r)
		return
	}

	flags, conjunction := statFilter(r)

	if len(flags) == 0 {
		pairs, err := api.TripDB.GetAllLocations(r.Context())
		if err != nil {
			api.serverErrorResponse(w, r, err)
			return
		}
		api.sendResponse(w, r, models.NewOKResponse(pairs, api.Clock))
		return
	}

	pairs, err := api.TripDB.GetFilteredLocations(r.Context(), flags, conjunction)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(pairs, api.Clock))
}
