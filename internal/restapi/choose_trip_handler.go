package restapi

import (
	"net/http"
	"strconv"

	"github.com/ibi-group/sAVe/internal/models"
)

// chooseTripHandler marks one previously returned itinerary as the one the
// rider took. The ID is the itinerary ID from a directions response.
func (api *RestAPI) chooseTripHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		api.sendError(w, r, http.StatusBadRequest, "invalid itinerary id")
		return
	}

	if err := api.TripDB.ChooseTrip(r.Context(), id); err != nil {
		api.sendNotFound(w, r)
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(nil, api.Clock))
}
