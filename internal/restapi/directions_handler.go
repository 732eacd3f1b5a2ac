package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ibi-group/sAVe/internal/geocode"
	"github.com/ibi-group/sAVe/internal/models"
)

// DefaultRadiusKm is the station/bike search radius used when a request
// does not specify one.
const DefaultRadiusKm = 0.5

var validate = validator.New()

type directionsRequest struct {
	Origin      string             `json:"origin" validate:"required"`
	Destination string             `json:"destination" validate:"required"`
	RadiusKm    float64            `json:"radius_km" validate:"gte=0"`
	UserID      int64              `json:"user_id" validate:"gte=0"`
	Preferences models.Preferences `json:"preferences"`
}

// directionsHandler plans a trip between two addresses and returns the
// itineraries plus the change-set applied while shaping them.
func (api *RestAPI) directionsHandler(w http.ResponseWriter, r *http.Request) {
	var req directionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Preferences.Income < 0 {
		api.sendError(w, r, http.StatusBadRequest, "income must not be negative")
		return
	}
	if req.RadiusKm == 0 {
		req.RadiusKm = DefaultRadiusKm
	}

	trip, changes, err := api.Planner.PlanTrip(r.Context(),
		req.Origin, req.Destination, req.RadiusKm, req.Preferences, req.UserID)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			api.sendError(w, r, http.StatusUnprocessableEntity, "address could not be located")
			return
		}
		api.sendError(w, r, http.StatusBadGateway, "trip planning failed")
		return
	}

	data := models.DirectionsData{Trip: trip, Changes: changes}
	api.sendResponse(w, r, models.NewOKResponse(data, api.Clock))
}

func validationMessage(err error) string {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) && len(invalid) > 0 {
		first := invalid[0]
		switch first.Tag() {
		case "required":
			return "missing required field: " + first.Field()
		case "gte":
			return "field out of range: " + first.Field()
		}
	}
	return "invalid request"
}
