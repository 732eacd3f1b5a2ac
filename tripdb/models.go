package tripdb

import (
	"time"

	"github.com/ibi-group/sAVe/internal/models"
)

// TripRecord is everything the planner knows about one planned trip at
// persistence time. One record fans out to one row per itinerary, all
// sharing a trip_id.
type TripRecord struct {
	Origin      string
	Destination string
	OriginLat   float64
	OriginLon   float64
	DestLat     float64
	DestLon     float64
	Trip        *models.Trip
	Changes     models.Changes
	UserID      int64
	PlannedAt   time.Time
}

// Totals is the count of planned itineraries and how many were chosen.
type Totals struct {
	Trips  int64 `json:"trips"`
	Chosen int64 `json:"chosen"`
}

// FlagCounts aggregates how often each modifier and travel mode appeared
// across all recorded itineraries.
type FlagCounts struct {
	ADA           int64 `json:"ada"`
	Student       int64 `json:"student"`
	LowIncome     int64 `json:"low_income"`
	Senior        int64 `json:"senior"`
	ADADesert     int64 `json:"ada_desert"`
	TransitDesert int64 `json:"transit_desert"`
	Walk          int64 `json:"walk"`
	Bike          int64 `json:"bike"`
	Metro         int64 `json:"metro"`
	Train         int64 `json:"train"`
	Rideshare     int64 `json:"rideshare"`
}

// LocationPair is one recorded origin/destination coordinate pair.
type LocationPair struct {
	OriginLat float64 `json:"origin_latitude"`
	OriginLon float64 `json:"origin_longitude"`
	DestLat   float64 `json:"destination_latitude"`
	DestLon   float64 `json:"destination_longitude"`
}
