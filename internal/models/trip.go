package models

import "time"

// TravelMode tags a Leg with its mode of travel.
type TravelMode string

const (
	ModeWalk      TravelMode = "walk"
	ModeBike      TravelMode = "bike"
	ModeMetro     TravelMode = "metro"
	ModeTrain     TravelMode = "train"
	ModeRideshare TravelMode = "rideshare"
)

// Place identifies a named stop on a leg. For metro legs the ID is the
// GTFS stop ID used to match realtime stop-time updates.
type Place struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Geometry is the coordinate trace of a leg as [lon, lat] pairs.
type Geometry struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// Leg is one uninterrupted segment of an itinerary in a single travel mode.
// All fields a leg can ever carry are declared up front; the routing
// provider, shaper, and annotator fill in the subset that applies to the
// leg's mode.
//
// RealTime is nil until the annotator has run. After a successful
// annotation every metro leg carries a non-nil slice, empty when the feed
// had no usable arrivals. A nil RealTime on one metro leg therefore means
// the whole trip is unannotated.
type Leg struct {
	Mode         TravelMode `json:"mode"`
	StationStart *Place     `json:"station_start,omitempty"`
	StationEnd   *Place     `json:"station_end,omitempty"`
	TransitRoute string     `json:"transit_route,omitempty"`
	Geometry     Geometry   `json:"geometry"`
	StartTime    time.Time  `json:"start_time,omitzero"`
	EndTime      time.Time  `json:"end_time,omitzero"`

	// Rideshare-only fields: the pickup/dropoff anchor is the station name
	// of the adjacent surviving leg, and PickupMinutes is how many minutes
	// from now the rideshare would need to arrive.
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	PickupMinutes int    `json:"pickup_minutes,omitempty"`

	// Metro-only: minutes-from-now arrival predictions, deduplicated,
	// ascending. omitzero rather than omitempty: an annotated leg with no
	// usable arrivals carries a non-nil empty slice and serializes as [].
	RealTime []int `json:"real_time,omitzero"`
}

// NewRideshareLeg returns a rideshare leg with no anchors set.
// The shaper fills in Start/End/Geometry from the surviving legs.
func NewRideshareLeg() Leg {
	return Leg{Mode: ModeRideshare}
}

// Itinerary is one full candidate trip, an ordered sequence of legs.
// ID is the statistics-store row ID, assigned at persistence time.
type Itinerary struct {
	ID   int64 `json:"id,omitempty"`
	Legs []Leg `json:"legs"`
}

// IsRideshareOnly reports whether the itinerary is a single rideshare leg,
// which is the marker that rideshare splicing already ran on it.
func (it *Itinerary) IsRideshareOnly() bool {
	return len(it.Legs) == 1 && it.Legs[0].Mode == ModeRideshare
}

// Trip is the mutable aggregate produced by the routing provider and
// reworked in place by the shaper and annotator. It is owned exclusively
// by the request that produced it.
type Trip struct {
	ID          int64       `json:"id,omitempty"`
	Itineraries []Itinerary `json:"trips"`
}

// MetroRoutesAndStops collects the distinct transit routes and start-station
// stop IDs across all metro legs. Non-metro legs never contribute, which
// keeps the realtime fetch limited to the feeds the trip actually touches.
func (t *Trip) MetroRoutesAndStops() (routes map[string]struct{}, stops map[string]struct{}) {
	routes = make(map[string]struct{})
	stops = make(map[string]struct{})
	for i := range t.Itineraries {
		for j := range t.Itineraries[i].Legs {
			leg := &t.Itineraries[i].Legs[j]
			if leg.Mode != ModeMetro {
				continue
			}
			if leg.TransitRoute != "" {
				routes[leg.TransitRoute] = struct{}{}
			}
			if leg.StationStart != nil && leg.StationStart.ID != "" {
				stops[leg.StationStart.ID] = struct{}{}
			}
		}
	}
	return routes, stops
}
