// Package planner shapes trips around the transit network and annotates
// them with live arrival predictions.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/micromobility"
	"github.com/ibi-group/sAVe/internal/models"
	"github.com/ibi-group/sAVe/internal/stations"
)

// Shaper decides the coordinates handed to the routing provider and splices
// rideshare legs onto trips whose endpoints had to move.
type Shaper struct {
	stations *stations.Index
	access   models.AccessibilityFlags
	bikes    micromobility.Locator
	clock    clock.Clock
}

// NewShaper creates a Shaper over the loaded reference data.
func NewShaper(index *stations.Index, access models.AccessibilityFlags, bikes micromobility.Locator, clk clock.Clock) *Shaper {
	return &Shaper{
		stations: index,
		access:   access,
		bikes:    bikes,
		clock:    clk,
	}
}

// ResolveEndpoint decides the coordinate actually sent to the router for
// one end of the trip.
//
// When the rider requires accessible transit, the candidate stations are
// restricted to accessible ones before any radius check, and an
// accessibility desert is flagged when that restricted set has nothing in
// range and no bike signal applies. When neither a bike nor a station is
// within radius of the true coordinate, the endpoint snaps to the nearest
// (possibly accessibility-filtered) station and the trip is flagged as a
// transit desert. Otherwise the true coordinate is kept.
//
// Flags accumulate into changes; the returned bool reports whether the
// coordinate moved, which is what decides rideshare splicing later.
func (s *Shaper) ResolveEndpoint(ctx context.Context, lat, lon, radiusKm float64, requireAccessible bool, changes models.Changes) (float64, float64, bool, error) {
	ranked := s.stations.RankStations(lat, lon)
	if requireAccessible {
		ranked = stations.FilterAccessible(ranked, s.access)
		changes.Set(models.ChangeADA)
	}

	bikeNear, err := s.bikes.AnyNear(ctx, lat, lon, radiusKm)
	if err != nil {
		return 0, 0, false, fmt.Errorf("checking micromobility near endpoint: %w", err)
	}
	subwayNear := len(stations.FilterWithin(ranked, radiusKm)) > 0

	if requireAccessible && !subwayNear && !bikeNear {
		changes.Set(models.ChangeADADesert)
	}

	if !bikeNear && !subwayNear {
		changes.Set(models.ChangeTransitDesert)
		if len(ranked) > 0 {
			return ranked[0].Lat, ranked[0].Lon, true, nil
		}
	}
	return lat, lon, false, nil
}

// SpliceRideshare prepends (or, with atBack, appends) a rideshare leg to
// every itinerary, replacing the walk legs at that end. Itineraries that
// are already a single rideshare leg are skipped, so splicing the same end
// twice never stacks a second rideshare leg.
//
// The walk legs at the spliced end are discarded deliberately: the rider
// is driven to (or from) the first surviving leg's station, so the walk no
// longer happens. This is the one place leg contiguity is intentionally
// broken. If discarding walks empties the itinerary, the rideshare leg
// becomes its sole leg with no anchors.
func (s *Shaper) SpliceRideshare(trip *models.Trip, atBack bool) {
	for i := range trip.Itineraries {
		itinerary := &trip.Itineraries[i]
		if itinerary.IsRideshareOnly() {
			continue
		}

		leg := models.NewRideshareLeg()
		if atBack {
			for len(itinerary.Legs) > 0 && itinerary.Legs[len(itinerary.Legs)-1].Mode == models.ModeWalk {
				itinerary.Legs = itinerary.Legs[:len(itinerary.Legs)-1]
			}
			if len(itinerary.Legs) > 0 {
				last := &itinerary.Legs[len(itinerary.Legs)-1]
				if last.StationEnd != nil {
					leg.End = last.StationEnd.Name
				}
				leg.PickupMinutes = minutesUntil(s.clock.Now(), last.EndTime)
				if n := len(last.Geometry.Coordinates); n > 0 {
					leg.Geometry.Coordinates = [][]float64{last.Geometry.Coordinates[n-1]}
				}
			}
			itinerary.Legs = append(itinerary.Legs, leg)
		} else {
			for len(itinerary.Legs) > 0 && itinerary.Legs[0].Mode == models.ModeWalk {
				itinerary.Legs = itinerary.Legs[1:]
			}
			if len(itinerary.Legs) > 0 {
				first := &itinerary.Legs[0]
				if first.StationStart != nil {
					leg.Start = first.StationStart.Name
				}
				if len(first.Geometry.Coordinates) > 0 {
					leg.Geometry.Coordinates = [][]float64{first.Geometry.Coordinates[0]}
				}
			}
			itinerary.Legs = append([]models.Leg{leg}, itinerary.Legs...)
		}
	}
}

// minutesUntil is the whole-minute delta from now to t, truncated toward
// zero. Sub-minute precision is noise for arrival displays.
func minutesUntil(now time.Time, t time.Time) int {
	return int((t.Unix() - now.Unix()) / 60)
}
