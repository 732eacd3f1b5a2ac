package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/models"
	"github.com/ibi-group/sAVe/internal/stations"
)

// stubLocator answers AnyNear with a fixed result.
type stubLocator struct {
	near bool
	err  error
}

func (s *stubLocator) AnyNear(ctx context.Context, lat, lon, radiusKm float64) (bool, error) {
	return s.near, s.err
}

var shaperStations = []models.Station{
	{StopID: "127", Name: "Times Sq-42 St", Lat: 40.75529, Lon: -73.987495},
	{StopID: "631", Name: "Grand Central-42 St", Lat: 40.751776, Lon: -73.976848},
	{StopID: "L08", Name: "Bedford Av", Lat: 40.717304, Lon: -73.956872},
}

func newTestShaper(near bool, access models.AccessibilityFlags) *Shaper {
	return NewShaper(
		stations.NewIndex(shaperStations),
		access,
		&stubLocator{near: near},
		clock.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
	)
}

func TestResolveEndpointKeepsCoordinateWhenStationNear(t *testing.T) {
	shaper := newTestShaper(false, models.AccessibilityFlags{})
	changes := models.Changes{}

	lat, lon, changed, err := shaper.ResolveEndpoint(
		context.Background(), 40.7555, -73.9870, 0.5, false, changes)
	require.NoError(t, err)

	assert.False(t, changed)
	assert.Equal(t, 40.7555, lat)
	assert.Equal(t, -73.9870, lon)
	assert.Empty(t, changes)
}

func TestResolveEndpointKeepsCoordinateWhenOnlyBikeNear(t *testing.T) {
	shaper := newTestShaper(true, models.AccessibilityFlags{})
	changes := models.Changes{}

	// Far from every station, but a bike is near.
	_, _, changed, err := shaper.ResolveEndpoint(
		context.Background(), 40.70, -73.80, 0.5, false, changes)
	require.NoError(t, err)

	assert.False(t, changed)
	assert.False(t, changes.Has(models.ChangeTransitDesert))
}

func TestResolveEndpointSnapsOnTransitDesert(t *testing.T) {
	shaper := newTestShaper(false, models.AccessibilityFlags{})
	changes := models.Changes{}

	// Nothing within half a kilometer; nearest station is Bedford Av.
	lat, lon, changed, err := shaper.ResolveEndpoint(
		context.Background(), 40.70, -73.95, 0.5, false, changes)
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, 40.717304, lat)
	assert.Equal(t, -73.956872, lon)
	assert.True(t, changes.Has(models.ChangeTransitDesert))
}

func TestResolveEndpointADARestrictsBeforeRadiusCheck(t *testing.T) {
	// Times Square is inaccessible here, Grand Central accessible. A rider
	// standing at Times Square with ADA required must snap to Grand Central.
	access := models.AccessibilityFlags{
		"Grand Central-42 St": true,
	}
	shaper := newTestShaper(false, access)
	changes := models.Changes{}

	lat, lon, changed, err := shaper.ResolveEndpoint(
		context.Background(), 40.75529, -73.987495, 0.5, true, changes)
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, 40.751776, lat)
	assert.Equal(t, -73.976848, lon)
	assert.True(t, changes.Has(models.ChangeADA))
	assert.True(t, changes.Has(models.ChangeADADesert))
	assert.True(t, changes.Has(models.ChangeTransitDesert))
}

func TestResolveEndpointADANoDesertWhenAccessibleStationNear(t *testing.T) {
	access := models.AccessibilityFlags{"Times Sq-42 St": true}
	shaper := newTestShaper(false, access)
	changes := models.Changes{}

	_, _, changed, err := shaper.ResolveEndpoint(
		context.Background(), 40.7555, -73.9870, 0.5, true, changes)
	require.NoError(t, err)

	assert.False(t, changed)
	assert.True(t, changes.Has(models.ChangeADA))
	assert.False(t, changes.Has(models.ChangeADADesert))
}

func TestResolveEndpointADABikeSignalSuppressesADADesert(t *testing.T) {
	shaper := newTestShaper(true, models.AccessibilityFlags{})
	changes := models.Changes{}

	_, _, changed, err := shaper.ResolveEndpoint(
		context.Background(), 40.75529, -73.987495, 0.5, true, changes)
	require.NoError(t, err)

	assert.False(t, changed)
	assert.False(t, changes.Has(models.ChangeADADesert))
	assert.False(t, changes.Has(models.ChangeTransitDesert))
}

func TestResolveEndpointPropagatesLocatorError(t *testing.T) {
	shaper := NewShaper(
		stations.NewIndex(shaperStations),
		models.AccessibilityFlags{},
		&stubLocator{err: errors.New("mobility provider down")},
		clock.NewMockClock(time.Now()),
	)

	_, _, _, err := shaper.ResolveEndpoint(
		context.Background(), 40.75, -73.98, 0.5, false, models.Changes{})
	assert.ErrorContains(t, err, "mobility provider down")
}

func metroLeg(startID, startName, endID, endName string, start, end time.Time) models.Leg {
	return models.Leg{
		Mode:         models.ModeMetro,
		StationStart: &models.Place{ID: startID, Name: startName},
		StationEnd:   &models.Place{ID: endID, Name: endName},
		StartTime:    start,
		EndTime:      end,
		Geometry:     models.Geometry{Coordinates: [][]float64{{-73.98, 40.75}, {-73.97, 40.76}}},
	}
}

func walkLeg() models.Leg {
	return models.Leg{
		Mode:     models.ModeWalk,
		Geometry: models.Geometry{Coordinates: [][]float64{{-73.99, 40.74}}},
	}
}

func TestSpliceRideshareFront(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	shaper := NewShaper(stations.NewIndex(nil), models.AccessibilityFlags{},
		&stubLocator{}, clock.NewMockClock(now))

	trip := &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{
			walkLeg(),
			metroLeg("127", "Times Sq-42 St", "631", "Grand Central-42 St",
				now.Add(10*time.Minute), now.Add(20*time.Minute)),
		}},
	}}

	shaper.SpliceRideshare(trip, false)

	legs := trip.Itineraries[0].Legs
	require.Len(t, legs, 2)
	assert.Equal(t, models.ModeRideshare, legs[0].Mode)
	assert.Equal(t, "Times Sq-42 St", legs[0].Start)
	assert.Equal(t, [][]float64{{-73.98, 40.75}}, legs[0].Geometry.Coordinates)
	assert.Equal(t, models.ModeMetro, legs[1].Mode)
}

func TestSpliceRideshareBackSetsPickupMinutes(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	shaper := NewShaper(stations.NewIndex(nil), models.AccessibilityFlags{},
		&stubLocator{}, clock.NewMockClock(now))

	trip := &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{
			metroLeg("127", "Times Sq-42 St", "631", "Grand Central-42 St",
				now.Add(5*time.Minute), now.Add(25*time.Minute)),
			walkLeg(),
		}},
	}}

	shaper.SpliceRideshare(trip, true)

	legs := trip.Itineraries[0].Legs
	require.Len(t, legs, 2)
	last := legs[1]
	assert.Equal(t, models.ModeRideshare, last.Mode)
	assert.Equal(t, "Grand Central-42 St", last.End)
	assert.Equal(t, 25, last.PickupMinutes)
	assert.Equal(t, [][]float64{{-73.97, 40.76}}, last.Geometry.Coordinates)
}

func TestSpliceRideshareIdempotentOnRideshareOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	shaper := NewShaper(stations.NewIndex(nil), models.AccessibilityFlags{},
		&stubLocator{}, clock.NewMockClock(now))

	// All-walk itinerary collapses to a single rideshare leg.
	trip := &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{walkLeg(), walkLeg()}},
	}}

	shaper.SpliceRideshare(trip, false)
	require.Len(t, trip.Itineraries[0].Legs, 1)
	assert.True(t, trip.Itineraries[0].IsRideshareOnly())

	// Splicing the other end must not stack a second rideshare leg.
	shaper.SpliceRideshare(trip, true)
	assert.Len(t, trip.Itineraries[0].Legs, 1)
}

func TestMinutesUntilTruncatesTowardZero(t *testing.T) {
	now := time.Unix(0, 0)
	assert.Equal(t, 2, minutesUntil(now, time.Unix(179, 0)))
	assert.Equal(t, 0, minutesUntil(now, time.Unix(59, 0)))
	assert.Equal(t, -1, minutesUntil(now, time.Unix(-61, 0)))
}
