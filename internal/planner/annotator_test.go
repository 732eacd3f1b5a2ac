package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/models"
)

// stubFeedSource counts fetches and returns canned feeds or an error.
type stubFeedSource struct {
	feeds   map[string]*gtfs.Realtime
	err     error
	fetches int
}

func (s *stubFeedSource) FetchFeeds(ctx context.Context, lines map[string]struct{}) (map[string]*gtfs.Realtime, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.feeds, nil
}

func feedWithArrivals(route, stop string, arrivals ...time.Time) *gtfs.Realtime {
	updates := make([]gtfs.StopTimeUpdate, 0, len(arrivals))
	for i := range arrivals {
		at := arrivals[i]
		stopID := stop
		updates = append(updates, gtfs.StopTimeUpdate{
			StopID:  &stopID,
			Arrival: &gtfs.StopTimeEvent{Time: &at},
		})
	}
	return &gtfs.Realtime{Trips: []gtfs.Trip{
		{ID: gtfs.TripID{RouteID: route}, StopTimeUpdates: updates},
	}}
}

func TestAnnotateNoMetroLegsIsNoOp(t *testing.T) {
	source := &stubFeedSource{}
	annotator := NewAnnotator(source, clock.NewMockClock(time.Now()))

	trip := &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{walkLeg(), {Mode: models.ModeBike}}},
	}}

	require.NoError(t, annotator.Annotate(context.Background(), trip))
	assert.Zero(t, source.fetches, "a trip without metro legs must not touch the network")
	assert.Nil(t, trip.Itineraries[0].Legs[0].RealTime)
}

func TestAnnotateAssignsCleanedMinutes(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	legStart := now.Add(1 * time.Minute)

	source := &stubFeedSource{feeds: map[string]*gtfs.Realtime{
		"2": feedWithArrivals("L", "L08",
			now.Add(2*time.Minute),
			now.Add(2*time.Minute),  // duplicate minute
			now.Add(-5*time.Minute), // already passed
			now.Add(10*time.Minute),
		),
	}}
	annotator := NewAnnotator(source, clock.NewMockClock(now))

	trip := &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{
			metroLeg("L08", "Bedford Av", "L06", "Graham Av", legStart, now.Add(15*time.Minute)),
		}},
	}}
	trip.Itineraries[0].Legs[0].TransitRoute = "L"

	require.NoError(t, annotator.Annotate(context.Background(), trip))

	leg := trip.Itineraries[0].Legs[0]
	assert.Equal(t, []int{2, 10}, leg.RealTime,
		"duplicates collapse, past arrivals drop, order is ascending")
}

func TestAnnotateEmptyPredictionsStillMarkAnnotated(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	source := &stubFeedSource{feeds: map[string]*gtfs.Realtime{}}
	annotator := NewAnnotator(source, clock.NewMockClock(now))

	trip := &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{
			metroLeg("G22", "Court Sq", "G24", "21 St", now, now.Add(9*time.Minute)),
		}},
	}}
	trip.Itineraries[0].Legs[0].TransitRoute = "G"

	require.NoError(t, annotator.Annotate(context.Background(), trip))

	leg := trip.Itineraries[0].Legs[0]
	assert.NotNil(t, leg.RealTime, "annotated leg must carry a non-nil slice")
	assert.Empty(t, leg.RealTime)
}

func TestAnnotateFailureLeavesEveryLegUntouched(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	source := &stubFeedSource{err: errors.New("feed outage")}
	annotator := NewAnnotator(source, clock.NewMockClock(now))

	trip := &models.Trip{Itineraries: []models.Itinerary{
		{Legs: []models.Leg{
			metroLeg("127", "Times Sq-42 St", "631", "Grand Central-42 St", now, now.Add(8*time.Minute)),
		}},
	}}
	trip.Itineraries[0].Legs[0].TransitRoute = "2"

	err := annotator.Annotate(context.Background(), trip)
	assert.ErrorContains(t, err, "feed outage")
	assert.Nil(t, trip.Itineraries[0].Legs[0].RealTime,
		"no partial annotation on failure")
}

func TestCleanArrivalsFiltersBeforeLegStart(t *testing.T) {
	now := time.Unix(0, 0)
	legStart := time.Unix(60, 0) // offset of one minute

	raw := []int64{
		120,  // minute 2
		120,  // duplicate
		-300, // minute -5, before the rider reaches the platform
		600,  // minute 10
		60,   // minute 1, exactly at the offset boundary: kept
	}

	cleaned := cleanArrivals(raw, now, legStart)
	assert.Equal(t, []int{1, 2, 10}, cleaned)
}

func TestCleanArrivalsAlwaysNonNil(t *testing.T) {
	cleaned := cleanArrivals(nil, time.Unix(0, 0), time.Unix(0, 0))
	assert.NotNil(t, cleaned)
	assert.Empty(t, cleaned)
}
