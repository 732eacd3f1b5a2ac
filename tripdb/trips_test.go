package tripdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibi-group/sAVe/internal/appconf"
	"github.com/ibi-group/sAVe/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sampleRecord(origin, dest string, changes models.Changes, modes ...models.TravelMode) *TripRecord {
	legs := make([]models.Leg, 0, len(modes))
	for _, m := range modes {
		legs = append(legs, models.Leg{Mode: m})
	}
	return &TripRecord{
		Origin:      origin,
		Destination: dest,
		OriginLat:   40.75,
		OriginLon:   -73.98,
		DestLat:     40.71,
		DestLon:     -73.95,
		Trip: &models.Trip{Itineraries: []models.Itinerary{
			{Legs: legs},
		}},
		Changes:   changes,
		UserID:    1,
		PlannedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewClientRejectsOnDiskInTestEnv(t *testing.T) {
	_, err := NewClient(NewConfig("trips.db", appconf.Test, false))
	assert.ErrorContains(t, err, "in-memory")
}

func TestWriteTripAssignsSharedTripID(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	rec := sampleRecord("a", "b", models.Changes{}, models.ModeWalk, models.ModeMetro)
	rec.Trip.Itineraries = append(rec.Trip.Itineraries, models.Itinerary{
		Legs: []models.Leg{{Mode: models.ModeBike}},
	})

	require.NoError(t, client.WriteTrip(ctx, rec))

	assert.Equal(t, int64(1), rec.Trip.ID, "first trip gets id 1")
	assert.NotZero(t, rec.Trip.Itineraries[0].ID)
	assert.NotZero(t, rec.Trip.Itineraries[1].ID)
	assert.NotEqual(t, rec.Trip.Itineraries[0].ID, rec.Trip.Itineraries[1].ID,
		"each itinerary is its own row")

	second := sampleRecord("c", "d", models.Changes{}, models.ModeWalk)
	require.NoError(t, client.WriteTrip(ctx, second))
	assert.Equal(t, int64(2), second.Trip.ID, "trip ids increment")

	totals, err := client.GetTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Trips, "three itineraries across two trips")
	assert.Zero(t, totals.Chosen)
}

func TestChooseTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	rec := sampleRecord("a", "b", models.Changes{}, models.ModeMetro)
	require.NoError(t, client.WriteTrip(ctx, rec))

	require.NoError(t, client.ChooseTrip(ctx, rec.Trip.Itineraries[0].ID))

	totals, err := client.GetTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.Chosen)

	assert.Error(t, client.ChooseTrip(ctx, 9999), "unknown itinerary id")
}

func TestGetTripStatisticsCountsFlagsAndModes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	adaChanges := models.Changes{}
	adaChanges.Set(models.ChangeADA)
	adaChanges.Set(models.ChangeLowIncome)

	require.NoError(t, client.WriteTrip(ctx,
		sampleRecord("a", "b", adaChanges, models.ModeWalk, models.ModeMetro)))
	require.NoError(t, client.WriteTrip(ctx,
		sampleRecord("c", "d", models.Changes{}, models.ModeBike, models.ModeRideshare)))

	counts, err := client.GetTripStatistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), counts.ADA)
	assert.Equal(t, int64(1), counts.LowIncome)
	assert.Zero(t, counts.Senior)
	assert.Equal(t, int64(1), counts.Walk)
	assert.Equal(t, int64(1), counts.Metro)
	assert.Equal(t, int64(1), counts.Bike)
	assert.Equal(t, int64(1), counts.Rideshare)
	assert.Zero(t, counts.Train)
}

func TestGetTripStatisticsEmptyTable(t *testing.T) {
	client := newTestClient(t)

	counts, err := client.GetTripStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FlagCounts{}, counts)
}

func TestGetStatisticFiltersWithConjunction(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	both := models.Changes{}
	both.Set(models.ChangeADA)
	both.Set(models.ChangeSenior)
	adaOnly := models.Changes{}
	adaOnly.Set(models.ChangeADA)

	require.NoError(t, client.WriteTrip(ctx, sampleRecord("a", "b", both, models.ModeMetro)))
	require.NoError(t, client.WriteTrip(ctx, sampleRecord("c", "d", adaOnly, models.ModeMetro)))

	andTotals, err := client.GetStatistic(ctx, []string{"ada", "senior"}, "AND")
	require.NoError(t, err)
	assert.Equal(t, int64(1), andTotals.Trips)

	orTotals, err := client.GetStatistic(ctx, []string{"ada", "senior"}, "or")
	require.NoError(t, err)
	assert.Equal(t, int64(2), orTotals.Trips)
}

func TestGetStatisticRejectsBadInput(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetStatistic(ctx, []string{"ada; DROP TABLE trips"}, "AND")
	assert.ErrorContains(t, err, "unknown statistics flag")

	_, err = client.GetStatistic(ctx, []string{"ada"}, "XOR")
	assert.ErrorContains(t, err, "invalid filter conjunction")

	_, err = client.GetStatistic(ctx, nil, "AND")
	assert.ErrorContains(t, err, "no filter flags")
}

func TestLocations(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	desert := models.Changes{}
	desert.Set(models.ChangeTransitDesert)

	require.NoError(t, client.WriteTrip(ctx, sampleRecord("a", "b", desert, models.ModeMetro)))
	require.NoError(t, client.WriteTrip(ctx, sampleRecord("a", "b", desert, models.ModeMetro)))

	other := sampleRecord("c", "d", models.Changes{}, models.ModeWalk)
	other.OriginLat, other.OriginLon = 40.80, -73.90
	require.NoError(t, client.WriteTrip(ctx, other))

	all, err := client.GetAllLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "identical pairs collapse via DISTINCT")

	deserts, err := client.GetFilteredLocations(ctx, []string{"transit_desert"}, "AND")
	require.NoError(t, err)
	require.Len(t, deserts, 1)
	assert.Equal(t, 40.75, deserts[0].OriginLat)
}

func TestTableCounts(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WriteTrip(ctx, sampleRecord("a", "b", models.Changes{}, models.ModeMetro)))

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["trips"])
}
