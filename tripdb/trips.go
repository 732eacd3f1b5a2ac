package tripdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ibi-group/sAVe/internal/logging"
	"github.com/ibi-group/sAVe/internal/models"
)

// statColumns is the set of flag columns callers may filter statistics by.
// Filter fragments are assembled from these literals only; user input never
// reaches the SQL text.
var statColumns = map[string]bool{
	"ada":            true,
	"low_income":     true,
	"senior":         true,
	"student":        true,
	"ada_desert":     true,
	"transit_desert": true,
	"walk":           true,
	"bike":           true,
	"metro":          true,
	"train":          true,
	"rideshare":      true,
}

// WriteTrip records one row per itinerary, all sharing a freshly allocated
// trip_id. The trip and its itineraries get their IDs written back so the
// caller can hand them to the client for later choose-trip calls.
func (c *Client) WriteTrip(ctx context.Context, rec *TripRecord) error {
	logger := slog.Default().With(slog.String("component", "tripdb"))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning trip write: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "write_trip")

	var maxTripID sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(trip_id) FROM trips`).Scan(&maxTripID); err != nil {
		return fmt.Errorf("allocating trip id: %w", err)
	}
	tripID := maxTripID.Int64 + 1
	rec.Trip.ID = tripID

	for i := range rec.Trip.Itineraries {
		itinerary := &rec.Trip.Itineraries[i]

		modes := make(map[models.TravelMode]bool)
		for _, leg := range itinerary.Legs {
			modes[leg.Mode] = true
		}

		tripObject, err := json.Marshal(itinerary)
		if err != nil {
			return fmt.Errorf("encoding itinerary %d: %w", i, err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO trips (
				origin, destination,
				origin_latitude, origin_longitude,
				destination_latitude, destination_longitude,
				trip_object,
				ada, low_income, senior, student,
				ada_desert, transit_desert,
				walk, bike, metro, train, rideshare,
				planned_at, trip_id, user_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Origin, rec.Destination,
			rec.OriginLat, rec.OriginLon,
			rec.DestLat, rec.DestLon,
			tripObject,
			boolToInt(rec.Changes.Has(models.ChangeADA)),
			boolToInt(rec.Changes.Has(models.ChangeLowIncome)),
			boolToInt(rec.Changes.Has(models.ChangeSenior)),
			boolToInt(rec.Changes.Has(models.ChangeStudent)),
			boolToInt(rec.Changes.Has(models.ChangeADADesert)),
			boolToInt(rec.Changes.Has(models.ChangeTransitDesert)),
			boolToInt(modes[models.ModeWalk]),
			boolToInt(modes[models.ModeBike]),
			boolToInt(modes[models.ModeMetro]),
			boolToInt(modes[models.ModeTrain]),
			boolToInt(modes[models.ModeRideshare]),
			rec.PlannedAt.UTC().Format("2006-01-02 15:04:05"),
			tripID, rec.UserID,
		)
		if err != nil {
			return fmt.Errorf("inserting itinerary %d: %w", i, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading itinerary row id: %w", err)
		}
		itinerary.ID = rowID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing trip write: %w", err)
	}
	return nil
}

// ChooseTrip marks one recorded itinerary (by its row ID) as the one the
// rider took.
func (c *Client) ChooseTrip(ctx context.Context, itineraryID int64) error {
	result, err := c.DB.ExecContext(ctx, `UPDATE trips SET chosen = 1 WHERE ROWID = ?`, itineraryID)
	if err != nil {
		return fmt.Errorf("choosing trip %d: %w", itineraryID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no recorded itinerary with id %d", itineraryID)
	}
	return nil
}

// GetTotals returns the overall itinerary count and how many were chosen.
func (c *Client) GetTotals(ctx context.Context) (Totals, error) {
	var totals Totals
	err := c.DB.QueryRowContext(ctx,
		`SELECT COUNT(trip_id), COALESCE(SUM(chosen), 0) FROM trips`,
	).Scan(&totals.Trips, &totals.Chosen)
	if err != nil {
		return Totals{}, fmt.Errorf("reading totals: %w", err)
	}
	return totals, nil
}

// GetTripStatistics returns the per-flag and per-mode counts across all
// recorded itineraries. An empty table yields zero counts, not an error.
func (c *Client) GetTripStatistics(ctx context.Context) (FlagCounts, error) {
	var counts FlagCounts
	err := c.DB.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(ada), 0),
			COALESCE(SUM(student), 0),
			COALESCE(SUM(low_income), 0),
			COALESCE(SUM(senior), 0),
			COALESCE(SUM(ada_desert), 0),
			COALESCE(SUM(transit_desert), 0),
			COALESCE(SUM(walk), 0),
			COALESCE(SUM(bike), 0),
			COALESCE(SUM(metro), 0),
			COALESCE(SUM(train), 0),
			COALESCE(SUM(rideshare), 0)
		FROM trips`,
	).Scan(
		&counts.ADA, &counts.Student, &counts.LowIncome, &counts.Senior,
		&counts.ADADesert, &counts.TransitDesert,
		&counts.Walk, &counts.Bike, &counts.Metro, &counts.Train, &counts.Rideshare,
	)
	if err != nil {
		return FlagCounts{}, fmt.Errorf("reading trip statistics: %w", err)
	}
	return counts, nil
}

// GetStatistic counts itineraries matching the given flag filters combined
// with AND or OR.
func (c *Client) GetStatistic(ctx context.Context, flags []string, conjunction string) (Totals, error) {
	where, err := buildFlagFilter(flags, conjunction)
	if err != nil {
		return Totals{}, err
	}

	var totals Totals
	err = c.DB.QueryRowContext(ctx,
		`SELECT COUNT(trip_id), COALESCE(SUM(chosen), 0) FROM trips WHERE `+where,
	).Scan(&totals.Trips, &totals.Chosen)
	if err != nil {
		return Totals{}, fmt.Errorf("reading filtered totals: %w", err)
	}
	return totals, nil
}

// GetAllLocations returns every distinct recorded origin/destination pair.
func (c *Client) GetAllLocations(ctx context.Context) ([]LocationPair, error) {
	return c.queryLocations(ctx, `
		SELECT DISTINCT
			origin_latitude, origin_longitude,
			destination_latitude, destination_longitude
		FROM trips`)
}

// GetFilteredLocations returns distinct origin/destination pairs for
// itineraries matching the flag filters.
func (c *Client) GetFilteredLocations(ctx context.Context, flags []string, conjunction string) ([]LocationPair, error) {
	where, err := buildFlagFilter(flags, conjunction)
	if err != nil {
		return nil, err
	}
	return c.queryLocations(ctx, `
		SELECT DISTINCT
			origin_latitude, origin_longitude,
			destination_latitude, destination_longitude
		FROM trips WHERE `+where)
}

func (c *Client) queryLocations(ctx context.Context, query string) ([]LocationPair, error) {
	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading locations: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "tripdb")),
		"database_rows")

	var pairs []LocationPair
	for rows.Next() {
		var p LocationPair
		if err := rows.Scan(&p.OriginLat, &p.OriginLon, &p.DestLat, &p.DestLon); err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// buildFlagFilter assembles "col = 1 AND col = 1" style fragments from
// whitelisted column names.
func buildFlagFilter(flags []string, conjunction string) (string, error) {
	conjunction = strings.ToUpper(strings.TrimSpace(conjunction))
	if conjunction != "AND" && conjunction != "OR" {
		return "", fmt.Errorf("invalid filter conjunction %q", conjunction)
	}
	if len(flags) == 0 {
		return "", fmt.Errorf("no filter flags given")
	}

	parts := make([]string, 0, len(flags))
	for _, flag := range flags {
		if !statColumns[flag] {
			return "", fmt.Errorf("unknown statistics flag %q", flag)
		}
		parts = append(parts, flag+" = 1")
	}
	return strings.Join(parts, " "+conjunction+" "), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
