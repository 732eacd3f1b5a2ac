// Package stations loads the static station reference data and answers
// proximity queries against it. The Index is built once at startup and is
// safe for unsynchronized concurrent reads afterwards.
package stations

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/rtree"

	"github.com/ibi-group/sAVe/internal/models"
	"github.com/ibi-group/sAVe/internal/utils"
)

// Column names of the station reference table.
const (
	colStopID = "GTFS Stop ID"
	colName   = "Stop Name"
	colLat    = "GTFS Latitude"
	colLon    = "GTFS Longitude"
	colRoutes = "Daytime Routes"
)

// Ranked is a station paired with its distance from a query point. The
// distance is transient query state and never lives on the Station itself.
type Ranked struct {
	models.Station
	DistanceKm float64 `json:"distance_km"`
}

// Index holds the full station table plus an R-tree over station
// coordinates for radius membership checks.
type Index struct {
	stations []models.Station
	tree     rtree.RTreeG[models.Station]
}

// NewIndex builds an Index over the given stations.
func NewIndex(stations []models.Station) *Index {
	ix := &Index{stations: stations}
	for _, s := range ix.stations {
		pt := [2]float64{s.Lon, s.Lat}
		ix.tree.Insert(pt, pt, s)
	}
	return ix
}

// LoadIndex reads the station reference CSV and builds an Index.
// A missing or malformed file is a startup configuration error.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening station table: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading station table %s: %w", path, err)
	}
	if len(records) == 0 {
		return NewIndex(nil), nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colStopID, colName, colLat, colLon} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("station table %s is missing column %q", path, required)
		}
	}

	stationList := make([]models.Station, 0, len(records)-1)
	for i, row := range records[1:] {
		lat, err := strconv.ParseFloat(row[cols[colLat]], 64)
		if err != nil {
			return nil, fmt.Errorf("station table row %d: bad latitude: %w", i+2, err)
		}
		lon, err := strconv.ParseFloat(row[cols[colLon]], 64)
		if err != nil {
			return nil, fmt.Errorf("station table row %d: bad longitude: %w", i+2, err)
		}
		station := models.Station{
			StopID: row[cols[colStopID]],
			Name:   row[cols[colName]],
			Lat:    lat,
			Lon:    lon,
		}
		if routesCol, ok := cols[colRoutes]; ok && routesCol < len(row) {
			station.Lines = strings.Fields(row[routesCol])
		}
		stationList = append(stationList, station)
	}

	return NewIndex(stationList), nil
}

// Len returns the number of stations in the index.
func (ix *Index) Len() int {
	return len(ix.stations)
}

// All returns the station table in load order. Callers must not mutate it.
func (ix *Index) All() []models.Station {
	return ix.stations
}

// RankStations returns every station ordered by ascending great-circle
// distance from the query point. An empty index yields an empty slice.
func (ix *Index) RankStations(lat, lon float64) []Ranked {
	ranked := make([]Ranked, 0, len(ix.stations))
	for _, s := range ix.stations {
		ranked = append(ranked, Ranked{
			Station:    s,
			DistanceKm: utils.DistanceKm(lat, lon, s.Lat, s.Lon),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

// AnyWithin reports whether any station lies within radiusKm of the query
// point. The R-tree prunes with a bounding box; candidates are verified
// with the exact distance.
func (ix *Index) AnyWithin(lat, lon, radiusKm float64) bool {
	bounds := utils.CalculateBounds(lat, lon, radiusKm*1000)
	found := false
	ix.tree.Search(
		[2]float64{bounds.MinLon, bounds.MinLat},
		[2]float64{bounds.MaxLon, bounds.MaxLat},
		func(_, _ [2]float64, s models.Station) bool {
			if utils.DistanceKm(lat, lon, s.Lat, s.Lon) <= radiusKm {
				found = true
				return false
			}
			return true
		},
	)
	return found
}

// FilterWithin returns the prefix-preserving subsequence of stations whose
// distance is at most radiusKm. Empty input yields empty output.
func FilterWithin(ranked []Ranked, radiusKm float64) []Ranked {
	within := make([]Ranked, 0, len(ranked))
	for _, r := range ranked {
		if r.DistanceKm <= radiusKm {
			within = append(within, r)
		}
	}
	return within
}

// FilterAccessible keeps only stations whose name resolves to accessible,
// preserving order. A legitimately empty result is not an error.
func FilterAccessible(ranked []Ranked, flags models.AccessibilityFlags) []Ranked {
	accessible := make([]Ranked, 0, len(ranked))
	for _, r := range ranked {
		if flags.Accessible(r.Name) {
			accessible = append(accessible, r)
		}
	}
	return accessible
}
