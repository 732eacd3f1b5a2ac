package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/feeds"
	"github.com/ibi-group/sAVe/internal/models"
)

// FeedSource is the slice of the feed fetcher the annotator needs.
type FeedSource interface {
	FetchFeeds(ctx context.Context, lines map[string]struct{}) (map[string]*gtfs.Realtime, error)
}

// Annotator attaches live arrival predictions to the metro legs of a
// routed trip.
type Annotator struct {
	feeds FeedSource
	clock clock.Clock
}

// NewAnnotator creates an Annotator backed by the given feed source.
func NewAnnotator(source FeedSource, clk clock.Clock) *Annotator {
	return &Annotator{feeds: source, clock: clk}
}

// Annotate fetches the realtime feeds covering the trip's metro legs and
// assigns each one its cleaned minutes-from-now arrival list. A trip with
// no metro legs is returned untouched without any network traffic.
//
// Annotation is all-or-nothing: if any feed fetch or decode fails, the
// error is returned and no leg is annotated. A caller seeing one metro leg
// without RealTime can rely on every leg being unannotated.
func (a *Annotator) Annotate(ctx context.Context, trip *models.Trip) error {
	routes, stops := trip.MetroRoutesAndStops()
	if len(routes) == 0 {
		return nil
	}

	decoded, err := a.feeds.FetchFeeds(ctx, routes)
	if err != nil {
		return fmt.Errorf("annotating trip: %w", err)
	}
	index := feeds.BuildIndex(decoded, stops)

	now := a.clock.Now()
	for i := range trip.Itineraries {
		for j := range trip.Itineraries[i].Legs {
			leg := &trip.Itineraries[i].Legs[j]
			if leg.Mode != models.ModeMetro {
				continue
			}
			var raw []int64
			if leg.StationStart != nil {
				raw = index.Arrivals(leg.TransitRoute, leg.StationStart.ID)
			}
			leg.RealTime = cleanArrivals(raw, now, leg.StartTime)
		}
	}
	return nil
}

// cleanArrivals converts raw epoch predictions into the display form:
// whole minutes from now (truncated), nothing earlier than the rider's own
// scheduled arrival at the platform, one entry per minute, ascending.
// The result is always non-nil so an annotated leg is distinguishable from
// an unannotated one.
func cleanArrivals(raw []int64, now time.Time, legStart time.Time) []int {
	offset := minutesUntil(now, legStart)

	seen := make(map[int]struct{}, len(raw))
	cleaned := make([]int, 0, len(raw))
	for _, epoch := range raw {
		minute := int((epoch - now.Unix()) / 60)
		if minute < offset {
			continue
		}
		if _, dup := seen[minute]; dup {
			continue
		}
		seen[minute] = struct{}{}
		cleaned = append(cleaned, minute)
	}
	sort.Ints(cleaned)
	return cleaned
}
