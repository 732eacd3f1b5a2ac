package feeds

import "github.com/OneBusAway/go-gtfs"

// ArrivalIndex maps route id to stop id to the raw predicted epoch seconds
// reported for that (route, stop). Built fresh for every annotation call;
// never cached, since each call may see different live data.
type ArrivalIndex map[string]map[string][]int64

// BuildIndex walks every trip update in the decoded feeds and collects the
// arrival and departure instants for the wanted stop ids. Stops outside the
// wanted set are skipped entirely, which is the main cost control: a feed
// can carry thousands of entities the trip never touches.
//
// When two feeds report the same (route, stop) key, the entries are
// concatenated. Last-feed-wins would silently drop real arrivals for lines
// whose trains cross a feed boundary.
func BuildIndex(decoded map[string]*gtfs.Realtime, wantedStops map[string]struct{}) ArrivalIndex {
	index := make(ArrivalIndex)
	for _, feed := range decoded {
		if feed == nil {
			continue
		}
		for i := range feed.Trips {
			trip := &feed.Trips[i]
			route := trip.ID.RouteID
			for _, update := range trip.StopTimeUpdates {
				if update.StopID == nil {
					continue
				}
				stop := *update.StopID
				if _, wanted := wantedStops[stop]; !wanted {
					continue
				}
				if update.Arrival != nil && update.Arrival.Time != nil {
					index.add(route, stop, update.Arrival.Time.Unix())
				}
				if update.Departure != nil && update.Departure.Time != nil {
					index.add(route, stop, update.Departure.Time.Unix())
				}
			}
		}
	}
	return index
}

func (ix ArrivalIndex) add(route, stop string, epoch int64) {
	stops, ok := ix[route]
	if !ok {
		stops = make(map[string][]int64)
		ix[route] = stops
	}
	stops[stop] = append(stops[stop], epoch)
}

// Arrivals returns the raw epoch seconds recorded for (route, stop).
// Missing keys yield nil, which annotates as an empty prediction list.
func (ix ArrivalIndex) Arrivals(route, stop string) []int64 {
	return ix[route][stop]
}
