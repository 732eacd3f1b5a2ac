// Package routing queries the multimodal routing provider and converts its
// responses into the application's trip model.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/ibi-group/sAVe/internal/logging"
	"github.com/ibi-group/sAVe/internal/models"
)

// Client is a routing provider client.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a routing client against the given endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Wire types for the provider response. Leg geometry arrives as a Google
// encoded polyline and is decoded into coordinate pairs on conversion.
type wireResponse struct {
	Trips []wireItinerary `json:"trips"`
}

type wireItinerary struct {
	Legs []wireLeg `json:"legs"`
}

type wireLeg struct {
	Mode         string        `json:"mode"`
	TransitRoute string        `json:"transit_route"`
	StationStart *wirePlace    `json:"station_start"`
	StationEnd   *wirePlace    `json:"station_end"`
	Polyline     string        `json:"polyline"`
	Statistics   wireLegTiming `json:"statistics"`
}

type wirePlace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireLegTiming struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Route requests itineraries between the two coordinates. The mode set is
// metro, plus bike unless the rider requires accessible transit.
func (c *Client) Route(ctx context.Context, originLat, originLon, destLat, destLon float64, accessible bool) (*models.Trip, error) {
	modes := "metro"
	if !accessible {
		modes += ",bike"
	}

	query := url.Values{}
	query.Set("access_key", c.apiKey)
	query.Set("origin_latitude", formatCoord(originLat))
	query.Set("origin_longitude", formatCoord(originLon))
	query.Set("destination_latitude", formatCoord(destLat))
	query.Set("destination_longitude", formatCoord(destLon))
	query.Set("modes", modes)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building routing request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing request failed: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "router")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing provider returned %s", resp.Status)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding routing response: %w", err)
	}

	return convertTrip(&wire)
}

func convertTrip(wire *wireResponse) (*models.Trip, error) {
	trip := &models.Trip{Itineraries: make([]models.Itinerary, 0, len(wire.Trips))}
	for i, wireIt := range wire.Trips {
		itinerary := models.Itinerary{Legs: make([]models.Leg, 0, len(wireIt.Legs))}
		for j, wireLeg := range wireIt.Legs {
			leg, err := convertLeg(&wireLeg)
			if err != nil {
				return nil, fmt.Errorf("itinerary %d leg %d: %w", i, j, err)
			}
			itinerary.Legs = append(itinerary.Legs, leg)
		}
		trip.Itineraries = append(trip.Itineraries, itinerary)
	}
	return trip, nil
}

func convertLeg(wire *wireLeg) (models.Leg, error) {
	leg := models.Leg{
		Mode:         models.TravelMode(wire.Mode),
		TransitRoute: wire.TransitRoute,
		StartTime:    wire.Statistics.StartTime,
		EndTime:      wire.Statistics.EndTime,
	}
	if wire.StationStart != nil {
		leg.StationStart = &models.Place{ID: wire.StationStart.ID, Name: wire.StationStart.Name}
	}
	if wire.StationEnd != nil {
		leg.StationEnd = &models.Place{ID: wire.StationEnd.ID, Name: wire.StationEnd.Name}
	}

	if wire.Polyline != "" {
		coords, _, err := polyline.DecodeCoords([]byte(wire.Polyline))
		if err != nil {
			return models.Leg{}, fmt.Errorf("decoding leg polyline: %w", err)
		}
		// Polylines encode [lat, lon]; leg geometry is GeoJSON-ordered [lon, lat].
		leg.Geometry.Coordinates = make([][]float64, 0, len(coords))
		for _, c := range coords {
			leg.Geometry.Coordinates = append(leg.Geometry.Coordinates, []float64{c[1], c[0]})
		}
	}
	return leg, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
