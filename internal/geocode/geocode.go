// Package geocode resolves street addresses to coordinates through a
// Nominatim-style geocoding service.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ibi-group/sAVe/internal/logging"
)

// ErrNotFound signals that the service answered but had no match for the
// address. It is distinct from transport errors: a not-found aborts the
// trip plan with a user-facing message, an unreachable geocoder does not
// mean the address is bad.
var ErrNotFound = errors.New("address not found")

// Client is a geocoding service client.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a geocoder client against the given endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address to (lat, lon). Returns ErrNotFound when the
// service has no match.
func (c *Client) Geocode(ctx context.Context, address string) (float64, float64, error) {
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("format", "json")
	query.Set("q", address)
	query.Set("addressdetails", "0")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("building geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "sAVe transit planner")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding %q: %w", address, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "geocoder")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoder returned %s for %q", resp.Status, address)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("decoding geocoder response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("geocoding %q: %w", address, ErrNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoder returned bad latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoder returned bad longitude %q: %w", results[0].Lon, err)
	}
	return lat, lon, nil
}
