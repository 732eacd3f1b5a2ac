// Package micromobility checks for nearby shared bike and scooter
// availability through the mobility provider's location API.
package micromobility

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ibi-group/sAVe/internal/logging"
)

// Locator answers "is any micromobility feature near this point". The
// planner depends on this interface so tests can substitute fixed answers.
type Locator interface {
	AnyNear(ctx context.Context, lat, lon, radiusKm float64) (bool, error)
}

// Client queries the mobility provider's location endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a micromobility client against the given endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type locationResponse struct {
	Features []json.RawMessage `json:"features"`
}

// AnyNear reports whether any bike or scooter feature exists within
// radiusKm of the point. A transport or decode failure is an error, never
// a silent "no bikes".
func (c *Client) AnyNear(ctx context.Context, lat, lon, radiusKm float64) (bool, error) {
	query := url.Values{}
	query.Set("access_key", c.apiKey)
	query.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("building micromobility request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("micromobility request failed: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "micromobility")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("micromobility provider returned %s", resp.Status)
	}

	var loc locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return false, fmt.Errorf("decoding micromobility response: %w", err)
	}
	return len(loc.Features) > 0, nil
}
