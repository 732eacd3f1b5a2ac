package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"github.com/ibi-group/sAVe/internal/logging"
	"github.com/ibi-group/sAVe/internal/metrics"
)

// Sentinel errors for the two ways a feed fetch can fail. Callers use
// errors.Is to tell a transport problem from a malformed payload; both
// abort the whole annotation step.
var (
	ErrUnavailable = errors.New("realtime feed unavailable")
	ErrDecode      = errors.New("realtime feed payload malformed")
)

// feedHTTPClient is a dedicated HTTP client for GTFS-RT feed fetching,
// configured with explicit timeouts and transport limits to avoid the
// pitfalls of http.DefaultClient (no timeout, shared global state).
// The transport is cloned from http.DefaultTransport to preserve important
// defaults (ProxyFromEnvironment, DialContext, HTTP/2, keepalives).
var feedHTTPClient = newFeedHTTPClient()

func newFeedHTTPClient() *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		// Absolute safety net per request; callers also pass a request
		// context, and the stricter of the two wins.
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

// Fetcher retrieves and decodes realtime feeds. One Fetcher is shared by
// all requests; it holds no per-fetch state, and every response is decoded
// with a fresh parse call so concurrent fetches never share decoder state.
type Fetcher struct {
	baseURL  string
	apiKey   string
	registry *Registry
	client   *http.Client
	metrics  *metrics.Metrics
}

// NewFetcher creates a Fetcher against the given feed endpoint.
// Metrics may be nil.
func NewFetcher(baseURL, apiKey string, registry *Registry, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		baseURL:  baseURL,
		apiKey:   apiKey,
		registry: registry,
		client:   feedHTTPClient,
		metrics:  m,
	}
}

// FetchFeeds resolves the requested lines to their distinct physical feeds
// and issues exactly one network fetch per feed, never per line. Any
// transport or decode failure fails the whole call: partial results would
// let the annotator silently skip legs.
func (f *Fetcher) FetchFeeds(ctx context.Context, lines map[string]struct{}) (map[string]*gtfs.Realtime, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "feed_fetcher"))

	for line := range lines {
		if _, ok := f.registry.FeedFor(line); !ok {
			logger.Warn("no feed registered for line", slog.String("line", line))
		}
	}

	decoded := make(map[string]*gtfs.Realtime)
	for _, feedID := range f.registry.DistinctFeeds(lines) {
		feed, err := f.fetchOne(ctx, feedID)
		if err != nil {
			f.countFetch(feedID, "error")
			logging.LogError(logger, "realtime feed fetch failed", err,
				slog.String("feed_id", feedID))
			return nil, err
		}
		f.countFetch(feedID, "ok")
		decoded[feedID] = feed
	}
	return decoded, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, feedID string) (*gtfs.Realtime, error) {
	query := url.Values{}
	query.Set("key", f.apiKey)
	query.Set("feed_id", feedID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request for feed %s: %w", feedID, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w: %w", feedID, ErrUnavailable, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "feed_fetcher")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned %s: %w", feedID, resp.Status, ErrUnavailable)
	}

	const maxBodySize = 25 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading feed %s: %w: %w", feedID, ErrUnavailable, err)
	}
	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("feed %s exceeds size limit of %d bytes: %w", feedID, maxBodySize, ErrDecode)
	}

	realtime, err := gtfs.ParseRealtime(body, &gtfs.ParseRealtimeOptions{})
	if err != nil {
		return nil, fmt.Errorf("decoding feed %s: %w: %w", feedID, ErrDecode, err)
	}
	return realtime, nil
}

func (f *Fetcher) countFetch(feedID, status string) {
	if f.metrics == nil {
		return
	}
	f.metrics.FeedFetchesTotal.WithLabelValues(feedID, status).Inc()
}
