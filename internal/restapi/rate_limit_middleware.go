package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ibi-group/sAVe/internal/clock"
	"github.com/ibi-group/sAVe/internal/models"
)

// Requests without a key share one throttling bucket.
const anonymousBucket = "__no_key__"

// Idle buckets older than this are evicted by the background sweep.
const bucketIdleThreshold = 10 * time.Minute

type keyBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware throttles requests per API key with a token bucket.
// Configured API keys are exempt; everything else, including keyless
// requests, is limited.
type RateLimitMiddleware struct {
	mu      sync.Mutex
	buckets map[string]*keyBucket

	limit  rate.Limit
	burst  int
	exempt map[string]bool
	clock  clock.Clock

	sweepTicker *time.Ticker
	done        chan struct{}
	stopOnce    sync.Once
}

// NewRateLimitMiddleware builds a limiter allowing ratePerSecond requests
// per interval for each key. A zero rate blocks everything; a negative
// rate disables limiting.
func NewRateLimitMiddleware(ratePerSecond int, interval time.Duration, exemptKeys []string, clk clock.Clock) *RateLimitMiddleware {
	var limit rate.Limit
	switch {
	case ratePerSecond < 0:
		limit = rate.Inf
	case ratePerSecond == 0:
		limit = 0
	default:
		limit = rate.Every(interval / time.Duration(ratePerSecond))
	}

	exempt := make(map[string]bool, len(exemptKeys))
	for _, key := range exemptKeys {
		if key = strings.TrimSpace(key); key != "" {
			exempt[key] = true
		}
	}

	rl := &RateLimitMiddleware{
		buckets:     make(map[string]*keyBucket),
		limit:       limit,
		burst:       ratePerSecond,
		exempt:      exempt,
		clock:       clk,
		sweepTicker: time.NewTicker(5 * time.Minute),
		done:        make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Handler returns the middleware wrapper.
func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Query().Get("key")
			if key == "" {
				key = anonymousBucket
			}

			if rl.exempt[key] {
				next.ServeHTTP(w, r)
				return
			}

			if !rl.allow(key) {
				rl.sendTooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimitMiddleware) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &keyBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = bucket
	}
	bucket.lastSeen = rl.clock.Now()
	return bucket.limiter.Allow()
}

func (rl *RateLimitMiddleware) sendTooManyRequests(w http.ResponseWriter) {
	retryAfter := time.Second
	switch rl.limit {
	case 0:
		retryAfter = time.Hour
	case rate.Inf:
		// Unreachable: an infinite limiter always allows.
	default:
		retryAfter = time.Duration(float64(time.Second) / float64(rl.limit))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	response := models.ResponseModel{
		Code:        http.StatusTooManyRequests,
		CurrentTime: rl.clock.NowUnixMilli(),
		Text:        "rate limit exceeded, try again later",
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// sweepOnce evicts idle buckets. Separated from the loop so tests can
// drive it synchronously.
func (rl *RateLimitMiddleware) sweepOnce() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastSeen) > bucketIdleThreshold {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimitMiddleware) sweepLoop() {
	for {
		select {
		case <-rl.sweepTicker.C:
			rl.sweepOnce()
		case <-rl.done:
			return
		}
	}
}

// Stop halts the background sweep. Safe to call more than once.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
		rl.sweepTicker.Stop()
	})
}
