package ratefence

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Limiter is the main interface for admission control.
type Limiter interface {
	// Admit records a request for the given client and returns the
	// seconds to wait before retrying; zero means admitted.
	Admit(id ClientID) int64

	// AdmitRequest extracts the client id from the request and runs it
	// through Admit. It returns ErrUnidentifiedClient when no identity
	// can be derived from the request.
	AdmitRequest(r *http.Request) (*Decision, error)

	// Middleware returns an HTTP middleware that applies the limit.
	Middleware(next http.Handler) http.Handler

	// AddTrackedClient restricts limiting to the given client (and any
	// previously added ones).
	AddTrackedClient(id ClientID)

	// Size returns the number of distinct clients counted in the
	// current window.
	Size() int

	// Policy returns the configured rate limit.
	Policy() Policy
}

// Decision contains the result of an admission check.
type Decision struct {
	// Allowed indicates whether the request should proceed.
	Allowed bool

	// ClientID is the identity the check ran against.
	ClientID ClientID

	// Wait is how many seconds to wait before the next request would
	// be admitted. Zero when Allowed.
	Wait int64

	// Limit is the request budget per window, for response headers.
	Limit int
}

// StatsRecorder receives one event per admission decision. Recording
// is best-effort: the limiter ignores errors and never lets a stats
// backend delay or fail a request.
type StatsRecorder interface {
	Record(ctx context.Context, client string, allowed bool) error
}

// MetricsRecorder receives aggregate signals from the limiter.
// Implementations must not block.
type MetricsRecorder interface {
	RecordCheck(allowed bool, elapsed time.Duration)
	RecordUnidentified()
	SetWindowClients(n int)
}

// limiter is the concrete implementation of Limiter.
type limiter struct {
	tracker   *Tracker
	config    *Config
	extractor Extractor
	clock     Clock
	stats     StatsRecorder
	metrics   MetricsRecorder
}

// NewLimiter creates a new Limiter with the given options. With no
// options it limits every client to 100 requests per hour, identified
// by remote address.
//
// Example:
//
//	limiter, err := NewLimiter(
//	    WithPolicy(Policy{Requests: 100, Period: 3600}),
//	    WithExtractor(FromProxyHeaders()),
//	)
func NewLimiter(opts ...Option) (Limiter, error) {
	l := &limiter{
		config: NewConfig(),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	// Set extractor if not explicitly provided via option
	if l.extractor == nil {
		extractor, err := ParseExtractorConfig(l.config.Extractor)
		if err != nil {
			return nil, err
		}
		l.extractor = extractor
	}

	tracker, err := NewTracker(l.config.Limit, l.clock)
	if err != nil {
		return nil, err
	}
	l.tracker = tracker

	ids, err := l.config.TrackedClientIDs()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		tracker.AddTrackedClient(id)
	}

	return l, nil
}

// Admit checks a request for the given client id.
func (l *limiter) Admit(id ClientID) int64 {
	return l.tracker.Admit(id)
}

// AdmitRequest checks an HTTP request using the configured extractor.
func (l *limiter) AdmitRequest(r *http.Request) (*Decision, error) {
	start := time.Now()

	id := l.extractor(r)
	if id == 0 {
		if l.metrics != nil {
			l.metrics.RecordUnidentified()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnidentifiedClient, r.RemoteAddr)
	}

	wait := l.tracker.Admit(id)
	allowed := wait == 0

	if l.metrics != nil {
		l.metrics.RecordCheck(allowed, time.Since(start))
		l.metrics.SetWindowClients(l.tracker.Size())
	}
	if l.stats != nil {
		// Best effort. A failing stats backend must not fail requests.
		_ = l.stats.Record(r.Context(), id.String(), allowed)
	}

	return &Decision{
		Allowed:  allowed,
		ClientID: id,
		Wait:     wait,
		Limit:    l.tracker.Policy().Requests,
	}, nil
}

// Middleware returns an HTTP middleware that applies the limit.
//
// Unidentifiable clients get 503 Service Unavailable: a client that
// cannot be attributed cannot be rate limited either, and that is a
// service problem, not a rate-limit one. Denied requests get 429 Too
// Many Requests with a Retry-After header.
func (l *limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := l.AdmitRequest(r)
		if err != nil {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))

		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(decision.Wait, 10))
			http.Error(w,
				fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", decision.Wait),
				http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AddTrackedClient restricts limiting to the given client.
func (l *limiter) AddTrackedClient(id ClientID) {
	l.tracker.AddTrackedClient(id)
}

// Size returns the number of distinct clients in the current window.
func (l *limiter) Size() int {
	return l.tracker.Size()
}

// Policy returns the configured rate limit.
func (l *limiter) Policy() Policy {
	return l.tracker.Policy()
}
