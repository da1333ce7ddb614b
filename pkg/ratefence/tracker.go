package ratefence

import (
	"math"
	"sync"
	"time"
)

// Clock returns the current instant. time.Now carries a monotonic
// reading, so elapsed-time arithmetic is immune to wall-clock jumps.
// A fixed Clock can be injected for deterministic tests.
type Clock func() time.Time

// Policy defines a fixed-window rate limit: at most Requests admitted
// requests per Period-second window. A Policy is set once at tracker
// construction and never mutated.
type Policy struct {
	// Requests is the maximum number of admitted requests per window.
	Requests int `yaml:"requests"`

	// Period is the window length in seconds.
	Period int64 `yaml:"period_seconds"`
}

// Validate checks if a Policy is usable.
func (p Policy) Validate() error {
	if p.Requests <= 0 {
		return ErrNonPositiveRequests
	}
	if p.Period <= 0 {
		return ErrNonPositivePeriod
	}
	return nil
}

// Tracker counts requests per client over fixed, consecutive time
// windows and decides admission. It is the in-memory core of the
// limiter: no I/O, no logging, no error paths.
//
// Window accounting works on whole seconds elapsed since the tracker's
// construction. When a request arrives past the current window, the
// entire count map is discarded and rebuilt, so the map never grows
// beyond the number of distinct clients seen in a single window.
//
// All methods are safe for concurrent use.
type Tracker struct {
	policy Policy
	clock  Clock
	epoch  time.Time

	// mu guards windowStart, counts and tracked as one atomic unit.
	mu          sync.Mutex
	windowStart int64
	counts      map[ClientID]int
	tracked     map[ClientID]struct{}
}

// NewTracker creates a tracker enforcing the given policy. A nil clock
// defaults to time.Now.
func NewTracker(policy Policy, clock Clock) (*Tracker, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}

	return &Tracker{
		policy: policy,
		clock:  clock,
		epoch:  clock(),
		// Start far in the past so the very first request always
		// falls into the rollover branch of Admit.
		windowStart: math.MinInt64,
		counts:      make(map[ClientID]int),
		tracked:     make(map[ClientID]struct{}),
	}, nil
}

// Admit records a request for the given client and returns the number
// of seconds the client should wait before retrying. Zero means the
// request is admitted.
//
// If tracked clients have been registered with AddTrackedClient, only
// those clients are subject to the limit; everyone else is admitted
// without being counted. With no tracked clients registered, every
// client is limited.
//
// The sentinel id 0 is never counted and is always admitted; rejecting
// unidentifiable clients is the caller's decision.
func (t *Tracker) Admit(id ClientID) int64 {
	if id == 0 {
		return 0
	}

	elapsed := int64(t.clock().Sub(t.epoch) / time.Second)

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.tracked) > 0 {
		if _, ok := t.tracked[id]; !ok {
			return 0
		}
	}

	if elapsed >= t.windowStart && elapsed < t.windowStart+t.policy.Period {
		// Still inside the current window.
		if t.counts[id] < t.policy.Requests {
			t.counts[id]++
			return 0
		}
		return t.policy.Period - (elapsed - t.windowStart)
	}

	// The window has expired, or this is the first request ever.
	// Dropping the whole map is the tracker's only memory reclamation.
	t.counts = make(map[ClientID]int)
	t.windowStart = elapsed - elapsed%t.policy.Period
	t.counts[id] = 1
	return 0
}

// AddTrackedClient restricts limiting to the given client (and any
// previously added ones). Adding the sentinel id 0 is a no-op.
func (t *Tracker) AddTrackedClient(id ClientID) {
	if id == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked[id] = struct{}{}
}

// Size returns the number of distinct clients counted in the current
// window. It shrinks after every window rollover and is the
// operational signal for the tracker's memory footprint.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}

// Policy returns the rate limit policy. The policy is immutable after
// construction, so no locking is needed.
func (t *Tracker) Policy() Policy {
	return t.policy
}
