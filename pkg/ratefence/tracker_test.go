package ratefence

import (
	"sync"
	"testing"
	"time"
)

// manualClock only moves when advanced, so window boundaries can be
// crossed without sleeping.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestTracker builds a tracker with the policy used throughout
// these tests: 2 requests per 10-second window.
func newTestTracker(t *testing.T) (*Tracker, *manualClock) {
	t.Helper()

	clock := newManualClock()
	tracker, err := NewTracker(Policy{Requests: 2, Period: 10}, clock.Now)
	if err != nil {
		t.Fatalf("NewTracker() failed: %v", err)
	}
	return tracker, clock
}

func TestNewTracker_InvalidPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{"zero requests", Policy{Requests: 0, Period: 10}},
		{"negative requests", Policy{Requests: -5, Period: 10}},
		{"zero period", Policy{Requests: 2, Period: 0}},
		{"negative period", Policy{Requests: 2, Period: -10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTracker(tt.policy, nil); err == nil {
				t.Errorf("NewTracker(%+v) expected error, got nil", tt.policy)
			}
		})
	}
}

func TestTracker_FirstRequestAdmitted(t *testing.T) {
	tracker, _ := newTestTracker(t)

	if wait := tracker.Admit(33); wait != 0 {
		t.Errorf("Admit() = %d, want 0", wait)
	}
}

func TestTracker_RequestsWithinSameWindow(t *testing.T) {
	tracker, _ := newTestTracker(t)

	var wait [3]int64
	wait[0] = tracker.Admit(33)
	wait[1] = tracker.Admit(33)
	wait[2] = tracker.Admit(33)

	if wait[0] != 0 {
		t.Errorf("first request: wait = %d, want 0", wait[0])
	}
	if wait[1] != 0 {
		t.Errorf("second request: wait = %d, want 0", wait[1])
	}
	// No time has elapsed, so the full period remains.
	if wait[2] != 10 {
		t.Errorf("third request: wait = %d, want 10", wait[2])
	}
}

func TestTracker_RequestsInNextWindow(t *testing.T) {
	// Requests in window k+1 must not be affected by requests in
	// window k.
	tracker, clock := newTestTracker(t)

	if wait := tracker.Admit(33); wait != 0 {
		t.Fatalf("first request: wait = %d, want 0", wait)
	}

	clock.Advance(11 * time.Second)

	var wait [3]int64
	wait[0] = tracker.Admit(33)
	wait[1] = tracker.Admit(33)
	wait[2] = tracker.Admit(33)

	if wait[0] != 0 || wait[1] != 0 {
		t.Errorf("new window should admit fresh requests, got %d, %d", wait[0], wait[1])
	}
	// 1 second into the new window, 9 remain.
	if wait[2] != 9 {
		t.Errorf("third request: wait = %d, want 9", wait[2])
	}
}

func TestTracker_MemoryReclaimed(t *testing.T) {
	tracker, clock := newTestTracker(t)

	if got := tracker.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0 before any request", got)
	}

	clock.Advance(103 * time.Second) // t = +3 in window 10
	tracker.Admit(11)
	clock.Advance(1 * time.Second) // t = +4 in window 10
	tracker.Admit(22)
	tracker.Admit(11)
	if got := tracker.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2 distinct clients", got)
	}

	clock.Advance(9 * time.Second) // t = +3 in window 11
	tracker.Admit(33)
	if got := tracker.Size(); got != 1 {
		t.Errorf("Size() = %d after rollover, want 1", got)
	}

	clock.Advance(16 * time.Second) // t = +9 in window 12
	tracker.Admit(33)
	if got := tracker.Size(); got != 1 {
		t.Errorf("Size() = %d after second rollover, want 1", got)
	}
}

func TestTracker_OnlyTrackedClientLimited(t *testing.T) {
	tracker, _ := newTestTracker(t)

	id1 := ParseClientID("127.0.0.1")
	id2 := ParseClientID("127.0.0.2")
	if id1 == id2 {
		t.Fatal("distinct addresses must yield distinct ids")
	}

	tracker.AddTrackedClient(id1)

	tracker.Admit(id1)
	tracker.Admit(id2)
	tracker.Admit(id1)
	tracker.Admit(id2)
	wait1 := tracker.Admit(id1)
	wait2 := tracker.Admit(id2)

	if wait1 != tracker.Policy().Period {
		t.Errorf("tracked client: wait = %d, want %d", wait1, tracker.Policy().Period)
	}
	if wait2 != 0 {
		t.Errorf("untracked client: wait = %d, want 0", wait2)
	}
	// Bypass clients are invisible to the counters.
	if got := tracker.Size(); got != 1 {
		t.Errorf("Size() = %d, want 1 (only the tracked client counted)", got)
	}
}

func TestTracker_SentinelNeverTracked(t *testing.T) {
	tracker, _ := newTestTracker(t)

	// Tracking the sentinel must be a no-op: with the tracked set
	// still empty, every client remains limited.
	tracker.AddTrackedClient(0)

	tracker.Admit(33)
	tracker.Admit(33)
	if wait := tracker.Admit(33); wait == 0 {
		t.Error("client 33 should still be limited after AddTrackedClient(0)")
	}
}

func TestTracker_SentinelNeverCounted(t *testing.T) {
	tracker, _ := newTestTracker(t)

	for i := 0; i < 5; i++ {
		if wait := tracker.Admit(0); wait != 0 {
			t.Errorf("Admit(0) = %d, want 0", wait)
		}
	}
	if got := tracker.Size(); got != 0 {
		t.Errorf("Size() = %d, want 0 (sentinel must not enter the counts)", got)
	}
}

func TestTracker_ReadAccessors(t *testing.T) {
	tracker, clock := newTestTracker(t)

	want := Policy{Requests: 2, Period: 10}
	if got := tracker.Policy(); got != want {
		t.Errorf("Policy() = %+v, want %+v", got, want)
	}

	tracker.Admit(33)
	clock.Advance(42 * time.Second)
	if got := tracker.Policy(); got != want {
		t.Errorf("Policy() changed over the tracker's lifetime: %+v", got)
	}

	// Size is a pure snapshot.
	before := tracker.Size()
	for i := 0; i < 10; i++ {
		tracker.Size()
	}
	if got := tracker.Size(); got != before {
		t.Errorf("Size() mutated state: %d -> %d", before, got)
	}
}

func TestTracker_ConcurrentAdmit(t *testing.T) {
	clock := newManualClock()
	tracker, err := NewTracker(Policy{Requests: 1000, Period: 10}, clock.Now)
	if err != nil {
		t.Fatalf("NewTracker() failed: %v", err)
	}

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base ClientID) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				tracker.Admit(base)
				tracker.Size()
			}
		}(ClientID(g + 1))
	}
	wg.Wait()

	if got := tracker.Size(); got != goroutines {
		t.Errorf("Size() = %d, want %d distinct clients", got, goroutines)
	}
	// Each client stayed well under the budget, so nothing is denied.
	for g := 1; g <= goroutines; g++ {
		if wait := tracker.Admit(ClientID(g)); wait != 0 {
			t.Errorf("client %d unexpectedly denied with wait %d", g, wait)
		}
	}
}
