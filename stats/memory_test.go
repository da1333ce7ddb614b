package stats

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMemory_Record(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Record(ctx, "10.0.0.1", true)
	m.Record(ctx, "10.0.0.1", true)
	m.Record(ctx, "10.0.0.1", false)
	m.Record(ctx, "10.0.0.2", true)

	snap := m.Snapshot()

	if snap.TotalRequests != 4 {
		t.Errorf("TotalRequests = %d, want 4", snap.TotalRequests)
	}
	if snap.AllowedRequests != 3 {
		t.Errorf("AllowedRequests = %d, want 3", snap.AllowedRequests)
	}
	if snap.DeniedRequests != 1 {
		t.Errorf("DeniedRequests = %d, want 1", snap.DeniedRequests)
	}
	if snap.UniqueClients != 2 {
		t.Errorf("UniqueClients = %d, want 2", snap.UniqueClients)
	}
}

func TestMemory_SnapshotTopClients(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// 15 clients with increasing request counts.
	for i := 1; i <= 15; i++ {
		client := fmt.Sprintf("10.0.0.%d", i)
		for j := 0; j < i; j++ {
			m.Record(ctx, client, true)
		}
	}

	snap := m.Snapshot()

	if len(snap.TopClients) != 10 {
		t.Fatalf("TopClients has %d entries, want 10", len(snap.TopClients))
	}
	if snap.TopClients[0].ClientID != "10.0.0.15" {
		t.Errorf("busiest client = %s, want 10.0.0.15", snap.TopClients[0].ClientID)
	}
	for i := 1; i < len(snap.TopClients); i++ {
		if snap.TopClients[i].TotalRequests > snap.TopClients[i-1].TotalRequests {
			t.Errorf("TopClients not sorted at index %d", i)
		}
	}
}

func TestMemory_PerClientCounters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Record(ctx, "10.0.0.1", true)
	m.Record(ctx, "10.0.0.1", false)
	m.Record(ctx, "10.0.0.1", false)

	snap := m.Snapshot()
	if len(snap.TopClients) != 1 {
		t.Fatalf("TopClients has %d entries, want 1", len(snap.TopClients))
	}

	client := snap.TopClients[0]
	if client.TotalRequests != 3 || client.AllowedRequests != 1 || client.DeniedRequests != 2 {
		t.Errorf("client counters = %d/%d/%d, want 3/1/2",
			client.TotalRequests, client.AllowedRequests, client.DeniedRequests)
	}
	if client.FirstRequestAt.After(client.LastRequestAt) {
		t.Error("FirstRequestAt is after LastRequestAt")
	}
}

func TestMemory_SnapshotIsACopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Record(ctx, "10.0.0.1", true)

	snap := m.Snapshot()
	snap.TopClients[0].TotalRequests = 999

	if got := m.Snapshot().TopClients[0].TotalRequests; got != 1 {
		t.Errorf("mutating a snapshot leaked into the recorder: %d", got)
	}
}

type failingRecorder struct{ err error }

func (f *failingRecorder) Record(context.Context, string, bool) error { return f.err }

func TestMulti(t *testing.T) {
	m1 := NewMemory()
	m2 := NewMemory()
	wantErr := errors.New("backend down")

	rec := Multi(m1, &failingRecorder{err: wantErr}, m2)

	if err := rec.Record(context.Background(), "10.0.0.1", true); !errors.Is(err, wantErr) {
		t.Errorf("Record() error = %v, want %v", err, wantErr)
	}

	// Recorders after the failing one still see the event.
	if got := m2.Snapshot().TotalRequests; got != 1 {
		t.Errorf("second recorder TotalRequests = %d, want 1", got)
	}
}
