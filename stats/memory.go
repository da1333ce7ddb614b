// Package stats collects per-decision admission statistics.
//
// Recorders receive one event per admission check from the limiter and
// aggregate it; recording is best-effort and must never slow down or
// fail a request. The in-memory recorder backs the demo server's
// /stats endpoint; the Redis recorder ships the same events to a
// shared Redis instance for fleet-wide observability. Admission
// decisions themselves always stay process-local.
package stats

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Memory aggregates admission statistics in process memory.
type Memory struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	deniedRequests  atomic.Int64

	mu          sync.RWMutex
	clientStats map[string]*ClientStats
	startTime   time.Time
}

// ClientStats tracks statistics for a specific client.
type ClientStats struct {
	ClientID        string    `json:"client_id"`
	TotalRequests   int64     `json:"total_requests"`
	AllowedRequests int64     `json:"allowed_requests"`
	DeniedRequests  int64     `json:"denied_requests"`
	FirstRequestAt  time.Time `json:"first_request_at"`
	LastRequestAt   time.Time `json:"last_request_at"`
}

// Snapshot represents a point-in-time view of the recorder.
type Snapshot struct {
	TotalRequests   int64          `json:"total_requests"`
	AllowedRequests int64          `json:"allowed_requests"`
	DeniedRequests  int64          `json:"denied_requests"`
	UniqueClients   int64          `json:"unique_clients"`
	TopClients      []*ClientStats `json:"top_clients"`
	UptimeSeconds   int64          `json:"uptime_seconds"`
	StartTime       time.Time      `json:"start_time"`
}

// NewMemory creates a new in-memory recorder.
func NewMemory() *Memory {
	return &Memory{
		clientStats: make(map[string]*ClientStats),
		startTime:   time.Now(),
	}
}

// Record counts one admission decision for the given client.
func (m *Memory) Record(_ context.Context, client string, allowed bool) error {
	m.totalRequests.Add(1)
	if allowed {
		m.allowedRequests.Add(1)
	} else {
		m.deniedRequests.Add(1)
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.clientStats[client]
	if !exists {
		stats = &ClientStats{
			ClientID:       client,
			FirstRequestAt: now,
		}
		m.clientStats[client] = stats
	}

	stats.TotalRequests++
	if allowed {
		stats.AllowedRequests++
	} else {
		stats.DeniedRequests++
	}
	stats.LastRequestAt = now

	return nil
}

// Snapshot returns a copy of the current statistics, with the ten
// busiest clients first.
func (m *Memory) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	topClients := make([]*ClientStats, 0, len(m.clientStats))
	for _, stats := range m.clientStats {
		copied := *stats
		topClients = append(topClients, &copied)
	}

	sort.Slice(topClients, func(i, j int) bool {
		return topClients[i].TotalRequests > topClients[j].TotalRequests
	})
	if len(topClients) > 10 {
		topClients = topClients[:10]
	}

	return &Snapshot{
		TotalRequests:   m.totalRequests.Load(),
		AllowedRequests: m.allowedRequests.Load(),
		DeniedRequests:  m.deniedRequests.Load(),
		UniqueClients:   int64(len(m.clientStats)),
		TopClients:      topClients,
		UptimeSeconds:   int64(time.Since(m.startTime).Seconds()),
		StartTime:       m.startTime,
	}
}
