package models

import (
    "sync"
    "time"
)

// TokenStats tracks running min/max/avg price per instrument, updated by
// the db sink as ticks are written. It is a plain snapshot type; callers
// serialize access through TokenStatsTracker.
type TokenStats struct {
    Token       int32
    LastUpdate  time.Time
    TickCount   int64
    MinPrice    float64
    MaxPrice    float64
    AvgPrice    float64
    TotalVolume int64
}

// TokenStatsTracker aggregates TokenStats per instrument under a single
// mutex. The set of instruments is small (a watchlist, not the whole
// exchange), so a map with a coarse lock is simpler than sharding it.
type TokenStatsTracker struct {
    mu    sync.Mutex
    stats map[int32]*TokenStats
}

func NewTokenStatsTracker() *TokenStatsTracker {
    return &TokenStatsTracker{stats: make(map[int32]*TokenStats)}
}

func (t *TokenStatsTracker) Observe(token int32, price float64, volume int32, at time.Time) {
    t.mu.Lock()
    defer t.mu.Unlock()

    s, ok := t.stats[token]
    if !ok {
        s = &TokenStats{Token: token, MinPrice: price, MaxPrice: price}
        t.stats[token] = s
    }
    s.TickCount++
    s.LastUpdate = at
    s.TotalVolume += int64(volume)
    if price < s.MinPrice || s.TickCount == 1 {
        s.MinPrice = price
    }
    if price > s.MaxPrice {
        s.MaxPrice = price
    }
    s.AvgPrice += (price - s.AvgPrice) / float64(s.TickCount)
}

func (t *TokenStatsTracker) Snapshot(token int32) (TokenStats, bool) {
    t.mu.Lock()
    defer t.mu.Unlock()
    s, ok := t.stats[token]
    if !ok {
        return TokenStats{}, false
    }
    return *s, true
}

// WorkerStats tracks one db-sink worker's throughput for the health and
// metrics endpoints.
type WorkerStats struct {
    WorkerID       int
    ProcessedCount int64
    ErrorCount     int64
    LastProcessed  time.Time
}

// WorkerStatsTracker aggregates WorkerStats per sink worker under a single
// mutex, mirroring TokenStatsTracker. The worker pool is sized in the
// single digits, so a map with a coarse lock is again simpler than
// sharding it.
type WorkerStatsTracker struct {
    mu    sync.Mutex
    stats map[int]*WorkerStats
}

func NewWorkerStatsTracker() *WorkerStatsTracker {
    return &WorkerStatsTracker{stats: make(map[int]*WorkerStats)}
}

// ObserveProcessed records one successfully converted-and-buffered tick
// for workerID.
func (t *WorkerStatsTracker) ObserveProcessed(workerID int, at time.Time) {
    t.mu.Lock()
    defer t.mu.Unlock()
    s := t.workerLocked(workerID)
    s.ProcessedCount++
    s.LastProcessed = at
}

// ObserveError records one failed conversion or insert for workerID.
func (t *WorkerStatsTracker) ObserveError(workerID int) {
    t.mu.Lock()
    defer t.mu.Unlock()
    t.workerLocked(workerID).ErrorCount++
}

func (t *WorkerStatsTracker) workerLocked(workerID int) *WorkerStats {
    s, ok := t.stats[workerID]
    if !ok {
        s = &WorkerStats{WorkerID: workerID}
        t.stats[workerID] = s
    }
    return s
}

func (t *WorkerStatsTracker) Snapshot(workerID int) (WorkerStats, bool) {
    t.mu.Lock()
    defer t.mu.Unlock()
    s, ok := t.stats[workerID]
    if !ok {
        return WorkerStats{}, false
    }
    return *s, true
}

// All returns a snapshot of every worker currently tracked, in no
// particular order.
func (t *WorkerStatsTracker) All() []WorkerStats {
    t.mu.Lock()
    defer t.mu.Unlock()
    out := make([]WorkerStats, 0, len(t.stats))
    for _, s := range t.stats {
        out = append(out, *s)
    }
    return out
}
