// Package metrics exposes the ticker-domain counters as both Prometheus
// collectors and a GetStats summary. Tick, reconnect and connection-state
// counters are driven through a ticker.EventSinks adapter; the ClickHouse
// insert counters are driven by the sink workers in main.
package metrics

import (
    "sync"
    "sync/atomic"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"

    "github.com/crypt0inf0/brokerticker/config"
    "github.com/crypt0inf0/brokerticker/ticker"
)

var (
    ticksDecodedMetric = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticker_ticks_decoded_total",
        Help: "Total number of decoded market ticks",
    })

    malformedFramesMetric = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticker_malformed_frames_total",
        Help: "Total number of binary frames dropped for being malformed",
    })

    reconnectAttemptsMetric = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticker_reconnect_attempts_total",
        Help: "Total number of reconnect attempts made",
    })

    reconnectFailuresMetric = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticker_reconnect_failures_total",
        Help: "Total number of times the reconnect budget was exhausted",
    })

    dbErrorsMetric = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticker_db_insert_errors_total",
        Help: "Total number of failed ClickHouse batch inserts",
    })

    dbInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "ticker_db_insert_seconds",
        Help:    "Time spent flushing a batch of ticks to ClickHouse",
        Buckets: prometheus.DefBuckets,
    })

    ledgerSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
        Name: "ticker_ledger_size",
        Help: "Number of instruments currently subscribed",
    })

    connectionStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
        Name: "ticker_connection_state",
        Help: "Connection controller state (0=idle,1=connecting,2=connected,3=reconnecting,4=failed)",
    })
)

// noHeartbeatSeconds is what the heartbeat-age gauge reports before the
// first heartbeat has ever arrived, so "no data yet" doesn't read as "very
// fresh" on a dashboard.
const noHeartbeatSeconds = -1

// atomicTime is a concurrency-safe time.Time box, mirroring
// ticker.atomicTime: lastProcessed is written by IncrementProcessed from
// the ticker client's OnTicks callback and read from the HTTP handler
// goroutine serving GetStats.
type atomicTime struct {
    mu sync.RWMutex
    t  time.Time
}

func (a *atomicTime) Set(t time.Time) {
    a.mu.Lock()
    defer a.mu.Unlock()
    a.t = t
}

func (a *atomicTime) Get() time.Time {
    a.mu.RLock()
    defer a.mu.RUnlock()
    return a.t
}

// Metrics is a thin facade over the package's Prometheus collectors, kept
// as a value so it can be threaded through main and the health/metrics
// HTTP handlers instead of reaching for globals everywhere.
type Metrics struct {
    cfg *config.Config

    processedTicks uint64
    errorCount     uint64
    lastProcessed  atomicTime
    startTime      time.Time
}

func NewMetrics(cfg *config.Config) *Metrics {
    return &Metrics{cfg: cfg, startTime: time.Now()}
}

func (m *Metrics) IncrementProcessed() {
    atomic.AddUint64(&m.processedTicks, 1)
    ticksDecodedMetric.Inc()
    m.lastProcessed.Set(time.Now())
}

func (m *Metrics) IncrementErrors() {
    atomic.AddUint64(&m.errorCount, 1)
    dbErrorsMetric.Inc()
}

func (m *Metrics) RecordInsertDuration(d time.Duration) {
    dbInsertDuration.Observe(d.Seconds())
}

func (m *Metrics) GetStats() (processed, errors uint64, lastProcessed time.Time, uptime time.Duration) {
    return atomic.LoadUint64(&m.processedTicks),
        atomic.LoadUint64(&m.errorCount),
        m.lastProcessed.Get(),
        time.Since(m.startTime)
}

// Sinks adapts m into the subset of ticker.EventSinks that observe
// connection lifecycle and tick volume. Chain it with any host-provided
// sinks via ticker.Chain so both fire.
func (m *Metrics) Sinks() ticker.EventSinks {
    return ticker.EventSinks{
        OnConnect: func(c *ticker.Client) {
            connectionStateGauge.Set(float64(c.State()))
        },
        OnTicks: func(c *ticker.Client, ticks []ticker.Tick) {
            for range ticks {
                m.IncrementProcessed()
            }
            ledgerSizeGauge.Set(float64(c.LedgerSize()))
        },
        OnTryReconnect: func(c *ticker.Client, attempt uint32) {
            reconnectAttemptsMetric.Inc()
            connectionStateGauge.Set(float64(c.State()))
        },
        OnReconnectFail: func(c *ticker.Client) {
            reconnectFailuresMetric.Inc()
            connectionStateGauge.Set(float64(c.State()))
        },
        OnClose: func(c *ticker.Client, code int, reason string) {
            connectionStateGauge.Set(float64(c.State()))
        },
        OnMalformedFrame: func(c *ticker.Client, err error) {
            malformedFramesMetric.Inc()
        },
    }
}

// WireClient registers a gauge that reports the age, in seconds, of the
// client's last received heartbeat at scrape time. It reads c.GetLastBeatTime()
// on every scrape rather than being pushed to, since there is no event to
// push on between heartbeats — staleness is exactly what it needs to show.
// Call it once, after the ticker.Client is constructed.
func (m *Metrics) WireClient(c *ticker.Client) {
    promauto.NewGaugeFunc(prometheus.GaugeOpts{
        Name: "ticker_heartbeat_age_seconds",
        Help: "Seconds since the last heartbeat frame was received, or -1 if none has arrived yet",
    }, func() float64 {
        last := c.GetLastBeatTime()
        if last.IsZero() {
            return noHeartbeatSeconds
        }
        return time.Since(last).Seconds()
    })
}
