package main

import (
    "context"
    "encoding/json"
    "log"
    "net/http"
    "time"

    "github.com/cenkalti/backoff/v4"
    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "golang.org/x/time/rate"

    "github.com/crypt0inf0/brokerticker/brokerauth"
    "github.com/crypt0inf0/brokerticker/config"
    "github.com/crypt0inf0/brokerticker/db"
    "github.com/crypt0inf0/brokerticker/metrics"
    "github.com/crypt0inf0/brokerticker/middleware"
    "github.com/crypt0inf0/brokerticker/models"
    "github.com/crypt0inf0/brokerticker/monitoring"
    "github.com/crypt0inf0/brokerticker/ticker"
    "github.com/crypt0inf0/brokerticker/utils"
)

// tickJob pairs one decoded tick with the time it arrived, so the sink
// worker's ClickHouse row carries an accurate received_at even if the
// batch sits in the buffer a moment before flushing.
type tickJob struct {
    tick       ticker.Tick
    receivedAt time.Time
}

func main() {
    // .env is optional: production deploys set these directly in the
    // environment, this just makes local runs convenient.
    if err := godotenv.Load(); err != nil {
        log.Printf("no .env file loaded: %v", err)
    }

    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("Failed to load configuration: %v", err)
    }

    if err := utils.InitLogger(); err != nil {
        log.Fatalf("Failed to initialize logger: %v", err)
    }

    m := metrics.NewMetrics(cfg)

    chDB, err := db.NewClickHouseDB(cfg)
    if err != nil {
        log.Fatalf("Failed to initialize database: %v", err)
    }
    middleware.RegisterShutdownHook(func() { _ = chDB.Close() })

    accessToken := cfg.Ticker.AccessToken
    if accessToken == "" {
        creds := brokerauth.Credentials{
            LoginURL:   cfg.BrokerAuth.LoginURL,
            ClientID:   cfg.BrokerAuth.ClientID,
            ClientPIN:  cfg.BrokerAuth.ClientPIN,
            TOTPCode:   cfg.BrokerAuth.TOTPCode,
            APIKey:     cfg.BrokerAuth.APIKey,
            LocalIP:    cfg.BrokerAuth.LocalIP,
            PublicIP:   cfg.BrokerAuth.PublicIP,
            MACAddress: cfg.BrokerAuth.MACAddress,
        }
        token, _, err := brokerauth.Authenticate(creds)
        if err != nil {
            log.Fatalf("Broker authentication failed: %v", err)
        }
        accessToken = token
    }

    jobs := make(chan tickJob, cfg.App.BufferSize)
    statsTracker := models.NewTokenStatsTracker()
    workerStats := models.NewWorkerStatsTracker()

    for w := 1; w <= cfg.App.NumWorkers; w++ {
        go runSinkWorker(w, jobs, chDB, m, statsTracker, workerStats, cfg.App.BatchSize)
    }

    hostSinks := ticker.EventSinks{
        OnTicks: func(c *ticker.Client, ticks []ticker.Tick) {
            now := time.Now()
            for _, t := range ticks {
                select {
                case jobs <- tickJob{tick: t, receivedAt: now}:
                default:
                    utils.Logger.Warnw("sink queue full, dropping tick", "instrument_token", t.InstrumentToken)
                }
            }
        },
        OnOrderUpdate: func(c *ticker.Client, pb ticker.Postback) {
            utils.Logger.Infow("order update", "order_id", pb.OrderID, "status", pb.Status)
        },
        OnMessage: func(c *ticker.Client, raw []byte) {
            utils.Logger.Infow("broker message", "payload", string(raw))
        },
        OnError: func(c *ticker.Client, code int, reason string) {
            utils.Logger.Errorw("connection error", "code", code, "reason", reason)
        },
        OnConnectError: func(c *ticker.Client, err error) {
            utils.Logger.Errorw("connect failed", "error", err)
        },
        OnTryReconnect: func(c *ticker.Client, attempt uint32) {
            utils.Logger.Warnw("reconnecting", "attempt", attempt)
        },
        OnReconnectFail: func(c *ticker.Client) {
            utils.Logger.Errorw("reconnect budget exhausted")
        },
        OnClose: func(c *ticker.Client, code int, reason string) {
            utils.Logger.Infow("connection closed", "code", code, "reason", reason)
        },
    }

    tickerClient := ticker.NewClient(cfg.BrokerAuth.APIKey,
        ticker.WithAccessToken(accessToken),
        ticker.WithHost(cfg.Ticker.Host),
        ticker.WithConnectTimeout(time.Duration(cfg.Ticker.ConnectTimeoutSecs)*time.Second),
        ticker.WithReconnect(cfg.Ticker.EnableReconnect,
            time.Duration(cfg.Ticker.MaxReconnectDelaySecs)*time.Second,
            uint32(cfg.Ticker.MaxReconnectTries)),
        ticker.WithLogger(utils.Logger),
        ticker.WithSendRateLimit(rate.Limit(cfg.Ticker.SendRateLimit), cfg.Ticker.SendBurst),
        ticker.WithEventSinks(ticker.Chain(m.Sinks(), hostSinks)),
    )
    middleware.RegisterShutdownHook(tickerClient.Stop)
    m.WireClient(tickerClient)

    seedWatchlist(tickerClient, cfg.Ticker.WatchlistPath)

    monitoring.RegisterHealthCheck("clickhouse", func() bool { return true })
    monitoring.RegisterHealthCheck("ticker_connected", tickerClient.IsConnected)
    monitoring.RegisterHealthCheck("ticker_heartbeat_fresh", func() bool {
        last := tickerClient.GetLastBeatTime()
        return !last.IsZero() && time.Since(last) < 30*time.Second
    })
    monitoring.RegisterHealthCheck("ticker_pong_fresh", func() bool {
        last := tickerClient.GetLastPongTime()
        return !last.IsZero() && time.Since(last) < 10*time.Second
    })

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    go func() {
        // With reconnect enabled, Connect swallows a failed initial dial and
        // hands off to its own backoff loop, so this only re-dials once that
        // loop gives up (Run returns ErrReconnectExhausted) — never
        // concurrently with it.
        operation := func() error {
            if err := tickerClient.Connect(ctx); err != nil {
                return err
            }
            return tickerClient.Run(ctx)
        }
        retry := utils.NewExponentialBackoff()
        err := backoff.RetryNotify(operation, retry,
            func(err error, duration time.Duration) {
                utils.Logger.Warnw("supervisor retrying ticker connection", "error", err, "backoff", duration)
            })
        if err != nil {
            utils.Logger.Errorw("ticker supervisor gave up", "error", err)
        }
    }()

    monitoring.StartMetricsCollection()

    mux := http.NewServeMux()
    mux.Handle("/health", monitoring.InstrumentHandler("health", http.HandlerFunc(monitoring.HealthCheckHandler)))
    mux.Handle("/metrics", monitoring.InstrumentHandler("metrics", promhttp.Handler()))
    mux.Handle("/workers", monitoring.InstrumentHandler("workers", workersHandler(workerStats)))
    mux.Handle("/stats", monitoring.InstrumentHandler("stats", statsHandler(m)))

    server := &http.Server{
        Addr:    ":8080",
        Handler: utils.RequestLogger(mux),
    }

    if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        utils.Error(err, "HTTP server error")
    }
}

// workersHandler reports each sink worker's throughput, sourced from the
// same WorkerStatsTracker the workers update as they process ticks.
func workersHandler(stats *models.WorkerStatsTracker) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json")
        json.NewEncoder(w).Encode(stats.All())
    }
}

// statsHandler reports the pipeline-wide tick throughput tracked by m.
func statsHandler(m *metrics.Metrics) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        processed, errors, lastProcessed, uptime := m.GetStats()
        w.Header().Set("Content-Type", "application/json")
        json.NewEncoder(w).Encode(struct {
            Processed     uint64        `json:"processed"`
            Errors        uint64        `json:"errors"`
            LastProcessed time.Time     `json:"last_processed"`
            Uptime        time.Duration `json:"uptime_ns"`
        }{processed, errors, lastProcessed, uptime})
    }
}

func seedWatchlist(c *ticker.Client, path string) {
    entries, err := config.LoadWatchlist(path)
    if err != nil {
        utils.Logger.Warnw("could not load watchlist", "error", err)
        return
    }
    byMode := make(map[ticker.Mode][]int32)
    for _, e := range entries {
        mode := ticker.Mode(e.Mode)
        byMode[mode] = append(byMode[mode], e.Token)
    }
    for mode, tokens := range byMode {
        c.Seed(mode, tokens)
    }
}

func runSinkWorker(id int, jobs <-chan tickJob, chDB *db.ClickHouseDB, m *metrics.Metrics, stats *models.TokenStatsTracker, workerStats *models.WorkerStatsTracker, batchSize int) {
    buf := make([]models.StoredTick, 0, batchSize)
    flush := time.NewTicker(5 * time.Second)
    defer flush.Stop()

    doFlush := func() {
        if len(buf) == 0 {
            return
        }
        start := time.Now()
        monitoring.BatchSize.Set(float64(len(buf)))
        if err := chDB.InsertTicks(context.Background(), buf); err != nil {
            utils.Error(err, "batch insert failed", "worker_id", id, "rows", len(buf))
            m.IncrementErrors()
            workerStats.ObserveError(id)
            monitoring.ErrorCounter.WithLabelValues("db_insert").Inc()
        } else {
            elapsed := time.Since(start)
            m.RecordInsertDuration(elapsed)
            monitoring.QueryDuration.WithLabelValues("batch_insert").Observe(elapsed.Seconds())
        }
        buf = buf[:0]
    }

    for {
        select {
        case job, ok := <-jobs:
            if !ok {
                doFlush()
                return
            }
            row, err := db.FromTick(job.tick, job.receivedAt)
            if err != nil {
                utils.Error(err, "convert tick failed", "worker_id", id)
                m.IncrementErrors()
                workerStats.ObserveError(id)
                monitoring.ErrorCounter.WithLabelValues("tick_convert").Inc()
                continue
            }
            stats.Observe(job.tick.InstrumentToken, job.tick.LastPrice, job.tick.VolumeTraded, job.receivedAt)
            if snap, ok := stats.Snapshot(job.tick.InstrumentToken); ok {
                utils.Logger.Debugw("token stats updated",
                    "worker_id", id,
                    "token", snap.Token,
                    "tick_count", snap.TickCount,
                    "avg_price", snap.AvgPrice,
                    "min_price", snap.MinPrice,
                    "max_price", snap.MaxPrice,
                )
            }
            workerStats.ObserveProcessed(id, job.receivedAt)
            buf = append(buf, row)
            if len(buf) >= batchSize {
                doFlush()
            }
        case <-flush.C:
            doFlush()
        }
    }
}
