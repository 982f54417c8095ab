package db

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/ClickHouse/clickhouse-go/v2"
    "github.com/ClickHouse/clickhouse-go/v2/lib/driver"

    "github.com/crypt0inf0/brokerticker/config"
    "github.com/crypt0inf0/brokerticker/middleware"
    "github.com/crypt0inf0/brokerticker/models"
    "github.com/crypt0inf0/brokerticker/ticker"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS ticks (
    received_at DateTime,
    instrument_token Int32,
    segment UInt8,
    mode String,
    is_tradable UInt8,
    last_price Float64,
    last_traded_qty Int32,
    avg_trade_price Float64,
    volume Int32,
    total_buy_qty Int32,
    total_sell_qty Int32,
    open_price Float64,
    high_price Float64,
    low_price Float64,
    close_price Float64,
    net_change Float64,
    oi Int32,
    oi_day_high Int32,
    oi_day_low Int32,
    last_trade_time Int64,
    exchange_timestamp Int64,
    depth_buy_json String,
    depth_sell_json String
) ENGINE = MergeTree()
ORDER BY (instrument_token, received_at)
`

type ClickHouseDB struct {
    conn driver.Conn
}

func NewClickHouseDB(cfg *config.Config) (*ClickHouseDB, error) {
    conn, err := clickhouse.Open(&clickhouse.Options{
        Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickHouse.Host, cfg.ClickHouse.Port)},
        Auth: clickhouse.Auth{
            Database: cfg.ClickHouse.Database,
            Username: cfg.ClickHouse.User,
            Password: cfg.ClickHouse.Password,
        },
        Protocol: clickhouse.Native,
        Debug:    cfg.ClickHouse.Debug,
        Settings: clickhouse.Settings{
            "max_execution_time": int(cfg.ClickHouse.QueryTimeout.Seconds()),
        },
    })
    if err != nil {
        return nil, fmt.Errorf("db: connect to clickhouse: %w", err)
    }

    db := &ClickHouseDB{conn: conn}
    if err := db.createTable(); err != nil {
        return nil, err
    }
    return db, nil
}

func (db *ClickHouseDB) createTable() error {
    return db.conn.Exec(context.Background(), createTableSQL)
}

func (db *ClickHouseDB) Close() error {
    return db.conn.Close()
}

// InsertTicks batch-inserts rows, wrapped in the shared circuit breaker so
// a run of ClickHouse errors stops sending traffic instead of piling up
// timeouts on every flush.
func (db *ClickHouseDB) InsertTicks(ctx context.Context, rows []models.StoredTick) error {
    return middleware.WithCircuitBreaker(ctx, "clickhouse-insert", func() error {
        batch, err := db.conn.PrepareBatch(ctx, "INSERT INTO ticks")
        if err != nil {
            return err
        }
        for i := range rows {
            if err := batch.AppendStruct(&rows[i]); err != nil {
                return err
            }
        }
        return batch.Send()
    })
}

// FromTick converts a decoded ticker.Tick into its ClickHouse row shape.
// Depth is JSON-encoded rather than modeled as native columns; see the
// StoredTick doc comment for why.
func FromTick(t ticker.Tick, receivedAt time.Time) (models.StoredTick, error) {
    buyJSON, err := json.Marshal(t.MarketDepth.Buy)
    if err != nil {
        return models.StoredTick{}, fmt.Errorf("db: marshal buy depth: %w", err)
    }
    sellJSON, err := json.Marshal(t.MarketDepth.Sell)
    if err != nil {
        return models.StoredTick{}, fmt.Errorf("db: marshal sell depth: %w", err)
    }

    return models.StoredTick{
        ReceivedAt:      receivedAt,
        InstrumentToken: t.InstrumentToken,
        Segment:         uint8(ticker.SegmentOf(t.InstrumentToken)),
        Mode:            string(t.Mode),
        IsTradable:      t.IsTradable,
        LastPrice:       t.LastPrice,
        LastTradedQty:   t.LastTradedQuantity,
        AvgTradePrice:   t.AverageTradePrice,
        Volume:          t.VolumeTraded,
        TotalBuyQty:     t.TotalBuyQuantity,
        TotalSellQty:    t.TotalSellQuantity,
        Open:            t.OHLC.Open,
        High:            t.OHLC.High,
        Low:             t.OHLC.Low,
        Close:           t.OHLC.Close,
        NetChange:       t.NetChange,
        OI:              t.OI,
        OIDayHigh:       t.OIDayHigh,
        OIDayLow:        t.OIDayLow,
        LastTradeTime:   int64(t.LastTradeTime),
        Timestamp:       int64(t.Timestamp),
        DepthBuyJSON:    string(buyJSON),
        DepthSellJSON:   string(sellJSON),
    }, nil
}
