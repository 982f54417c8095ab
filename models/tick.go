package models

import "time"

// StoredTick is the ClickHouse row shape for a decoded ticker.Tick. Market
// depth is kept as two JSON blobs rather than nested columns: depth arrays
// are read back whole for display, never filtered by individual level, so
// ClickHouse's native array-of-tuple columns would buy nothing here.
type StoredTick struct {
    ReceivedAt      time.Time `ch:"received_at"`
    InstrumentToken int32     `ch:"instrument_token"`
    Segment         uint8     `ch:"segment"`
    Mode            string    `ch:"mode"`
    IsTradable      bool      `ch:"is_tradable"`
    LastPrice       float64   `ch:"last_price"`
    LastTradedQty   int32     `ch:"last_traded_qty"`
    AvgTradePrice   float64   `ch:"avg_trade_price"`
    Volume          int32     `ch:"volume"`
    TotalBuyQty     int32     `ch:"total_buy_qty"`
    TotalSellQty    int32     `ch:"total_sell_qty"`
    Open            float64   `ch:"open_price"`
    High            float64   `ch:"high_price"`
    Low             float64   `ch:"low_price"`
    Close           float64   `ch:"close_price"`
    NetChange       float64   `ch:"net_change"`
    OI              int32     `ch:"oi"`
    OIDayHigh       int32     `ch:"oi_day_high"`
    OIDayLow        int32     `ch:"oi_day_low"`
    LastTradeTime   int64     `ch:"last_trade_time"`
    Timestamp       int64     `ch:"exchange_timestamp"`
    DepthBuyJSON    string    `ch:"depth_buy_json"`
    DepthSellJSON   string    `ch:"depth_sell_json"`
}
