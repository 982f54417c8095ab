package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    "gopkg.in/yaml.v3"
)

type Config struct {
    App struct {
        Environment string
        LogLevel    string
        NumWorkers  int
        BufferSize  int
        BatchSize   int
        TimeoutSecs int
    }

    ClickHouse struct {
        Host            string
        Port            int
        User            string
        Password        string
        Database        string
        MaxOpenConns    int
        MaxIdleConns    int
        ConnMaxLifetime time.Duration
        QueryTimeout    time.Duration
        Debug           bool
    }

    Security struct {
        TLSEnabled     bool
        CertFile       string
        KeyFile        string
        RequestTimeout time.Duration
    }

    Metrics struct {
        Prefix      string
        EnableDebug bool
        Labels      map[string]string
    }

    // Ticker holds the connection-controller knobs described in
    // ticker.Option: host, credentials, reconnect budget and the initial
    // watchlist to subscribe once connected.
    Ticker struct {
        Host                  string
        AccessToken           string
        ConnectTimeoutSecs    int
        EnableReconnect       bool
        MaxReconnectDelaySecs int
        MaxReconnectTries     int
        SendRateLimit         float64
        SendBurst             int
        WatchlistPath         string
    }

    // BrokerAuth holds the login-handshake fields forwarded to
    // brokerauth.Credentials.
    BrokerAuth struct {
        LoginURL   string
        ClientID   string
        ClientPIN  string
        TOTPCode   string
        APIKey     string
        LocalIP    string
        PublicIP   string
        MACAddress string
    }
}

func Load() (*Config, error) {
    cfg := &Config{}

    cfg.App.Environment = getEnvOrDefault("APP_ENV", "production")
    cfg.App.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
    cfg.App.NumWorkers = getEnvAsIntOrDefault("NUM_WORKERS", 5)
    cfg.App.BufferSize = getEnvAsIntOrDefault("BUFFER_SIZE", 1000)
    cfg.App.BatchSize = getEnvAsIntOrDefault("BATCH_SIZE", 1000)
    cfg.App.TimeoutSecs = getEnvAsIntOrDefault("TIMEOUT_SECS", 30)

    cfg.ClickHouse.Host = getEnvOrDefault("CLICKHOUSE_HOST", "localhost")
    cfg.ClickHouse.Port = getEnvAsIntOrDefault("CLICKHOUSE_PORT", 9000)
    cfg.ClickHouse.User = getEnvOrDefault("CLICKHOUSE_USER", "default")
    cfg.ClickHouse.Password = os.Getenv("CLICKHOUSE_PASSWORD")
    cfg.ClickHouse.Database = getEnvOrDefault("CLICKHOUSE_DB", "default")
    cfg.ClickHouse.MaxOpenConns = getEnvAsIntOrDefault("CLICKHOUSE_MAX_OPEN_CONNS", 10)
    cfg.ClickHouse.MaxIdleConns = getEnvAsIntOrDefault("CLICKHOUSE_MAX_IDLE_CONNS", 5)
    cfg.ClickHouse.ConnMaxLifetime = time.Duration(getEnvAsIntOrDefault("CLICKHOUSE_CONN_MAX_LIFETIME_MINS", 60)) * time.Minute
    cfg.ClickHouse.QueryTimeout = time.Duration(getEnvAsIntOrDefault("CLICKHOUSE_QUERY_TIMEOUT_SECS", 30)) * time.Second
    cfg.ClickHouse.Debug = cfg.App.Environment != "production"

    cfg.Metrics.Prefix = getEnvOrDefault("METRICS_PREFIX", "ticker")
    cfg.Metrics.EnableDebug = cfg.App.Environment != "production"

    cfg.Ticker.Host = getEnvOrDefault("TICKER_HOST", "ws.broker.example")
    cfg.Ticker.AccessToken = os.Getenv("TICKER_ACCESS_TOKEN")
    cfg.Ticker.ConnectTimeoutSecs = getEnvAsIntOrDefault("TICKER_CONNECT_TIMEOUT_SECS", 5)
    cfg.Ticker.EnableReconnect = getEnvOrDefault("TICKER_ENABLE_RECONNECT", "true") == "true"
    cfg.Ticker.MaxReconnectDelaySecs = getEnvAsIntOrDefault("TICKER_MAX_RECONNECT_DELAY_SECS", 60)
    cfg.Ticker.MaxReconnectTries = getEnvAsIntOrDefault("TICKER_MAX_RECONNECT_TRIES", 30)
    cfg.Ticker.SendRateLimit = getEnvAsFloatOrDefault("TICKER_SEND_RATE_LIMIT", 50)
    cfg.Ticker.SendBurst = getEnvAsIntOrDefault("TICKER_SEND_BURST", 50)
    cfg.Ticker.WatchlistPath = getEnvOrDefault("TICKER_WATCHLIST_PATH", "watchlist.yaml")

    cfg.BrokerAuth.LoginURL = getEnvOrDefault("BROKER_LOGIN_URL", "https://apiconnect.example.com/rest/auth/user/v1/loginByPassword")
    cfg.BrokerAuth.ClientID = os.Getenv("BROKER_CLIENT_ID")
    cfg.BrokerAuth.ClientPIN = os.Getenv("BROKER_CLIENT_PIN")
    cfg.BrokerAuth.TOTPCode = os.Getenv("BROKER_TOTP_CODE")
    cfg.BrokerAuth.APIKey = os.Getenv("BROKER_API_KEY")
    cfg.BrokerAuth.LocalIP = os.Getenv("BROKER_CLIENT_LOCAL_IP")
    cfg.BrokerAuth.PublicIP = os.Getenv("BROKER_CLIENT_PUBLIC_IP")
    cfg.BrokerAuth.MACAddress = os.Getenv("BROKER_MAC_ADDRESS")

    return cfg, nil
}

// WatchlistEntry names one instrument to subscribe to as soon as the
// connection comes up, and the mode to subscribe it in.
type WatchlistEntry struct {
    Symbol string `yaml:"symbol"`
    Token  int32  `yaml:"token"`
    Mode   string `yaml:"mode"`
}

// LoadWatchlist reads the YAML instrument list named by Ticker.WatchlistPath.
// A missing file is not an error: it just means start with an empty ledger
// and rely on runtime Subscribe calls.
func LoadWatchlist(path string) ([]WatchlistEntry, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        if os.IsNotExist(err) {
            return nil, nil
        }
        return nil, fmt.Errorf("config: read watchlist %s: %w", path, err)
    }

    var entries []WatchlistEntry
    if err := yaml.Unmarshal(data, &entries); err != nil {
        return nil, fmt.Errorf("config: parse watchlist %s: %w", path, err)
    }
    return entries, nil
}

func getEnvOrDefault(key, defaultValue string) string {
    if value := os.Getenv(key); value != "" {
        return value
    }
    return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
    if value := os.Getenv(key); value != "" {
        if intVal, err := strconv.Atoi(value); err == nil {
            return intVal
        }
    }
    return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
    if value := os.Getenv(key); value != "" {
        if f, err := strconv.ParseFloat(value, 64); err == nil {
            return f
        }
    }
    return defaultValue
}
