package middleware

import (
    "context"
    "runtime/debug"
    "sync"
    "time"
    
    "github.com/crypt0inf0/brokerticker/utils"
    "github.com/sony/gobreaker"
)

var (
    circuitBreaker *gobreaker.CircuitBreaker
    once sync.Once
)

func init() {
    once.Do(func() {
        circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
            Name:        "database-breaker",
            MaxRequests: 3,
            Interval:    10 * time.Second,
            Timeout:     60 * time.Second,
            ReadyToTrip: func(counts gobreaker.Counts) bool {
                failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
                return counts.Requests >= 3 && failureRatio >= 0.6
            },
            OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
                utils.Logger.Infow("Circuit breaker state changed",
                    "from", from.String(),
                    "to", to.String())
            },
        })
    })
}

func WithCircuitBreaker(ctx context.Context, operation string, fn func() error) error {
    _, err := circuitBreaker.Execute(func() (interface{}, error) {
        return nil, fn()
    })
    return err
}

func RecoverMiddleware(next func()) {
    defer func() {
        if r := recover(); r != nil {
            stack := debug.Stack()
            utils.Logger.Errorw("Panic recovered",
                "error", r,
                "stack", string(stack))

            GracefulShutdown()
        }
    }()
    next()
}

// shutdownHooks run, in registration order, when RecoverMiddleware catches a
// panic it can't otherwise handle. main registers the ClickHouse Close and
// then the ticker Stop here; no hook flushes a sink worker's pending batch.
var (
    shutdownMu    sync.Mutex
    shutdownHooks []func()
)

func RegisterShutdownHook(fn func()) {
    shutdownMu.Lock()
    defer shutdownMu.Unlock()
    shutdownHooks = append(shutdownHooks, fn)
}

func GracefulShutdown() {
    shutdownMu.Lock()
    hooks := append([]func(){}, shutdownHooks...)
    shutdownMu.Unlock()

    for _, hook := range hooks {
        hook()
    }
}
