package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crypt0inf0/brokerticker/ws"
)

// ConnState is one of the connection controller's five states.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// DefaultHost is the default quote-server host used to build the
	// connect URL when no WithHost option is given.
	DefaultHost = "ws.broker.example"

	defaultConnectTimeout    = 5 * time.Second
	initialReconnectDelay    = 2 * time.Second
	defaultMaxReconnectDelay = 60 * time.Second
	defaultMaxReconnectTries = 30
	pingInterval             = 3 * time.Second
	defaultSendRateLimit     = rate.Limit(50)
	defaultSendBurst         = 50
)

// Option configures a Client at construction time.
type Option func(*Client)

func WithAccessToken(tok string) Option {
	return func(c *Client) { c.accessToken = tok }
}

// WithHost overrides the quote-server host used to build the connect URL.
func WithHost(host string) Option {
	return func(c *Client) { c.host = host }
}

// WithConnectTimeout bounds the dial/handshake for each connect attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

// WithReconnect enables automatic reconnection with the given delay cap
// and attempt budget. initialReconnectDelay (2s) and its doubling are
// fixed by the protocol; only the cap and the attempt budget are tunable.
func WithReconnect(enabled bool, maxDelay time.Duration, maxTries uint32) Option {
	return func(c *Client) {
		c.enableReconnect = enabled
		c.maxReconnectDelay = maxDelay
		c.maxReconnectTries = maxTries
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDialer overrides the transport dialer, mainly for tests.
func WithDialer(d ws.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithEventSinks(s EventSinks) Option {
	return func(c *Client) { c.sinks = s }
}

// WithSendRateLimit throttles outbound subscribe/unsubscribe/setMode
// frames, so a mass resubscription after reconnect doesn't hammer the
// transport.
func WithSendRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// Client owns the connection state machine: connect, heartbeat
// bookkeeping, disconnect classification, exponential-backoff reconnect,
// and post-reconnect resubscription. Inbound frames and disconnects are
// dispatched to callbacks on the goroutine running Run; connect and
// reconnect callbacks fire on the goroutine that dials (the caller of
// Connect, or the background goroutine running the backoff loop).
type Client struct {
	credMu      sync.RWMutex
	apiKey      string
	accessToken string
	host        string

	connectTimeout     time.Duration
	enableReconnect    bool
	maxReconnectDelay  time.Duration
	maxReconnectTries  uint32

	dialer  ws.Dialer
	logger  *zap.SugaredLogger
	limiter *rate.Limiter
	sinks   EventSinks

	ledger *Ledger

	state        atomic.Int32
	reconnecting atomic.Bool
	tries        atomic.Uint32
	delay        time.Duration // touched only from the connection goroutine

	connMu   sync.Mutex
	conn     ws.Conn
	connDone chan struct{}

	lastHeartbeat atomicTime
	lastPong      atomicTime

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewClient constructs a Client for apiKey, applying the config options
// documented alongside it (connectTimeout defaults to 5s, reconnect is
// disabled by default with a 60s cap and 30 tries once enabled).
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:            apiKey,
		host:              DefaultHost,
		connectTimeout:    defaultConnectTimeout,
		maxReconnectDelay: defaultMaxReconnectDelay,
		maxReconnectTries: defaultMaxReconnectTries,
		delay:             initialReconnectDelay,
		ledger:            NewLedger(),
		limiter:           rate.NewLimiter(defaultSendRateLimit, defaultSendBurst),
		wake:              make(chan struct{}, 1),
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = ws.NewGorillaDialer(c.connectTimeout)
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	return c
}

func (c *Client) SetAPIKey(key string) {
	c.credMu.Lock()
	c.apiKey = key
	c.credMu.Unlock()
}

func (c *Client) GetAPIKey() string {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.apiKey
}

func (c *Client) SetAccessToken(tok string) {
	c.credMu.Lock()
	c.accessToken = tok
	c.credMu.Unlock()
}

func (c *Client) GetAccessToken() string {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.accessToken
}

// IsConnected reports whether an active transport is currently held. No
// separate boolean tracks this; the presence of the transport handle is
// the ground truth.
func (c *Client) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

// GetLastBeatTime returns the wall-clock time the last heartbeat frame
// was received. Use alongside IsConnected.
func (c *Client) GetLastBeatTime() time.Time {
	return c.lastHeartbeat.Get()
}

// GetLastPongTime returns the wall-clock time of the last pong.
func (c *Client) GetLastPongTime() time.Time {
	return c.lastPong.Get()
}

// LedgerSize returns the number of instruments currently held in the
// subscription ledger.
func (c *Client) LedgerSize() int {
	return c.ledger.Len()
}

// State returns the controller's current state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
}

func (c *Client) buildURL() string {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	v := url.Values{}
	v.Set("api_key", c.apiKey)
	v.Set("access_token", c.accessToken)
	return fmt.Sprintf("wss://%s/?%s", c.host, v.Encode())
}

func (c *Client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Connect performs one dial attempt. On success the client transitions
// to Connected, resets reconnect bookkeeping, resubscribes any ledger
// entries and invokes OnConnect. On failure it invokes OnConnectError and,
// if reconnection is enabled, starts the backoff loop in the background
// and returns nil: the loop owns dialing from here, so a caller driving
// Connect/Run in a retry supervisor never re-dials concurrently with it.
// Otherwise it transitions to Failed and returns the dial error.
func (c *Client) Connect(ctx context.Context) error {
	err := c.connect(ctx)
	if err != nil {
		if c.sinks.OnConnectError != nil {
			c.sinks.OnConnectError(c, err)
		}
		if c.enableReconnect {
			go c.enterReconnecting(ctx)
			return nil
		}
		c.setState(StateFailed)
		c.signal()
	}
	return err
}

func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(dialCtx, c.buildURL(), http.Header{})
	if err != nil {
		return err
	}

	// Seed the pong clock now: leaving it at its zero value would read
	// as long overdue and could trip a liveness check immediately.
	c.lastPong.Set(time.Now())
	conn.SetPongHandler(func(string) error {
		c.lastPong.Set(time.Now())
		return nil
	})

	done := make(chan struct{})
	c.connMu.Lock()
	c.conn = conn
	c.connDone = done
	c.connMu.Unlock()

	go ws.StartAutoPing(conn, pingInterval, done)

	c.tries.Store(0)
	c.delay = initialReconnectDelay
	c.reconnecting.Store(false)
	c.setState(StateConnected)

	if c.ledger.Len() > 0 {
		c.resubscribe(ctx)
	}
	if c.sinks.OnConnect != nil {
		c.sinks.OnConnect(c)
	}
	c.signal()
	return nil
}

// Run drives the read loop: it blocks, dispatching inbound frames to
// decoders and callbacks in receive order, until Stop is called, ctx is
// canceled, or the reconnect loop gives up.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, ok := c.activeConn()
		if !ok {
			if c.State() == StateFailed {
				return ErrReconnectExhausted
			}
			select {
			case <-c.stopCh:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-c.wake:
			}
			continue
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(ctx, conn, err)
			continue
		}

		switch msgType {
		case ws.BinaryMessage:
			c.handleBinary(data)
		case ws.TextMessage:
			c.handleText(data)
		}
	}
}

func (c *Client) activeConn() (ws.Conn, bool) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn, c.conn != nil
}

func (c *Client) handleBinary(data []byte) {
	if len(data) == 1 {
		c.lastHeartbeat.Set(time.Now())
		return
	}

	packets, err := SplitPackets(data)
	if err != nil {
		c.logger.Warnw("dropping malformed binary frame", "error", err)
		if c.sinks.OnMalformedFrame != nil {
			c.sinks.OnMalformedFrame(c, err)
		}
		return
	}
	if len(packets) == 0 {
		return
	}

	ticks := make([]Tick, 0, len(packets))
	for _, p := range packets {
		ticks = append(ticks, DecodeTick(p))
	}
	if c.sinks.OnTicks != nil {
		c.sinks.OnTicks(c, ticks)
	}
}

func (c *Client) handleText(data []byte) {
	if err := routeText(data, c.sinks, c); err != nil {
		c.logger.Warnw("dropping unroutable text frame", "error", err)
	}
}

// handleDisconnect classifies the closed connection and, for non-clean
// closes, arranges a reconnect. onClose always fires before any reconnect
// attempt begins.
func (c *Client) handleDisconnect(ctx context.Context, conn ws.Conn, err error) {
	code, reason, known := ws.CloseCode(err)
	if !known {
		code = 1006
		reason = err.Error()
	}

	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
		close(c.connDone)
	}
	c.connMu.Unlock()

	if code == 1000 {
		if c.sinks.OnClose != nil {
			c.sinks.OnClose(c, code, reason)
		}
		c.setState(StateIdle)
		c.signal()
		return
	}

	if c.sinks.OnError != nil {
		c.sinks.OnError(c, code, reason)
	}
	if c.sinks.OnClose != nil {
		c.sinks.OnClose(c, code, reason)
	}

	if c.enableReconnect && !c.reconnecting.Load() {
		go c.enterReconnecting(ctx)
	} else {
		c.setState(StateFailed)
		c.signal()
	}
}

// enterReconnecting runs the exponential-backoff reconnect algorithm: it
// sleeps, doubles the delay up to the configured cap, announces the
// attempt, and dials again, until a connect succeeds, the attempt budget
// is exhausted, or Stop is called mid-sleep. Every iteration re-checks
// IsConnected before dialing, so if some other path already holds a live
// transport by the time this loop wakes, it backs off instead of
// clobbering it.
func (c *Client) enterReconnecting(ctx context.Context) {
	if c.IsConnected() {
		return
	}
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	c.setState(StateReconnecting)
	defer c.reconnecting.Store(false)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		if c.IsConnected() {
			return
		}

		tries := c.tries.Add(1)
		if tries > c.maxReconnectTries {
			if c.sinks.OnReconnectFail != nil {
				c.sinks.OnReconnectFail(c)
			}
			c.setState(StateFailed)
			c.signal()
			return
		}

		select {
		case <-time.After(c.delay):
		case <-c.stopCh:
			return
		}

		if c.delay*2 > c.maxReconnectDelay {
			c.delay = c.maxReconnectDelay
		} else {
			c.delay *= 2
		}

		if c.sinks.OnTryReconnect != nil {
			c.sinks.OnTryReconnect(c, tries)
		}

		if c.IsConnected() {
			return
		}
		if err := c.connect(ctx); err == nil {
			return
		}
	}
}

// Stop requests a close on the active transport. Any reconnect attempt
// sleeping in its backoff window observes this and does not initiate a
// new connect.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.WriteMessage(ws.CloseMessage, ws.CloseFrame(1000, "client stop"))
	_ = conn.Close()
}

// Seed records tokens in the given mode without sending a wire frame. Use
// it before the first Connect to populate the watchlist that resubscribe
// will send once the connection comes up.
func (c *Client) Seed(mode Mode, tokens []int32) {
	c.ledger.SetMode(mode, tokens)
}

// Subscribe marks tokens as subscribed and sends the subscribe frame.
// Valid only while connected; the ledger is updated only once the send
// succeeds.
func (c *Client) Subscribe(ctx context.Context, tokens []int32) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.send(ctx, map[string]any{"a": "subscribe", "v": tokens}); err != nil {
		return err
	}
	c.ledger.Subscribe(tokens)
	return nil
}

// Unsubscribe removes tokens from the ledger and sends the unsubscribe
// frame. Valid only while connected.
func (c *Client) Unsubscribe(ctx context.Context, tokens []int32) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.send(ctx, map[string]any{"a": "unsubscribe", "v": tokens}); err != nil {
		return err
	}
	c.ledger.Unsubscribe(tokens)
	return nil
}

// SetMode sets the subscription mode for tokens and sends the mode
// frame. Valid only while connected.
func (c *Client) SetMode(ctx context.Context, mode Mode, tokens []int32) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.sendSetModeWire(ctx, mode, tokens); err != nil {
		return err
	}
	c.ledger.SetMode(mode, tokens)
	return nil
}

func (c *Client) sendSetModeWire(ctx context.Context, mode Mode, tokens []int32) error {
	return c.send(ctx, map[string]any{"a": "mode", "v": []any{string(mode), tokens}})
}

// resubscribe partitions the ledger by mode and submits one setMode
// request per non-empty batch. It only reads the ledger; it never
// mutates it, since the wire is already in sync with the stored modes.
func (c *Client) resubscribe(ctx context.Context) {
	ltp, quote, full := c.ledger.Partition()
	if len(ltp) > 0 {
		if err := c.sendSetModeWire(ctx, ModeLTP, ltp); err != nil {
			c.logger.Warnw("resubscribe: ltp batch failed", "error", err)
		}
	}
	if len(quote) > 0 {
		if err := c.sendSetModeWire(ctx, ModeQuote, quote); err != nil {
			c.logger.Warnw("resubscribe: quote batch failed", "error", err)
		}
	}
	if len(full) > 0 {
		if err := c.sendSetModeWire(ctx, ModeFull, full); err != nil {
			c.logger.Warnw("resubscribe: full batch failed", "error", err)
		}
	}
}

func (c *Client) send(ctx context.Context, payload any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ticker: marshal outbound frame: %w", err)
	}

	conn, ok := c.activeConn()
	if !ok {
		return ErrNotConnected
	}
	return conn.WriteMessage(ws.TextMessage, data)
}
