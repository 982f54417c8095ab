package ticker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestClientSubscribeRequiresConnection(t *testing.T) {
	c := NewClient("key")
	if err := c.Subscribe(context.Background(), []int32{1}); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if c.ledger.Len() != 0 {
		t.Fatal("ledger should be untouched on a failed subscribe")
	}
}

func TestClientHeartbeatAdvancesLastBeatTime(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{results: []fakeDialResult{{conn: conn}}}
	c := NewClient("key", WithDialer(dialer))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	before := c.GetLastBeatTime()
	conn.push(websocket.BinaryMessage, []byte{0x00})

	runDone := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(runDone)
	}()

	deadline := time.Now().Add(time.Second)
	for c.GetLastBeatTime().Equal(before) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.GetLastBeatTime().Equal(before) {
		t.Fatal("expected last beat time to advance after a heartbeat frame")
	}

	c.Stop()
	<-runDone
}

// Scenario 6: resubscription batches by mode after a successful connect,
// with unset-sentinel entries folded into the quote batch.
func TestClientResubscribePartitionsByMode(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{results: []fakeDialResult{{conn: conn}}}
	c := NewClient("key", WithDialer(dialer))

	c.ledger.SetMode(ModeLTP, []int32{100})
	c.ledger.SetMode(ModeQuote, []int32{200})
	c.ledger.Subscribe([]int32{300}) // unset -> folds into quote
	c.ledger.SetMode(ModeFull, []int32{400})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	frames := conn.writtenFrames()
	if len(frames) != 3 {
		t.Fatalf("expected 3 resubscribe frames, got %d", len(frames))
	}

	seenTokens := map[float64]string{}
	for _, f := range frames {
		var env struct {
			A string `json:"a"`
			V []any  `json:"v"`
		}
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("frame not valid JSON: %v", err)
		}
		if env.A != "mode" {
			t.Fatalf("expected action 'mode', got %q", env.A)
		}
		mode, _ := env.V[0].(string)
		tokens, _ := env.V[1].([]any)
		for _, tok := range tokens {
			seenTokens[tok.(float64)] = mode
		}
	}

	want := map[float64]string{100: "ltp", 200: "quote", 300: "quote", 400: "full"}
	for tok, mode := range want {
		if got := seenTokens[tok]; got != mode {
			t.Fatalf("token %v: expected mode %q, got %q", tok, mode, got)
		}
	}
}

// Property 7: a clean close (code 1000) never triggers a reconnect.
func TestClientCleanCloseDoesNotReconnect(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{results: []fakeDialResult{{conn: conn}}}
	c := NewClient("key", WithDialer(dialer), WithReconnect(true, time.Second, 5))

	var sawError bool
	var sawClose bool
	c.sinks = EventSinks{
		OnError: func(*Client, int, string) { sawError = true },
		OnClose: func(*Client, int, string) { sawClose = true },
	}

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	conn.pushErr(&websocket.CloseError{Code: 1000, Text: "bye"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = c.Run(ctx)

	if sawError {
		t.Fatal("did not expect onError for a clean close")
	}
	if !sawClose {
		t.Fatal("expected onClose for a clean close")
	}
	if c.State() == StateReconnecting {
		t.Fatal("clean close must not enter Reconnecting")
	}
}

// Scenario 7: each retry is announced with the next attempt counter, the
// doubling backoff delay ends capped at maxDelay, and exhaustion invokes
// onReconnectFail.
func TestClientReconnectBackoffSequenceAndExhaustion(t *testing.T) {
	dialer := &fakeDialer{results: []fakeDialResult{{err: errCannotDial}}}
	c := NewClient("key", WithDialer(dialer), WithReconnect(true, 25*time.Millisecond, 3))
	c.delay = 10 * time.Millisecond // scale the fixed 2s initial delay down for the test

	var attempts []uint32
	var failed bool
	c.sinks = EventSinks{
		OnTryReconnect:  func(_ *Client, attempt uint32) { attempts = append(attempts, attempt) },
		OnReconnectFail: func(*Client) { failed = true },
	}

	c.enterReconnecting(context.Background())

	if !failed {
		t.Fatal("expected onReconnectFail after exhausting retries")
	}
	if c.State() != StateFailed {
		t.Fatalf("expected StateFailed, got %v", c.State())
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 reconnect attempts, got %d", len(attempts))
	}
	for i, a := range attempts {
		if a != uint32(i+1) {
			t.Fatalf("attempt %d: expected counter %d, got %d", i, i+1, a)
		}
	}
	if c.delay != 25*time.Millisecond {
		t.Fatalf("expected delay capped at 25ms, got %v", c.delay)
	}
}
