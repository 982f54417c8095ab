package ticker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/crypt0inf0/brokerticker/ws"
)

// fakeConn is an in-memory ws.Conn stand-in. Tests push inbound frames on
// in and inspect outbound frames via writes.
type fakeConn struct {
	mu     sync.Mutex
	in     chan fakeRead
	writes [][]byte
	closed bool
}

type fakeRead struct {
	msgType int
	data    []byte
	err     error
}

var errCannotDial = errors.New("fakeDialer: dial refused")

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan fakeRead, 16)}
}

func (c *fakeConn) push(msgType int, data []byte) {
	c.in <- fakeRead{msgType: msgType, data: data}
}

func (c *fakeConn) pushErr(err error) {
	c.in <- fakeRead{err: err}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	r, ok := <-c.in
	if !ok {
		return 0, nil, errors.New("fakeConn: closed")
	}
	return r.msgType, r.data, r.err
}

func (c *fakeConn) WriteMessage(msgType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) SetReadDeadline(time.Time) error    { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.in)
	}
	return nil
}

func (c *fakeConn) writtenFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// fakeDialer serves a queue of results to successive Dial calls. The last
// entry repeats once the queue is drained.
type fakeDialer struct {
	mu      sync.Mutex
	results []fakeDialResult
	calls   int
}

type fakeDialResult struct {
	conn ws.Conn
	err  error
}

func (d *fakeDialer) Dial(ctx context.Context, url string, header http.Header) (ws.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.calls
	if idx >= len(d.results) {
		idx = len(d.results) - 1
	}
	d.calls++
	r := d.results[idx]
	return r.conn, r.err
}
