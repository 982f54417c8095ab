// Package ws adapts gorilla/websocket into the narrow transport surface
// the ticker client needs: dial, read, write, close, and close-code
// classification. Framing, TLS and pong handling stay inside
// gorilla/websocket; this package shapes its interface for testing and for
// ticker.Client's state machine, and adds the periodic keep-alive ping
// (StartAutoPing).
package ws

import (
	"context"
	"encoding/binary"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
	CloseMessage  = websocket.CloseMessage
	PingMessage   = websocket.PingMessage
	PongMessage   = websocket.PongMessage
)

// Conn is the minimal surface ticker.Client needs from a live socket.
// *websocket.Conn satisfies it without any wrapping.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetPongHandler(h func(appData string) error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens a new Conn to url, sending header as the upgrade request's
// headers. ctx bounds the handshake.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// GorillaDialer dials with github.com/gorilla/websocket, the transport
// library this client was built against.
type GorillaDialer struct {
	HandshakeTimeout time.Duration
}

// NewGorillaDialer returns a Dialer bounding the handshake to timeout.
func NewGorillaDialer(timeout time.Duration) *GorillaDialer {
	return &GorillaDialer{HandshakeTimeout: timeout}
}

func (d *GorillaDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// CloseCode extracts the close code and reason carried by err. ok is
// false when err isn't a websocket close frame (e.g. a bare network read
// error), in which case callers should treat the disconnect as abnormal.
func CloseCode(err error) (code int, reason string, ok bool) {
	if ce, isClose := err.(*websocket.CloseError); isClose {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// CloseFrame builds a close-frame payload per RFC 6455: a big-endian
// uint16 status code followed by the UTF-8 reason text.
func CloseFrame(code int, text string) []byte {
	buf := make([]byte, 2+len(text))
	binary.BigEndian.PutUint16(buf, uint16(code))
	copy(buf[2:], text)
	return buf
}

// StartAutoPing sends an empty-payload ping on conn every interval until
// done is closed. It models the automatic keep-alive the transport layer
// owns per the connection controller's heartbeat design.
func StartAutoPing(conn Conn, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(PingMessage, nil); err != nil {
				return
			}
		}
	}
}
