package ticker

// EventSinks is the client's event-sink capability: a set of optional
// callbacks. OnTicks, OnOrderUpdate, OnMessage, OnMalformedFrame, OnError
// and OnClose run on the goroutine running Client.Run, and each completes
// before the next frame is processed. OnConnectError runs on the caller of
// Connect; OnTryReconnect and OnReconnectFail run on the background
// reconnect goroutine; OnConnect runs on whichever of the two made the
// successful dial. Missing handlers are silently skipped.
type EventSinks struct {
	// OnConnect fires after a successful connect, once any pending
	// resubscription requests have been queued on the wire.
	OnConnect func(c *Client)

	// OnTicks fires once per inbound binary frame that split into at
	// least one packet, with every tick the frame's packets decoded to.
	// Heartbeats, empty frames and malformed frames do not fire it.
	OnTicks func(c *Client, ticks []Tick)

	// OnOrderUpdate fires for text frames of type "order".
	OnOrderUpdate func(c *Client, pb Postback)

	// OnMessage fires for text frames of type "message", with the raw
	// frame text.
	OnMessage func(c *Client, raw []byte)

	// OnError fires for non-clean disconnects (code is the close code)
	// and for text frames of type "error" (code is 0).
	OnError func(c *Client, code int, reason string)

	// OnConnectError fires when the initial dial (outside of the
	// reconnect loop) fails.
	OnConnectError func(c *Client, err error)

	// OnTryReconnect fires once per reconnect attempt, before the
	// attempt is made.
	OnTryReconnect func(c *Client, attempt uint32)

	// OnReconnectFail fires once the reconnect loop exhausts its
	// configured attempts.
	OnReconnectFail func(c *Client)

	// OnClose fires on every disconnect, clean or not, before any
	// reconnect attempt begins.
	OnClose func(c *Client, code int, reason string)

	// OnMalformedFrame fires when an inbound binary frame is dropped for
	// failing to split into packets. The frame is discarded either way;
	// this is purely an observability hook.
	OnMalformedFrame func(c *Client, err error)
}

// Chain returns an EventSinks whose callbacks invoke every sink in sinks
// that defines that callback, in order. It lets independent observers
// (e.g. metrics) sit alongside a host's own callbacks without either
// displacing the other.
func Chain(sinks ...EventSinks) EventSinks {
	var merged EventSinks

	merged.OnConnect = func(c *Client) {
		for _, s := range sinks {
			if s.OnConnect != nil {
				s.OnConnect(c)
			}
		}
	}
	merged.OnTicks = func(c *Client, ticks []Tick) {
		for _, s := range sinks {
			if s.OnTicks != nil {
				s.OnTicks(c, ticks)
			}
		}
	}
	merged.OnOrderUpdate = func(c *Client, pb Postback) {
		for _, s := range sinks {
			if s.OnOrderUpdate != nil {
				s.OnOrderUpdate(c, pb)
			}
		}
	}
	merged.OnMessage = func(c *Client, raw []byte) {
		for _, s := range sinks {
			if s.OnMessage != nil {
				s.OnMessage(c, raw)
			}
		}
	}
	merged.OnError = func(c *Client, code int, reason string) {
		for _, s := range sinks {
			if s.OnError != nil {
				s.OnError(c, code, reason)
			}
		}
	}
	merged.OnConnectError = func(c *Client, err error) {
		for _, s := range sinks {
			if s.OnConnectError != nil {
				s.OnConnectError(c, err)
			}
		}
	}
	merged.OnTryReconnect = func(c *Client, attempt uint32) {
		for _, s := range sinks {
			if s.OnTryReconnect != nil {
				s.OnTryReconnect(c, attempt)
			}
		}
	}
	merged.OnReconnectFail = func(c *Client) {
		for _, s := range sinks {
			if s.OnReconnectFail != nil {
				s.OnReconnectFail(c)
			}
		}
	}
	merged.OnClose = func(c *Client, code int, reason string) {
		for _, s := range sinks {
			if s.OnClose != nil {
				s.OnClose(c, code, reason)
			}
		}
	}
	merged.OnMalformedFrame = func(c *Client, err error) {
		for _, s := range sinks {
			if s.OnMalformedFrame != nil {
				s.OnMalformedFrame(c, err)
			}
		}
	}

	return merged
}
