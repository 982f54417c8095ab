package ticker

import (
	"errors"
	"testing"
)

func TestRouteTextOrder(t *testing.T) {
	var got *Postback
	sinks := EventSinks{OnOrderUpdate: func(c *Client, pb Postback) { got = &pb }}

	raw := []byte(`{"type":"order","data":{"order_id":"abc123","status":"COMPLETE"}}`)
	if err := routeText(raw, sinks, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.OrderID != "abc123" || got.Status != "COMPLETE" {
		t.Fatalf("unexpected postback: %+v", got)
	}
}

func TestRouteTextMessage(t *testing.T) {
	var got []byte
	sinks := EventSinks{OnMessage: func(c *Client, raw []byte) { got = raw }}

	raw := []byte(`{"type":"message","data":"hello"}`)
	if err := routeText(raw, sinks, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("expected raw message passthrough, got %q", got)
	}
}

func TestRouteTextError(t *testing.T) {
	var gotCode int
	var gotMsg string
	sinks := EventSinks{OnError: func(c *Client, code int, msg string) {
		gotCode, gotMsg = code, msg
	}}

	raw := []byte(`{"type":"error","data":"something broke"}`)
	if err := routeText(raw, sinks, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCode != 0 || gotMsg != "something broke" {
		t.Fatalf("expected code=0 msg=%q, got code=%d msg=%q", "something broke", gotCode, gotMsg)
	}
}

func TestRouteTextUnknownType(t *testing.T) {
	raw := []byte(`{"type":"ping"}`)
	err := routeText(raw, EventSinks{}, nil)
	if !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestRouteTextMissingType(t *testing.T) {
	raw := []byte(`{"data":"x"}`)
	err := routeText(raw, EventSinks{}, nil)
	if !errors.Is(err, ErrMalformedText) {
		t.Fatalf("expected ErrMalformedText, got %v", err)
	}
}

func TestRouteTextNonObjectRoot(t *testing.T) {
	raw := []byte(`[1,2,3]`)
	err := routeText(raw, EventSinks{}, nil)
	if !errors.Is(err, ErrMalformedText) {
		t.Fatalf("expected ErrMalformedText, got %v", err)
	}
}

func TestRouteTextMissingHandlerIsSilentlySkipped(t *testing.T) {
	raw := []byte(`{"type":"order","data":{"order_id":"abc"}}`)
	if err := routeText(raw, EventSinks{}, nil); err != nil {
		t.Fatalf("unexpected error with no handlers registered: %v", err)
	}
}
