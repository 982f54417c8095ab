package ticker

import (
	"encoding/json"
	"fmt"
)

type textFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// routeText parses an inbound text frame as a JSON object carrying a
// "type" field and dispatches it to the matching sink. A non-object root
// or a missing/empty type fails with ErrMalformedText; an unrecognized
// type fails with ErrUnknownMessageType. Missing sinks are silently
// skipped.
func routeText(raw []byte, sinks EventSinks, c *Client) error {
	var f textFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedText, err)
	}
	if f.Type == "" {
		return fmt.Errorf("%w: missing type field", ErrMalformedText)
	}

	switch f.Type {
	case "order":
		var pb Postback
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &pb); err != nil {
				return fmt.Errorf("%w: decoding order postback: %v", ErrMalformedText, err)
			}
		}
		if sinks.OnOrderUpdate != nil {
			sinks.OnOrderUpdate(c, pb)
		}

	case "message":
		if sinks.OnMessage != nil {
			sinks.OnMessage(c, raw)
		}

	case "error":
		var msg string
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return fmt.Errorf("%w: decoding error payload: %v", ErrMalformedText, err)
		}
		if sinks.OnError != nil {
			sinks.OnError(c, 0, msg)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, f.Type)
	}

	return nil
}
