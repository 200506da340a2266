package capture

import (
	"bytes"
	"encoding/json"
	"fmt"

	"payloadkeeper/internal/payload"
	"payloadkeeper/internal/services"
)

type wireEvent struct {
	Payload  json.RawMessage `json:"payload"`
	Metadata Metadata        `json:"metadata"`
}

// DecodeEvent parses an event document. Two shapes are accepted: an envelope
// {"payload": {...}, "metadata": {...}} and a bare payload object. A null or
// missing envelope payload yields an Event with a nil Payload.
func DecodeEvent(data []byte) (Event, error) {
	raw, err := payload.Decode(data)
	if err != nil {
		return Event{}, services.Wrap(services.ErrMalformedPayload, "capture", "decode event", "", err)
	}
	if _, ok := raw["payload"]; !ok {
		if _, hasMeta := raw["metadata"]; !hasMeta {
			return Event{Payload: raw}, nil
		}
	}

	var wire wireEvent
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return Event{}, services.Wrap(services.ErrMalformedPayload, "capture", "decode event", "", err)
	}
	ev := Event{Metadata: wire.Metadata}
	trimmed := bytes.TrimSpace(wire.Payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ev, nil
	}
	p, err := payload.Decode(trimmed)
	if err != nil {
		return Event{}, services.Wrap(services.ErrMalformedPayload, "capture", "decode event", fmt.Sprintf("payload field: %v", err), nil)
	}
	ev.Payload = p
	return ev, nil
}
