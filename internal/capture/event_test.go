package capture_test

import (
	"encoding/json"
	"errors"
	"testing"

	"payloadkeeper/internal/capture"
	"payloadkeeper/internal/services"
)

func TestDecodeEventEnvelope(t *testing.T) {
	ev, err := capture.DecodeEvent([]byte(`{"payload":{"prompt":"cat","seed":12345678901},"metadata":{"hr_enabled":true,"controlnet used":true,"xyz-plot used":false}}`))
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	if ev.Payload.Prompt() != "cat" {
		t.Fatalf("unexpected payload: %v", ev.Payload)
	}
	if ev.Payload["seed"] != json.Number("12345678901") {
		t.Fatalf("expected exact seed, got %#v", ev.Payload["seed"])
	}
	if ev.Metadata.HREnabled == nil || !*ev.Metadata.HREnabled || !ev.Metadata.ControlNetUsed || ev.Metadata.XYZPlotUsed {
		t.Fatalf("unexpected metadata: %+v", ev.Metadata)
	}
}

func TestDecodeEventBarePayload(t *testing.T) {
	ev, err := capture.DecodeEvent([]byte(`{"prompt":"dog","enable_hr":false}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Payload.Prompt() != "dog" || ev.Metadata.HREnabled != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDecodeEventNullPayload(t *testing.T) {
	ev, err := capture.DecodeEvent([]byte(`{"payload":null,"metadata":{}}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Payload != nil {
		t.Fatalf("expected nil payload, got %v", ev.Payload)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	for _, input := range []string{`[]`, `{"payload":[1]}`, `nope`} {
		if _, err := capture.DecodeEvent([]byte(input)); !errors.Is(err, services.ErrMalformedPayload) {
			t.Fatalf("expected malformed error for %s, got %v", input, err)
		}
	}
}
