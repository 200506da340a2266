package payload_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"payloadkeeper/internal/payload"
)

func TestDecodeKeepsIntegerSeed(t *testing.T) {
	p, err := payload.Decode([]byte(`{"prompt":"cat","seed":4294967297,"enable_hr":true}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	seed, ok := p.Seed()
	if !ok || seed != 4294967297 {
		t.Fatalf("unexpected seed: %d ok=%v", seed, ok)
	}
	if p.Prompt() != "cat" {
		t.Fatalf("unexpected prompt: %q", p.Prompt())
	}
	if !p.EnableHR() || p.IsDraft() {
		t.Fatal("expected high-res payload")
	}
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, input := range []string{`null`, `[1,2]`, `"text"`, `{"a":1} {"b":2}`, `{`} {
		if _, err := payload.Decode([]byte(input)); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestAccessorsTolerateMissingFields(t *testing.T) {
	p := payload.Payload{"prompt": 12, "enable_hr": "yes"}
	if p.Prompt() != "" {
		t.Fatalf("expected empty prompt for non-string, got %q", p.Prompt())
	}
	if p.NegativePrompt() != "" {
		t.Fatal("expected empty negative prompt")
	}
	if _, ok := p.Seed(); ok {
		t.Fatal("expected missing seed")
	}
	if p.HasEnableHR() || p.EnableHR() || !p.IsDraft() {
		t.Fatal("mistyped enable_hr must read as a draft")
	}
}

func TestSeedRejectsFractions(t *testing.T) {
	if _, ok := (payload.Payload{"seed": 1.5}).Seed(); ok {
		t.Fatal("expected fractional seed to be rejected")
	}
	if seed, ok := (payload.Payload{"seed": float64(7)}).Seed(); !ok || seed != 7 {
		t.Fatalf("unexpected float seed: %d %v", seed, ok)
	}
}

func TestSkeletonClearsPromptAndSeedOnCopy(t *testing.T) {
	original := payload.Payload{
		"prompt":    "cat",
		"seed":      json.Number("42"),
		"steps":     json.Number("20"),
		"enable_hr": true,
		"alwayson_scripts": map[string]any{
			"controlnet": map[string]any{"args": []any{map[string]any{"enabled": true}}},
		},
	}
	skeleton := original.Skeleton()

	want := payload.Payload{
		"prompt":    "",
		"seed":      -1,
		"steps":     json.Number("20"),
		"enable_hr": true,
		"alwayson_scripts": map[string]any{
			"controlnet": map[string]any{"args": []any{map[string]any{"enabled": true}}},
		},
	}
	if diff := cmp.Diff(want, skeleton); diff != "" {
		t.Fatalf("skeleton mismatch (-want +got):\n%s", diff)
	}
	if original.Prompt() != "cat" {
		t.Fatal("skeleton must not mutate the source payload")
	}

	skeleton["alwayson_scripts"].(map[string]any)["controlnet"] = nil
	if original["alwayson_scripts"].(map[string]any)["controlnet"] == nil {
		t.Fatal("skeleton must be a deep copy")
	}
}

func TestEncodeSortsKeys(t *testing.T) {
	data, err := payload.Encode(payload.Payload{"seed": 1, "enable_hr": true, "prompt": "a"})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	text := string(data)
	if !(strings.Index(text, "enable_hr") < strings.Index(text, "prompt") && strings.Index(text, "prompt") < strings.Index(text, "seed")) {
		t.Fatalf("expected sorted keys, got %s", text)
	}
	if !strings.HasSuffix(text, "}\n") {
		t.Fatalf("expected trailing newline, got %q", text)
	}
}

func TestFormat(t *testing.T) {
	if got := payload.Format(nil); got != payload.NoPayloadMessage {
		t.Fatalf("expected %q, got %q", payload.NoPayloadMessage, got)
	}
	if got := payload.Format(payload.Payload{"b": 1, "a": "x"}); got != `{"a":"x","b":1}` {
		t.Fatalf("unexpected format: %s", got)
	}
}

func TestStripImagesRemovesImageFieldsAtAnyDepth(t *testing.T) {
	p := payload.Payload{
		"prompt":      "cat",
		"init_images": []any{"data:image/png;base64,AAAA"},
		"alwayson_scripts": map[string]any{
			"controlnet": map[string]any{"args": []any{
				map[string]any{"enabled": true, "image": "data:image/png;base64,BBBB", "weight": 1.0},
			}},
		},
		"extra": []any{"keep", "data:image/jpeg;base64,CCCC"},
	}
	got := payload.StripImages(p)
	want := payload.Payload{
		"prompt": "cat",
		"alwayson_scripts": map[string]any{
			"controlnet": map[string]any{"args": []any{
				map[string]any{"enabled": true, "weight": 1.0},
			}},
		},
		"extra": []any{"keep"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("StripImages mismatch (-want +got):\n%s", diff)
	}
	if _, ok := p["init_images"]; !ok {
		t.Fatal("StripImages must not mutate its input")
	}
}

func TestSanitizeReplacesDataURLs(t *testing.T) {
	p := payload.Payload{
		"prompt":      "data:image is not a prefix match",
		"init_images": []any{"data:image/png;base64,AAAA"},
	}
	got := payload.Sanitize(p)
	want := payload.Payload{
		"prompt":      "data:image is not a prefix match",
		"init_images": []any{payload.ImagePlaceholder},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Sanitize mismatch (-want +got):\n%s", diff)
	}
	if p["init_images"].([]any)[0] == payload.ImagePlaceholder {
		t.Fatal("Sanitize must not mutate its input")
	}
}
