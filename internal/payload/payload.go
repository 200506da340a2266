package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Common payload keys.
const (
	KeyPrompt          = "prompt"
	KeyNegativePrompt  = "negative_prompt"
	KeySeed            = "seed"
	KeyEnableHR        = "enable_hr"
	KeyScriptName      = "script_name"
	KeyAlwaysOnScripts = "alwayson_scripts"
)

// NoPayloadMessage is what Format renders when nothing has been captured yet.
const NoPayloadMessage = "No Payload Found"

// Payload is one generation request as the host describes it: a JSON object with
// arbitrary nested values. Saved payloads are never mutated in place; derived
// forms are built from a Clone.
type Payload map[string]any

// Decode parses a JSON object into a Payload. Numbers are kept as json.Number so
// seeds and other integers survive a round trip without float rounding.
func Decode(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("decode payload: not a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("decode payload: trailing data after object")
	}
	return p, nil
}

// Encode renders the payload as indented JSON with sorted keys, the on-disk format.
func Encode(p Payload) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return append(data, '\n'), nil
}

// Format renders the payload for display as compact JSON with sorted keys.
func Format(p Payload) string {
	if p == nil {
		return NoPayloadMessage
	}
	data, err := json.Marshal(p)
	if err != nil {
		return NoPayloadMessage
	}
	return string(data)
}

// String returns the string stored under key, or "" when absent or not a string.
func (p Payload) String(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Prompt returns the positive prompt.
func (p Payload) Prompt() string { return p.String(KeyPrompt) }

// NegativePrompt returns the negative prompt.
func (p Payload) NegativePrompt() string { return p.String(KeyNegativePrompt) }

// Seed returns the seed and whether it was present as an integer.
func (p Payload) Seed() (int64, bool) {
	switch v := p[KeySeed].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// HasEnableHR reports whether the payload carries an enable_hr flag at all.
func (p Payload) HasEnableHR() bool {
	_, ok := p[KeyEnableHR].(bool)
	return ok
}

// EnableHR reports whether high-res fix was on. Absent or mistyped reads as false.
func (p Payload) EnableHR() bool {
	v, _ := p[KeyEnableHR].(bool)
	return v
}

// IsDraft reports whether the payload belongs in drafts: high-res fix off or absent.
func (p Payload) IsDraft() bool {
	return !p.EnableHR()
}

// Clone returns a deep copy.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return cloneValue(map[string]any(p)).(map[string]any)
}

// Skeleton returns a template derived from p: prompt cleared and seed reset to -1.
func (p Payload) Skeleton() Payload {
	out := p.Clone()
	if out == nil {
		out = Payload{}
	}
	out[KeyPrompt] = ""
	out[KeySeed] = -1
	return out
}

// Object asserts a decoded JSON value to an object.
func Object(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Payload:
		return m, true
	default:
		return nil, false
	}
}

// Truthy reports whether a JSON value is a boolean true.
func Truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = cloneValue(child)
		}
		return out
	case Payload:
		return cloneValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return val
	}
}
