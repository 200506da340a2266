package payload

import "strings"

// ImagePlaceholder replaces embedded image data when base64 images are excluded.
const ImagePlaceholder = "base64image placeholder"

const dataURLPrefix = "data:image/"

// imageKeys hold image data (or lists of it) in txt2img/img2img and ControlNet payloads.
var imageKeys = map[string]struct{}{
	"image":           {},
	"images":          {},
	"init_images":     {},
	"mask":            {},
	"mask_image":      {},
	"input_image":     {},
	"reference_image": {},
}

// IsImageKey reports whether key conventionally carries image data.
func IsImageKey(key string) bool {
	_, ok := imageKeys[strings.ToLower(key)]
	return ok
}

// IsImageData reports whether a string is an inline image (data URL) or the placeholder.
func IsImageData(s string) bool {
	return s == ImagePlaceholder || strings.HasPrefix(s, dataURLPrefix)
}

// StripImages returns a copy of p with every image-bearing field removed, at any depth.
// Two payloads that differ only in how their images were encoded strip to the same value.
func StripImages(p Payload) Payload {
	if p == nil {
		return nil
	}
	return stripValue(map[string]any(p.Clone())).(map[string]any)
}

// Sanitize returns a copy of p with inline image data replaced by ImagePlaceholder.
// Keys are kept so the saved document still shows where images were attached.
func Sanitize(p Payload) Payload {
	if p == nil {
		return nil
	}
	return sanitizeValue(map[string]any(p.Clone())).(map[string]any)
}

func stripValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if IsImageKey(k) {
				delete(val, k)
				continue
			}
			if s, ok := child.(string); ok && IsImageData(s) {
				delete(val, k)
				continue
			}
			val[k] = stripValue(child)
		}
		return val
	case []any:
		out := val[:0]
		for _, child := range val {
			if s, ok := child.(string); ok && IsImageData(s) {
				continue
			}
			out = append(out, stripValue(child))
		}
		return out
	default:
		return val
	}
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			val[k] = sanitizeValue(child)
		}
		return val
	case []any:
		for i, child := range val {
			val[i] = sanitizeValue(child)
		}
		return val
	case string:
		if strings.HasPrefix(val, dataURLPrefix) {
			return ImagePlaceholder
		}
		return val
	default:
		return val
	}
}
