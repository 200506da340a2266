package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"payloadkeeper/internal/payload"
)

// Fingerprint hashes the canonical JSON form of p. encoding/json writes object
// keys in sorted order, so key order in the source document never matters.
// When includeImages is false, image-bearing fields are stripped first so a
// re-encoded image does not defeat duplicate detection.
func Fingerprint(p payload.Payload, includeImages bool) (string, error) {
	if !includeImages {
		p = payload.StripImages(p)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("fingerprint payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
