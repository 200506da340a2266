package testsupport

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"payloadkeeper/internal/payload"
)

// WritePayload encodes p into path, creating parent directories.
func WritePayload(t testing.TB, path string, p payload.Payload) {
	t.Helper()

	data, err := payload.Encode(p)
	if err != nil {
		t.Fatalf("encode payload for %s: %v", path, err)
	}
	WriteFile(t, path, string(data))
}

// WriteFile writes raw content into path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SetModTime stamps path with the given modification time.
func SetModTime(t testing.TB, path string, ts time.Time) {
	t.Helper()

	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// ReadPayload decodes the payload stored at path.
func ReadPayload(t testing.TB, path string) payload.Payload {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	p, err := payload.Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return p
}

// ListNames returns the sorted names of regular files directly in dir.
func ListNames(t testing.TB, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
