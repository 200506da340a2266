package dedup

import (
	"time"

	"payloadkeeper/internal/payload"
)

// DefaultWindow is the suppression window used when none is configured.
const DefaultWindow = 2 * time.Second

// Decision is the guard's answer for one payload.
type Decision int

const (
	// Save means the payload should be persisted; the guard has recorded it.
	Save Decision = iota
	// Skip means an identical payload was recorded inside the window.
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "save"
}

// Guard tracks recently saved fingerprints. It is not safe for concurrent use;
// callers serialize access.
type Guard struct {
	window        time.Duration
	includeImages bool
	seen          map[string]time.Time
}

// Option customizes a Guard.
type Option func(*Guard)

// WithImages makes fingerprints cover embedded image data.
func WithImages(include bool) Option {
	return func(g *Guard) {
		g.includeImages = include
	}
}

// New returns a Guard with the given window. A non-positive window uses DefaultWindow.
func New(window time.Duration, opts ...Option) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	g := &Guard{window: window, seen: make(map[string]time.Time)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Window returns the suppression window.
func (g *Guard) Window() time.Duration { return g.window }

// ShouldSave reports whether p should be saved at now. A Skip leaves the stored
// timestamp untouched, so a stream of duplicates cannot extend the window
// forever. Entries that have aged out are evicted on every call.
func (g *Guard) ShouldSave(p payload.Payload, now time.Time) (Decision, error) {
	fp, err := Fingerprint(p, g.includeImages)
	if err != nil {
		return Save, err
	}
	g.evict(now)
	if last, ok := g.seen[fp]; ok && now.Sub(last) < g.window {
		return Skip, nil
	}
	g.seen[fp] = now
	return Save, nil
}

// Reset forgets every recorded fingerprint.
func (g *Guard) Reset() {
	clear(g.seen)
}

// Len returns the number of fingerprints currently tracked.
func (g *Guard) Len() int { return len(g.seen) }

func (g *Guard) evict(now time.Time) {
	for fp, last := range g.seen {
		if now.Sub(last) >= g.window {
			delete(g.seen, fp)
		}
	}
}
