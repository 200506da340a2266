package capture

import (
	"context"
	"sync"

	"payloadkeeper/internal/payload"
)

// Synchronized serializes access to a Recorder for bridges that receive
// events concurrently. Every bridge in a process must share one instance.
type Synchronized struct {
	mu sync.Mutex
	r  *Recorder
}

// Synchronize wraps r.
func Synchronize(r *Recorder) *Synchronized {
	return &Synchronized{r: r}
}

// HandleGeneration forwards to the wrapped Recorder under the lock.
func (s *Synchronized) HandleGeneration(ctx context.Context, ev Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.HandleGeneration(ctx, ev)
}

// Current forwards to the wrapped Recorder under the lock.
func (s *Synchronized) Current() payload.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Current()
}
