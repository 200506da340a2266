package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"payloadkeeper/internal/capture"
	"payloadkeeper/internal/fileutil"
	"payloadkeeper/internal/logging"
)

// RejectedSuffix is appended to files that could not be decoded.
const RejectedSuffix = ".rejected"

// FailedSuffix is appended to files whose payload decoded but could not be saved.
const FailedSuffix = ".failed"

const (
	defaultSettle = 250 * time.Millisecond
	tickInterval  = 100 * time.Millisecond
)

// Recorder receives decoded events. It must be safe for concurrent use.
type Recorder interface {
	HandleGeneration(ctx context.Context, ev capture.Event) capture.Outcome
}

// Stats counts what the watcher has processed.
type Stats struct {
	Ingested int
	Rejected int
	Errors   int
}

// Watcher ingests event files dropped into a directory.
type Watcher struct {
	dir      string
	recorder Recorder
	logger   *slog.Logger
	settle   time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]time.Time
	stats   Stats
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithSettle sets how long a file must be quiet before it is read. Writers that
// create and fill a file in several steps trigger several events; the last one wins.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New prepares a watcher on dir, creating it if needed.
func New(dir string, recorder Recorder, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("inbox directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox directory: %w", err)
	}
	w := &Watcher{
		dir:      dir,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "inbox"),
		settle:   defaultSettle,
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start ingests files already waiting in the inbox, then watches for new ones
// in the background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	if _, err := w.Drain(ctx); err != nil {
		w.logger.Warn("initial inbox scan failed", logging.Error(err))
	}

	go w.run(ctx)
	w.logger.Info("watching inbox",
		logging.String(logging.FieldEventType, "inbox_watching"),
		logging.Path(w.dir))
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close inbox watcher", logging.Error(err))
	}
}

// Stats returns a snapshot of the processing counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Drain ingests every candidate file currently in the inbox, oldest name first,
// and returns how many were processed.
func (w *Watcher) Drain(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read inbox: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && candidate(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		w.ingest(ctx, filepath.Join(w.dir, name))
	}
	return len(names), nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			w.logger.Warn("inbox watcher error", logging.Error(err))
		case now := <-ticker.C:
			w.processSettled(ctx, now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !candidate(filepath.Base(event.Name)) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processSettled(ctx context.Context, now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		w.ingest(ctx, path)
	}
}

// ingest records one file and removes it. Files that do not decode, or whose
// payload could not be saved, are renamed aside instead.
func (w *Watcher) ingest(ctx context.Context, path string) {
	logger := w.logger.With(logging.Path(path))
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.count(func(s *Stats) { s.Errors++ })
			logger.Warn("failed to read inbox file", logging.Error(err))
		}
		return
	}

	ev, err := capture.DecodeEvent(data)
	if err != nil {
		w.count(func(s *Stats) { s.Rejected++ })
		logging.WarnWithContext(logger, "rejected inbox file", "inbox_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file must hold a payload object or a {payload, metadata} envelope"),
			logging.String(logging.FieldImpact, "file renamed with "+RejectedSuffix))
		if err := fileutil.RenameNoReplace(path, path+RejectedSuffix); err != nil {
			logger.Warn("failed to set rejected inbox file aside", logging.Error(err))
		}
		return
	}

	out := w.recorder.HandleGeneration(ctx, ev)
	if out.Err != nil && !out.Saved {
		w.count(func(s *Stats) { s.Errors++ })
		logging.WarnWithContext(logger, "inbox event was not saved", "inbox_save_failed",
			logging.String(logging.FieldSaveID, out.SaveID),
			logging.Error(out.Err),
			logging.String(logging.FieldErrorHint, "fix the payload tree, then rename the file back to .json"),
			logging.String(logging.FieldImpact, "file renamed with "+FailedSuffix))
		if err := fileutil.RenameNoReplace(path, path+FailedSuffix); err != nil {
			logger.Warn("failed to set unsaved inbox file aside", logging.Error(err))
		}
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		w.count(func(s *Stats) { s.Errors++ })
		logger.Warn("failed to remove ingested inbox file", logging.Error(err))
	}
	w.count(func(s *Stats) { s.Ingested++ })
	logger.Info("ingested inbox file",
		logging.String(logging.FieldEventType, "inbox_ingested"),
		logging.String(logging.FieldSaveID, out.SaveID),
		logging.Bool("saved", out.Saved),
		logging.Bool("skipped", out.Skipped))
}

func (w *Watcher) count(update func(*Stats)) {
	w.mu.Lock()
	update(&w.stats)
	w.mu.Unlock()
}

// candidate reports whether a file name looks like an event document to ingest.
func candidate(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, fileutil.TempSuffix) {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".json")
}
