package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"payloadkeeper/internal/classify"
	"payloadkeeper/internal/config"
	"payloadkeeper/internal/dedup"
	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/metrics"
	"payloadkeeper/internal/payload"
	"payloadkeeper/internal/services"
)

// Clock supplies save timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Metadata carries the flags the host attaches to a completed generation.
type Metadata struct {
	// HREnabled fills enable_hr when the payload does not carry it.
	HREnabled      *bool `json:"hr_enabled,omitempty"`
	ControlNetUsed bool  `json:"controlnet used"`
	XYZPlotUsed    bool  `json:"xyz-plot used"`
}

// Event is one generation-completion callback.
type Event struct {
	Payload  payload.Payload `json:"payload"`
	Metadata Metadata        `json:"metadata"`
}

// Outcome reports what HandleGeneration did. Payload is always the value to
// display, even when persistence failed.
type Outcome struct {
	SaveID  string
	Payload payload.Payload
	Saved   bool
	Skipped bool
	Result  layout.SaveResult
	// Err records a persistence failure for callers that want to surface it.
	Err error
}

// Options configures a Recorder.
type Options struct {
	IncludeImages bool
	Window        time.Duration
	Clock         Clock
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// OptionsFromConfig maps configuration onto recorder options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IncludeImages: cfg.Display.IncludeBase64Images,
		Window:        cfg.DedupWindow(),
	}
}

// Recorder owns the dedup state for one process. It is not safe for concurrent
// use; bridges serialize calls.
type Recorder struct {
	store         *layout.Store
	guard         *dedup.Guard
	includeImages bool
	clock         Clock
	logger        *slog.Logger
	metrics       *metrics.Metrics
	current       payload.Payload
}

// NewRecorder builds a Recorder saving into store.
func NewRecorder(store *layout.Store, opts Options) *Recorder {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Recorder{
		store:         store,
		guard:         dedup.New(opts.Window, dedup.WithImages(opts.IncludeImages)),
		includeImages: opts.IncludeImages,
		clock:         clock,
		logger:        logging.NewComponentLogger(opts.Logger, "capture"),
		metrics:       opts.Metrics,
	}
}

// HandleGeneration processes one generation event.
func (r *Recorder) HandleGeneration(ctx context.Context, ev Event) Outcome {
	saveID := uuid.NewString()
	ctx = services.WithSaveID(ctx, saveID)
	logger := logging.WithContext(ctx, r.logger)
	out := Outcome{SaveID: saveID}

	if ev.Payload == nil {
		logger.Debug("generation event without payload", logging.String(logging.FieldEventType, "payload_missing"))
		return out
	}

	p := r.prepare(ev)
	out.Payload = p
	r.current = p
	r.checkMetadata(logger, p, ev.Metadata)

	now := r.clock.Now()
	decision, err := r.guard.ShouldSave(p, now)
	if err != nil {
		out.Err = services.Wrap(services.ErrMalformedPayload, "capture", "fingerprint", "", err)
		r.metrics.ObserveFailure(out.Err)
		logging.ErrorWithContext(logger, "payload could not be fingerprinted", "payload_fingerprint_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "payload holds values that cannot be encoded as JSON"))
		return out
	}
	if decision == dedup.Skip {
		out.Skipped = true
		r.metrics.ObserveSkip()
		logger.Info("duplicate generation suppressed",
			logging.String(logging.FieldEventType, "payload_duplicate_skipped"),
			logging.Duration("window", r.guard.Window()))
		return out
	}

	result, err := r.store.Save(ctx, p, now)
	out.Result = result
	out.Saved = result.Path != ""
	if out.Saved {
		r.metrics.ObserveSave(result.Draft, now)
	}
	if err != nil {
		out.Err = err
		r.metrics.ObserveFailure(err)
		logging.ErrorWithContext(logger, "payload persistence failed", "payload_save_failed",
			logging.Error(err),
			logging.Bool("payload_written", out.Saved),
			logging.String(logging.FieldErrorHint, "check that the payload directory is writable"))
	}
	return out
}

// Current returns the most recent payload handed to the recorder, or nil.
func (r *Recorder) Current() payload.Payload {
	return r.current
}

// Reset forgets the dedup state and the current payload.
func (r *Recorder) Reset() {
	r.guard.Reset()
	r.current = nil
}

// prepare copies the event payload and applies metadata and image settings.
func (r *Recorder) prepare(ev Event) payload.Payload {
	p := ev.Payload.Clone()
	if _, present := p[payload.KeyEnableHR]; !present && ev.Metadata.HREnabled != nil {
		p[payload.KeyEnableHR] = *ev.Metadata.HREnabled
	}
	if !r.includeImages {
		p = payload.Sanitize(p)
	}
	return p
}

// checkMetadata logs when host flags disagree with the payload content. Content wins.
func (r *Recorder) checkMetadata(logger *slog.Logger, p payload.Payload, md Metadata) {
	tags := classify.Classify(p)
	if tags.ControlNet == md.ControlNetUsed && tags.XYZ == md.XYZPlotUsed {
		return
	}
	logger.Debug("host metadata disagrees with payload content",
		logging.String(logging.FieldEventType, "payload_metadata_mismatch"),
		logging.String("tags", tags.String()),
		logging.Bool("controlnet_used", md.ControlNetUsed),
		logging.Bool("xyz_plot_used", md.XYZPlotUsed))
}
