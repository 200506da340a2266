package services

import "context"

type contextKey string

const (
	saveIDKey contextKey = "save_id"
	stageKey  contextKey = "stage"
)

// WithSaveID annotates context with the correlation identifier of one generation event.
func WithSaveID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, saveIDKey, id)
}

// SaveIDFromContext extracts the generation event identifier if present.
func SaveIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(saveIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the lifecycle stage name (save, reorganize, dedupe).
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
