package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/metrics"
	"payloadkeeper/internal/services"
)

// Options controls one reconciliation run.
type Options struct {
	// Deduplicate enables the prompt-level dedup pass.
	Deduplicate bool
	// DryRun reports every planned operation without changing the tree.
	DryRun  bool
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Remove deletes one duplicate. Nil means store.Delete.
	Remove func(path string) error
}

// Deletion is one file removed (or, in a dry run, marked for removal) by the dedup pass.
type Deletion struct {
	Path string
	// Kept is the newest file of the same prompt pair.
	Kept string
}

// Result is the outcome of Run.
type Result struct {
	Reorganize layout.Report
	Deletions  []Deletion
	// Errors are dedup-pass failures; reorganize failures live in Reorganize.
	Errors []layout.Issue
	// Groups is the number of prompt pairs that had duplicates.
	Groups int
	DryRun bool
}

type candidate struct {
	file layout.File
}

// Run reorganizes the tree and, when enabled, deduplicates the remaining
// non-draft payloads by prompt pair. Only an unreadable tree or a cancelled
// context returns an error; individual file failures are collected.
func Run(ctx context.Context, store *layout.Store, opts Options) (Result, error) {
	logger := logging.NewComponentLogger(opts.Logger, "reconcile")
	result := Result{DryRun: opts.DryRun}

	var (
		report layout.Report
		err    error
	)
	if opts.DryRun {
		report, err = store.Preview(ctx)
	} else {
		report, err = store.Reorganize(ctx)
	}
	result.Reorganize = report
	if err != nil {
		return result, err
	}
	if !opts.DryRun {
		opts.Metrics.ObserveReconcile(metrics.OpMoved, len(report.Moved))
		opts.Metrics.ObserveReconcile(metrics.OpRenamed, len(report.Renamed))
		opts.Metrics.ObserveReconcile(metrics.OpSkipped, len(report.Skipped))
		opts.Metrics.ObserveReconcile(metrics.OpConflict, len(report.Conflicts))
		opts.Metrics.ObserveReconcile(metrics.OpError, len(report.Errors))
	}

	if !opts.Deduplicate {
		return result, nil
	}

	remove := opts.Remove
	if remove == nil {
		remove = store.Delete
	}

	dedupCtx := services.WithStage(ctx, "dedupe")
	dlogger := logging.WithContext(dedupCtx, logger)
	groups, issues, err := groupByPrompt(dedupCtx, store)
	result.Errors = append(result.Errors, issues...)
	if err != nil {
		return result, err
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		result.Groups++
		keep := newest(members)
		for _, member := range members {
			if member.file.Path == keep.file.Path {
				continue
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}
			deletion := Deletion{Path: member.file.Path, Kept: keep.file.Path}
			if opts.DryRun {
				result.Deletions = append(result.Deletions, deletion)
				dlogger.Info("would delete duplicate payload",
					logging.String(logging.FieldEventType, "payload_duplicate_planned"),
					logging.Path(member.file.Path),
					logging.String("kept", keep.file.Path))
				continue
			}
			if err := remove(member.file.Path); err != nil {
				result.Errors = append(result.Errors, layout.Issue{Path: member.file.Path, Err: err})
				logging.WarnWithContext(dlogger, "failed to delete duplicate payload", "payload_delete_failed",
					logging.Path(member.file.Path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "duplicate stays on disk"))
				continue
			}
			result.Deletions = append(result.Deletions, deletion)
			dlogger.Info("deleted duplicate payload",
				logging.String(logging.FieldEventType, "payload_duplicate_deleted"),
				logging.Path(member.file.Path),
				logging.String("kept", keep.file.Path))
		}
	}

	if !opts.DryRun {
		opts.Metrics.ObserveReconcile(metrics.OpDeleted, len(result.Deletions))
	}
	dlogger.Info("prompt dedup complete",
		logging.String(logging.FieldEventType, "dedupe_complete"),
		logging.Int("groups", result.Groups),
		logging.Int("deleted", len(result.Deletions)),
		logging.Int("errors", len(result.Errors)),
		logging.Bool("dry_run", opts.DryRun))
	return result, nil
}

// groupByPrompt reads every non-draft root payload and buckets it by prompt pair.
// Files that cannot be read, or that are drafts by content (a dry run leaves
// them in the root), are left out.
func groupByPrompt(ctx context.Context, store *layout.Store) (map[string][]candidate, []layout.Issue, error) {
	files, err := store.List(ctx, layout.ScopeRoot)
	if err != nil {
		return nil, nil, err
	}
	groups := make(map[string][]candidate)
	var issues []layout.Issue
	for _, file := range files {
		p, err := store.Read(file.Path)
		if err != nil {
			if !errors.Is(err, services.ErrMalformedPayload) {
				issues = append(issues, layout.Issue{Path: file.Path, Err: err})
			}
			continue
		}
		if p.IsDraft() {
			continue
		}
		key := PromptKey(p.Prompt(), p.NegativePrompt())
		groups[key] = append(groups[key], candidate{file: file})
	}
	return groups, issues, nil
}

// PromptKey is the grouping key for a prompt pair: both halves trimmed and NFC-normalized.
func PromptKey(prompt, negative string) string {
	return normalize(prompt) + "\x00" + normalize(negative)
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// newest picks the member with the latest timestamp; equal timestamps fall back
// to the greater file name so a higher collision serial wins.
func newest(members []candidate) candidate {
	best := members[0]
	for _, m := range members[1:] {
		switch {
		case m.file.Time.After(best.file.Time):
			best = m
		case m.file.Time.Equal(best.file.Time) && m.file.Name > best.file.Name:
			best = m
		}
	}
	return best
}
