package layout

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"payloadkeeper/internal/classify"
	"payloadkeeper/internal/fileutil"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/naming"
	"payloadkeeper/internal/services"
)

// Move is one rename or move performed (or refused) by Reorganize.
type Move struct {
	From string
	To   string
}

// Issue is a file Reorganize could not handle.
type Issue struct {
	Path string
	Err  error
}

// Report summarizes one Reorganize pass.
type Report struct {
	// Moved lists files relocated into the drafts directory.
	Moved []Move
	// Renamed lists files renamed in place in the root.
	Renamed []Move
	// Skipped lists unreadable or malformed payload files.
	Skipped []Issue
	// Conflicts lists operations refused because the destination already existed.
	Conflicts []Move
	// Errors lists I/O failures on individual files.
	Errors    []Issue
	Unchanged int
}

// Operations returns the number of file operations the pass performed.
func (r Report) Operations() int {
	return len(r.Moved) + len(r.Renamed)
}

// Clean reports whether the pass hit no skips, conflicts or errors.
func (r Report) Clean() bool {
	return len(r.Skipped) == 0 && len(r.Conflicts) == 0 && len(r.Errors) == 0
}

// Plan is the canonical placement of one payload file.
type Plan struct {
	Source      string
	Destination string
	Tags        classify.Tags
	Draft       bool
	Time        time.Time
}

// Reorganize visits every payload file directly in the root (not drafts) and
// applies the current rules: drafts move into the drafts directory and every
// other file takes its canonical name. Destinations that already exist are
// refused and reported as conflicts. Per-file failures never abort the pass;
// the returned error is only for an unreadable root or a cancelled context.
// A second pass over an unchanged tree performs no operations.
func (s *Store) Reorganize(ctx context.Context) (Report, error) {
	return s.reorganize(ctx, true)
}

// Preview computes the report Reorganize would produce without touching any file.
func (s *Store) Preview(ctx context.Context) (Report, error) {
	return s.reorganize(ctx, false)
}

func (s *Store) reorganize(ctx context.Context, apply bool) (Report, error) {
	ctx = services.WithStage(ctx, "reorganize")
	logger := logging.WithContext(ctx, s.logger)

	var report Report
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return report, services.Wrap(services.ErrIO, "reorganize", "read dir", s.root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !isPayloadFile(entry) {
			continue
		}
		source := filepath.Join(s.root, entry.Name())

		plan, err := s.plan(source, entry)
		if err != nil {
			if errors.Is(err, services.ErrMalformedPayload) {
				report.Skipped = append(report.Skipped, Issue{Path: source, Err: err})
				logging.WarnWithContext(logger, "skipping malformed payload file", "payload_malformed",
					logging.Path(source),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "fix or remove the file; it is left in place"),
					logging.String(logging.FieldImpact, "file is not reorganized"))
			} else {
				report.Errors = append(report.Errors, Issue{Path: source, Err: err})
				logging.WarnWithContext(logger, "failed to inspect payload file", "payload_read_failed",
					logging.Path(source),
					logging.Error(err),
					logging.String(logging.FieldImpact, "file is not reorganized"))
			}
			continue
		}

		if plan.Destination == source {
			report.Unchanged++
			continue
		}

		move := Move{From: source, To: plan.Destination}
		if !apply {
			s.previewMove(&report, plan, move)
			continue
		}
		if err := fileutil.RenameNoReplace(source, plan.Destination); err != nil {
			if errors.Is(err, fs.ErrExist) {
				report.Conflicts = append(report.Conflicts, move)
				logging.WarnWithContext(logger, "refusing to overwrite existing payload", "payload_conflict",
					logging.Path(source),
					logging.String("destination", plan.Destination),
					logging.String(logging.FieldErrorHint, "compare both files and remove the one you do not need"),
					logging.String(logging.FieldImpact, "source file left untouched"))
				continue
			}
			report.Errors = append(report.Errors, Issue{Path: source, Err: services.Wrap(services.ErrIO, "reorganize", "rename", source, err)})
			logging.WarnWithContext(logger, "failed to rename payload file", "payload_rename_failed",
				logging.Path(source),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file keeps its current name"))
			continue
		}

		if plan.Draft {
			report.Moved = append(report.Moved, move)
			logger.Info("moved draft payload",
				logging.String(logging.FieldEventType, "payload_moved"),
				logging.Path(plan.Destination),
				logging.String("from", source))
		} else {
			report.Renamed = append(report.Renamed, move)
			logger.Info("renamed payload",
				logging.String(logging.FieldEventType, "payload_renamed"),
				logging.Path(plan.Destination),
				logging.String("from", source))
		}
	}

	logger.Info("reorganize complete",
		logging.String(logging.FieldEventType, "reorganize_complete"),
		logging.Bool("dry_run", !apply),
		logging.Int("moved", len(report.Moved)),
		logging.Int("renamed", len(report.Renamed)),
		logging.Int("unchanged", report.Unchanged),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("conflicts", len(report.Conflicts)),
		logging.Int("errors", len(report.Errors)),
	)
	return report, nil
}

func (s *Store) previewMove(report *Report, plan Plan, move Move) {
	exists, err := fileutil.Exists(plan.Destination)
	switch {
	case err != nil:
		report.Errors = append(report.Errors, Issue{Path: move.From, Err: services.Wrap(services.ErrIO, "reorganize", "stat", plan.Destination, err)})
	case exists:
		report.Conflicts = append(report.Conflicts, move)
	case plan.Draft:
		report.Moved = append(report.Moved, move)
	default:
		report.Renamed = append(report.Renamed, move)
	}
}

// plan reads one root file and computes where it belongs. The timestamp comes
// from the existing name and falls back to the modification time; a collision
// serial in the name is kept.
func (s *Store) plan(source string, entry os.DirEntry) (Plan, error) {
	p, err := s.Read(source)
	if err != nil {
		return Plan{}, err
	}
	ts, serial, err := fileTime(entry)
	if err != nil {
		return Plan{}, services.Wrap(services.ErrIO, "reorganize", "stat", source, err)
	}

	tags := classify.Classify(p)
	draft := p.IsDraft()
	dir := s.root
	if draft {
		dir = s.drafts
	}
	return Plan{
		Source:      source,
		Destination: filepath.Join(dir, naming.NameWithSerial(ts, tags, serial)),
		Tags:        tags,
		Draft:       draft,
		Time:        ts,
	}, nil
}

// fileTime resolves a file's creation timestamp and serial.
func fileTime(entry os.DirEntry) (time.Time, int, error) {
	if parsed, ok := naming.Parse(entry.Name()); ok {
		serial := 0
		if parsed.Canonical {
			serial = parsed.Serial
		}
		return parsed.Time, serial, nil
	}
	info, err := entry.Info()
	if err != nil {
		return time.Time{}, 0, err
	}
	return info.ModTime(), 0, nil
}
