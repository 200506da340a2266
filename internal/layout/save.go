package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"payloadkeeper/internal/classify"
	"payloadkeeper/internal/config"
	"payloadkeeper/internal/fileutil"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/naming"
	"payloadkeeper/internal/payload"
	"payloadkeeper/internal/services"
)

// SaveResult describes what one Save changed on disk.
type SaveResult struct {
	Path  string
	Tags  classify.Tags
	Draft bool
	// Replaced is set when the overwrite policy replaced an existing file of the same name.
	Replaced      bool
	LatestUpdated bool
	// SkeletonPath is set when this save created the skeleton for its mode.
	SkeletonPath string
}

// Save writes p into the tree as created at the given time. Drafts go to the
// drafts directory; other payloads go to the root and replace
// payload_latest.json. The first payload of each mode also seeds that mode's
// skeleton. When the payload file was written but a snapshot update failed,
// the result is still populated and the error describes the snapshot failure.
func (s *Store) Save(ctx context.Context, p payload.Payload, at time.Time) (SaveResult, error) {
	if p == nil {
		return SaveResult{}, services.Wrap(services.ErrValidation, "save", "payload", "payload is nil", nil)
	}
	ctx = services.WithStage(ctx, "save")
	logger := logging.WithContext(ctx, s.logger)

	tags := classify.Classify(p)
	result := SaveResult{Tags: tags, Draft: p.IsDraft()}

	data, err := payload.Encode(p)
	if err != nil {
		return result, services.Wrap(services.ErrMalformedPayload, "save", "encode", "", err)
	}

	dir := s.root
	if result.Draft {
		dir = s.drafts
	}
	path, replaced, err := s.writePayload(dir, at, tags, data)
	if err != nil {
		return result, err
	}
	result.Path = path
	result.Replaced = replaced
	if replaced {
		logging.WarnWithContext(logger, "payload replaced an existing file of the same name", "payload_name_collision",
			logging.Path(path),
			logging.String(logging.FieldErrorHint, "set naming.collision_policy = \"suffix\" to keep both"),
			logging.String(logging.FieldImpact, "the earlier payload saved in this second was overwritten"))
	}

	var snapshotErrs []error
	if !result.Draft {
		if err := fileutil.WriteFileAtomic(s.LatestPath(), data, fileMode); err != nil {
			snapshotErrs = append(snapshotErrs, services.Wrap(services.ErrIO, "save", "latest", s.LatestPath(), err))
		} else {
			result.LatestUpdated = true
		}
	}

	skeletonPath, err := s.ensureSkeleton(p, tags.Mode())
	if err != nil {
		snapshotErrs = append(snapshotErrs, err)
	}
	result.SkeletonPath = skeletonPath

	logger.Info("payload saved",
		logging.String(logging.FieldEventType, "payload_saved"),
		logging.Path(path),
		logging.Bool("draft", result.Draft),
		logging.String("tags", tags.String()),
		logging.Bool("latest_updated", result.LatestUpdated),
	)
	if skeletonPath != "" {
		logger.Info("skeleton created",
			logging.String(logging.FieldEventType, "skeleton_created"),
			logging.Path(skeletonPath),
			logging.String("mode", tags.Mode()),
		)
	}
	return result, errors.Join(snapshotErrs...)
}

func (s *Store) writePayload(dir string, at time.Time, tags classify.Tags, data []byte) (string, bool, error) {
	if s.policy == config.CollisionSuffix {
		for serial := 1; serial <= maxSerial; serial++ {
			path := filepath.Join(dir, naming.NameWithSerial(at, tags, serial))
			created, err := fileutil.WriteFileExclusive(path, data, fileMode)
			if err != nil {
				return "", false, services.Wrap(services.ErrIO, "save", "write", path, err)
			}
			if created {
				return path, false, nil
			}
		}
		return "", false, services.Wrap(services.ErrConflict, "save", "write",
			fmt.Sprintf("no free name for %s after %d attempts", naming.Name(at, tags), maxSerial), nil)
	}

	path := filepath.Join(dir, naming.Name(at, tags))
	existed, err := fileutil.Exists(path)
	if err != nil {
		return "", false, services.Wrap(services.ErrIO, "save", "stat", path, err)
	}
	if err := fileutil.WriteFileAtomic(path, data, fileMode); err != nil {
		return "", false, services.Wrap(services.ErrIO, "save", "write", path, err)
	}
	return path, existed, nil
}

// ensureSkeleton writes the mode's skeleton if none exists and returns its path when created.
func (s *Store) ensureSkeleton(p payload.Payload, mode string) (string, error) {
	path := s.SkeletonPath(mode)
	data, err := payload.Encode(p.Skeleton())
	if err != nil {
		return "", services.Wrap(services.ErrMalformedPayload, "save", "skeleton", path, err)
	}
	created, err := fileutil.WriteFileExclusive(path, data, fileMode)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "save", "skeleton", path, err)
	}
	if !created {
		return "", nil
	}
	return path, nil
}

// Latest reads payload_latest.json. It returns nil without error when no
// non-draft payload has been saved yet.
func (s *Store) Latest() (payload.Payload, error) {
	p, err := s.Read(s.LatestPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return p, err
}

// Skeleton reads the skeleton for mode, or nil when it has not been written.
func (s *Store) Skeleton(mode string) (payload.Payload, error) {
	p, err := s.Read(s.SkeletonPath(mode))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return p, err
}

// Read loads and decodes one payload file. Decode failures carry ErrMalformedPayload.
func (s *Store) Read(path string) (payload.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "read", "", path, err)
	}
	p, err := payload.Decode(data)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedPayload, "read", "", path, err)
	}
	return p, nil
}

// Delete removes one payload file. Paths outside the tree and reserved files are refused.
func (s *Store) Delete(path string) error {
	if !s.contains(path) || IsReserved(filepath.Base(path)) {
		return services.Wrap(services.ErrValidation, "delete", "", fmt.Sprintf("%s is not a payload file in %s", path, s.root), nil)
	}
	if err := os.Remove(path); err != nil {
		return services.Wrap(services.ErrIO, "delete", "", path, err)
	}
	return nil
}
