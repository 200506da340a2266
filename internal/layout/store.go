package layout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"payloadkeeper/internal/classify"
	"payloadkeeper/internal/config"
	"payloadkeeper/internal/fileutil"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/naming"
	"payloadkeeper/internal/services"
)

// Reserved file names in the tree root.
const (
	LatestFileName         = "payload_latest.json"
	SkeletonXYZFileName    = "payload_xyz_skeleton.json"
	SkeletonSingleFileName = "payload_single_skeleton.json"
	LockFileName           = ".payloadkeeper.lock"
)

const (
	fileMode = 0o644
	dirMode  = 0o755
	// maxSerial bounds the suffix policy search within one second.
	maxSerial = 1000
	lockRetry = 100 * time.Millisecond
)

// Options configures a Store.
type Options struct {
	// CollisionPolicy is config.CollisionOverwrite (default) or config.CollisionSuffix.
	CollisionPolicy string
	Logger          *slog.Logger
}

// Store manages one payload tree.
type Store struct {
	root   string
	drafts string
	policy string
	logger *slog.Logger
	lock   *flock.Flock
}

// Open prepares the tree rooted at root, creating it and its drafts directory if needed.
func Open(root string, opts Options) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "layout", "open", "payload directory is empty", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "layout", "open", "resolve payload directory", err)
	}
	policy := strings.ToLower(strings.TrimSpace(opts.CollisionPolicy))
	switch policy {
	case "":
		policy = config.CollisionOverwrite
	case config.CollisionOverwrite, config.CollisionSuffix:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "layout", "open", fmt.Sprintf("unknown collision policy %q", opts.CollisionPolicy), nil)
	}

	drafts := filepath.Join(abs, config.DraftsDirName)
	for _, dir := range []string{abs, drafts} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return nil, services.Wrap(services.ErrIO, "layout", "open", "create "+dir, err)
		}
	}

	return &Store{
		root:   abs,
		drafts: drafts,
		policy: policy,
		logger: logging.NewComponentLogger(opts.Logger, "layout"),
		lock:   flock.New(filepath.Join(abs, LockFileName)),
	}, nil
}

// Root returns the absolute tree root.
func (s *Store) Root() string { return s.root }

// DraftsDir returns the absolute drafts directory.
func (s *Store) DraftsDir() string { return s.drafts }

// LatestPath returns the path of payload_latest.json.
func (s *Store) LatestPath() string { return filepath.Join(s.root, LatestFileName) }

// SkeletonPath returns the skeleton file path for a mode (classify.ModeSingle or classify.ModeXYZ).
func (s *Store) SkeletonPath(mode string) string {
	if mode == classify.ModeXYZ {
		return filepath.Join(s.root, SkeletonXYZFileName)
	}
	return filepath.Join(s.root, SkeletonSingleFileName)
}

// IsReserved reports whether name is one of the tree's bookkeeping files.
func IsReserved(name string) bool {
	switch name {
	case LatestFileName, SkeletonXYZFileName, SkeletonSingleFileName, LockFileName:
		return true
	}
	return strings.HasSuffix(name, fileutil.TempSuffix)
}

// isPayloadFile reports whether name is a candidate payload document.
func isPayloadFile(entry os.DirEntry) bool {
	if !entry.Type().IsRegular() {
		return false
	}
	name := entry.Name()
	return strings.HasSuffix(name, naming.Extension) && !IsReserved(name) && !strings.HasPrefix(name, ".")
}

// TryLock takes the tree lock without waiting. It returns false when another
// process holds it.
func (s *Store) TryLock() (bool, error) {
	ok, err := s.lock.TryLock()
	if err != nil {
		return false, services.Wrap(services.ErrIO, "layout", "lock", s.lock.Path(), err)
	}
	return ok, nil
}

// Lock waits for the tree lock until ctx is done.
func (s *Store) Lock(ctx context.Context) error {
	ok, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return services.Wrap(services.ErrIO, "layout", "lock", s.lock.Path(), err)
	}
	if !ok {
		return services.Wrap(services.ErrConflict, "layout", "lock", "payload tree is locked by another process", nil)
	}
	return nil
}

// Unlock releases the tree lock.
func (s *Store) Unlock() error {
	if err := s.lock.Unlock(); err != nil {
		return services.Wrap(services.ErrIO, "layout", "unlock", s.lock.Path(), err)
	}
	return nil
}

// contains reports whether path sits directly in the root or drafts directory.
func (s *Store) contains(path string) bool {
	dir := filepath.Dir(filepath.Clean(path))
	return dir == s.root || dir == s.drafts
}
