package layout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"payloadkeeper/internal/classify"
	"payloadkeeper/internal/fileutil"
	"payloadkeeper/internal/naming"
	"payloadkeeper/internal/services"
)

// Scope selects which directories List enumerates.
type Scope string

const (
	ScopeRoot   Scope = "root"
	ScopeDrafts Scope = "drafts"
	ScopeAll    Scope = "all"
)

// ParseScope validates a user-supplied scope name. Empty means ScopeAll.
func ParseScope(value string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeRoot:
		return ScopeRoot, nil
	case ScopeDrafts:
		return ScopeDrafts, nil
	default:
		return "", services.Wrap(services.ErrValidation, "list", "scope", fmt.Sprintf("unknown scope %q (want root, drafts or all)", value), nil)
	}
}

// File is one payload file in the tree, described from its name and location.
type File struct {
	Path string
	Name string
	// Time is the creation timestamp from the name, or the modification time.
	Time time.Time
	// Tags are the tags spelled in the name.
	Tags      classify.Tags
	Draft     bool
	Canonical bool
	Size      int64
}

// List enumerates payload files in scope, oldest first. Reserved files are excluded.
func (s *Store) List(ctx context.Context, scope Scope) ([]File, error) {
	var dirs []string
	switch scope {
	case ScopeRoot:
		dirs = []string{s.root}
	case ScopeDrafts:
		dirs = []string{s.drafts}
	case ScopeAll, "":
		dirs = []string{s.root, s.drafts}
	default:
		return nil, services.Wrap(services.ErrValidation, "list", "scope", string(scope), nil)
	}

	var files []File
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, services.Wrap(services.ErrIO, "list", "read dir", dir, err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !isPayloadFile(entry) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			file := File{
				Path:  filepath.Join(dir, entry.Name()),
				Name:  entry.Name(),
				Time:  info.ModTime(),
				Draft: dir == s.drafts,
				Size:  info.Size(),
			}
			if parsed, ok := naming.Parse(entry.Name()); ok {
				file.Time = parsed.Time
				file.Tags = parsed.Tags
				file.Canonical = parsed.Canonical
			}
			files = append(files, file)
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].Time.Equal(files[j].Time) {
			return files[i].Time.Before(files[j].Time)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Find resolves a bare file name to a path in the root or drafts directory.
// Names containing a path separator are returned cleaned when they exist.
func (s *Store) Find(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "find", "", "file name is empty", nil)
	}
	var candidates []string
	if strings.ContainsRune(name, filepath.Separator) {
		candidates = []string{filepath.Clean(name)}
	} else {
		candidates = []string{filepath.Join(s.root, name), filepath.Join(s.drafts, name)}
	}
	for _, candidate := range candidates {
		ok, err := fileutil.Exists(candidate)
		if err != nil {
			return "", services.Wrap(services.ErrIO, "find", "", candidate, err)
		}
		if ok {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "find", "", fmt.Sprintf("%s not found in %s", name, s.root), fs.ErrNotExist)
}

// Summary counts the tree's contents.
type Summary struct {
	Payloads  int
	Drafts    int
	HasLatest bool
	Skeletons []string
	Newest    time.Time
}

// Summarize reports counts and snapshot presence for status output.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	files, err := s.List(ctx, ScopeAll)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	for _, f := range files {
		if f.Draft {
			summary.Drafts++
		} else {
			summary.Payloads++
		}
		if f.Time.After(summary.Newest) {
			summary.Newest = f.Time
		}
	}
	if ok, _ := fileutil.Exists(s.LatestPath()); ok {
		summary.HasLatest = true
	}
	for _, mode := range []string{classify.ModeSingle, classify.ModeXYZ} {
		if ok, _ := fileutil.Exists(s.SkeletonPath(mode)); ok {
			summary.Skeletons = append(summary.Skeletons, mode)
		}
	}
	return summary, nil
}
