package fileutil

import (
	"fmt"
	"io/fs"
	"os"
)

// renameChecked is the portable fallback. The existence check and the rename
// are separate steps; callers hold the tree lock to keep them consistent.
func renameChecked(src, dst string) error {
	exists, err := Exists(dst)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dst, err)
	}
	if exists {
		return fmt.Errorf("rename %s: %w", dst, fs.ErrExist)
	}
	return os.Rename(src, dst)
}
