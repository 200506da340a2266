package fileutil

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

// RenameNoReplace renames src to dst, failing with an error matching
// fs.ErrExist when dst is already present. On Linux the check and the rename
// are one atomic renameat2 call.
func RenameNoReplace(src, dst string) error {
	err := unix.Renameat2(unix.AT_FDCWD, src, unix.AT_FDCWD, dst, unix.RENAME_NOREPLACE)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EEXIST):
		return fmt.Errorf("rename %s: %w", dst, fs.ErrExist)
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENOSYS):
		// filesystem without RENAME_NOREPLACE support
		return renameChecked(src, dst)
	default:
		return &fs.PathError{Op: "rename", Path: src, Err: err}
	}
}
