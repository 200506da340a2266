//go:build !linux

package fileutil

// RenameNoReplace renames src to dst, failing with an error matching
// fs.ErrExist when dst is already present.
func RenameNoReplace(src, dst string) error {
	return renameChecked(src, dst)
}
