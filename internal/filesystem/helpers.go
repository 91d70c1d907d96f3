package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// IsEmptyFolder is a helper function checking if a path is an empty folder.
func (f *Handler) IsEmptyFolder(path string) (bool, error) {
	entries, err := f.osHandler.ReadDir(path)
	if err != nil {
		return false, fmt.Errorf("(fs-isempty) failed to readdir: %w", err)
	}

	return len(entries) == 0, nil
}

// Exists is a helper function checking if a path already exists. Symbolic
// links are not followed, so a dangling symbolic link exists.
func (f *Handler) Exists(path string) (bool, error) {
	if _, err := f.osHandler.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("(fs-exists) failed to lstat: %w", err)
	}

	return true, nil
}

// NearestExisting walks up from a path until it finds an ancestor (or the path
// itself) that exists, returning it.
func (f *Handler) NearestExisting(path string) (string, error) {
	current := filepath.Clean(path)

	for {
		exists, err := f.Exists(current)
		if err != nil {
			return "", err
		}
		if exists {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("(fs-nearest) %w: %s", ErrNoExistingAncestor, path)
		}
		current = parent
	}
}

// IsWithin returns whether a path equals or is located below a base path. Both
// paths are expected to be absolute and clean.
func IsWithin(base string, path string) bool {
	if base == path {
		return true
	}

	if base == string(filepath.Separator) {
		return strings.HasPrefix(path, base)
	}

	return strings.HasPrefix(path, base+string(filepath.Separator))
}

// handleSize converts a int64 filesize to a uint64 filesize (with sizes < 0 becoming 0).
func handleSize(size int64) uint64 {
	if size < 0 {
		return 0
	}

	return uint64(size)
}
