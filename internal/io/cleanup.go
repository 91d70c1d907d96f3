package io

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertwitch/smartmove/internal/schema"
)

// cleanSource removes the emptied directories of the source tree, deepest
// first. Directories that are not empty are kept with a
// [schema.CleanupWarning], as they still hold elements that were not moved.
func (r *run) cleanSource() {
	dirs := slices.Clone(r.plan.SourceDirs)
	sortDeepestFirst(dirs)

	for _, dir := range dirs {
		if dir == r.plan.Source && !r.opts.RemoveSourceRoot {
			continue
		}

		isEmpty, err := r.fsHandler.IsEmptyFolder(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			r.warn(schema.CleanupWarning, dir, fmt.Errorf("failed to establish source directory emptiness: %w", err))

			continue
		}

		if !isEmpty {
			r.warn(schema.CleanupWarning, dir, ErrSourceDirNotEmpty)

			continue
		}

		if err := retryTransient(func() error { return r.osHandler.Remove(dir) }); err != nil {
			r.warn(schema.CleanupWarning, dir, fmt.Errorf("failed to remove source directory: %w", err))

			continue
		}
		r.report.DirectoriesRemoved++
	}
}

// cleanAfterFailure removes the temporary files and the empty directories the
// failed step left behind. Completed steps are kept.
func (r *run) cleanAfterFailure() {
	for tmpPath := range r.tmps {
		r.removeTmp(tmpPath)
	}

	dirs := slices.Clone(r.stepDirs)
	sortDeepestFirst(dirs)

	for _, dir := range dirs {
		isEmpty, err := r.fsHandler.IsEmptyFolder(dir)
		if err != nil || !isEmpty {
			continue
		}

		if err := r.osHandler.Remove(dir); err != nil {
			slog.Warn("Failure removing created directory after failure (skipped)",
				"path", dir,
				"err", fmt.Errorf("(io-cleanup) %w", err),
			)
		}
	}
}

// removeTmp removes a temporary file of a copy.
func (r *run) removeTmp(path string) {
	delete(r.tmps, path)

	if err := r.osHandler.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failure removing temporary file (skipped)",
			"path", path,
			"err", fmt.Errorf("(io-cleanup) %w", err),
		)
	}
}

func sortDeepestFirst(dirs []string) {
	slices.SortStableFunc(dirs, func(a, b string) int {
		return calculateDirectoryDepth(b) - calculateDirectoryDepth(a)
	})
}

func calculateDirectoryDepth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}
