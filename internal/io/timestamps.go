package io

import (
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sys/unix"
)

// ensureTimestamps restores the timestamps of all directories created from
// source directories, deepest first. It runs after all steps, as creating
// elements inside a directory changes its timestamps.
func (r *run) ensureTimestamps() {
	for _, dir := range slices.Backward(r.createdDirs) {
		ts := []unix.Timespec{dir.Metadata.AccessedAt, dir.Metadata.ModifiedAt}
		if err := r.unixHandler.UtimesNano(dir.Path, ts); err != nil {
			slog.Warn("Failure setting timestamp of created directory (skipped)",
				"path", dir.Path,
				"err", fmt.Errorf("(io-times) %w", err),
			)
		}
	}
}
