package filesystem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskStats holds disk usage information. It is meant to be passed by value.
type DiskStats struct {
	TotalSize uint64
	FreeSpace uint64
}

// GetDiskUsage gets the [DiskStats] of the filesystem a path is located on.
func (f *Handler) GetDiskUsage(path string) (DiskStats, error) {
	var stat unix.Statfs_t
	if err := f.unixHandler.Statfs(path, &stat); err != nil {
		return DiskStats{}, fmt.Errorf("(fs-diskstats) failed to statfs: %w", err)
	}

	stats := DiskStats{
		TotalSize: stat.Blocks * handleSize(stat.Bsize),
		FreeSpace: stat.Bavail * handleSize(stat.Bsize),
	}

	return stats, nil
}

// HasEnoughFreeSpace is a helper method that allows checking if the filesystem
// of a path can house a certain amount of bytes without exceeding a certain
// minFree threshold.
func (f *Handler) HasEnoughFreeSpace(path string, minFree uint64, size uint64) (bool, DiskStats, error) {
	stats, err := f.GetDiskUsage(path)
	if err != nil {
		return false, stats, fmt.Errorf("(fs-diskstats-efree) failed to get usage: %w", err)
	}

	requiredFree := minFree
	if minFree <= size {
		requiredFree = size
	}

	if stats.FreeSpace > requiredFree {
		return true, stats, nil
	}

	return false, stats, nil
}
