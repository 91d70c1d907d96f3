package filesystem

import (
	"fmt"

	"github.com/desertwitch/smartmove/internal/schema"
	"golang.org/x/sys/unix"
)

// GetMetadata returns the [schema.Metadata] of an element, as established with
// an lstat call. Symbolic links are never followed, but their target is read.
func (f *Handler) GetMetadata(path string) (*schema.Metadata, error) {
	var stat unix.Stat_t

	if err := f.unixHandler.Lstat(path, &stat); err != nil {
		return nil, fmt.Errorf("(fs-metadata) failed to lstat: %w", err)
	}

	metadata := MetadataFromStat(&stat)

	if metadata.IsSymlink {
		symlinkTarget, err := f.osHandler.Readlink(path)
		if err != nil {
			return nil, fmt.Errorf("(fs-metadata) failed to readlink: %w", err)
		}
		metadata.SymlinkTo = symlinkTarget
	}

	return metadata, nil
}

// MetadataFromStat converts a [unix.Stat_t] into [schema.Metadata]. It does
// not resolve the target of symbolic links.
func MetadataFromStat(stat *unix.Stat_t) *schema.Metadata {
	return &schema.Metadata{
		Device:     uint64(stat.Dev), //nolint:unconvert
		Inode:      stat.Ino,
		Links:      uint64(stat.Nlink), //nolint:unconvert
		Perms:      uint32(stat.Mode) & 0o7777, //nolint:unconvert
		UID:        stat.Uid,
		GID:        stat.Gid,
		AccessedAt: stat.Atim,
		ModifiedAt: stat.Mtim,
		Size:       handleSize(stat.Size),
		IsDir:      (stat.Mode & unix.S_IFMT) == unix.S_IFDIR,
		IsRegular:  (stat.Mode & unix.S_IFMT) == unix.S_IFREG,
		IsSymlink:  (stat.Mode & unix.S_IFMT) == unix.S_IFLNK,
	}
}
