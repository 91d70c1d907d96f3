package io

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// tmpSuffix is part of the name of all temporary files.
const tmpSuffix = ".smv-"

// movePrimary is the principal method for relocating the data of a
// [plan.PrimaryMove]. Within a filesystem it renames, otherwise it copies.
func (r *run) movePrimary(s *plan.PrimaryMove) (Outcome, error) {
	srcMeta, err := r.fsHandler.GetMetadata(s.SourcePath)
	if err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat source", s.SourcePath, err)
	}

	outcome, done, err := r.checkExisting(s, srcMeta)
	if err != nil || done {
		return outcome, err
	}

	if r.plan.SameFilesystem {
		err := retryTransient(func() error {
			return r.osHandler.Rename(s.SourcePath, s.DestPath)
		})
		if err == nil {
			r.step.Renames++
			r.step.FilesMoved++
			r.completed[s.DestPath] = srcMeta.Key()

			return OutcomeSuccess, nil
		}

		if !errors.Is(err, unix.EXDEV) {
			return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "rename", s.DestPath, err)
		}
	}

	if srcMeta.IsSymlink {
		return r.moveSymlink(s, srcMeta)
	}

	return r.copyPrimary(s, srcMeta)
}

// checkExisting checks for an element at the destination of a
// [plan.PrimaryMove]. An identical element means the step is already done, and
// only the source needs to be removed. A differing element is never replaced.
func (r *run) checkExisting(s *plan.PrimaryMove, srcMeta *schema.Metadata) (Outcome, bool, error) {
	dstMeta, err := r.fsHandler.GetMetadata(s.DestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}

		return OutcomeFailed, true, schema.NewPathError(schema.ErrAtomicRename, "lstat destination", s.DestPath, err)
	}

	same, err := r.isSameElement(s, srcMeta, dstMeta)
	if err != nil {
		return OutcomeFailed, true, schema.NewPathError(schema.ErrAtomicRename, "compare destination", s.DestPath, err)
	}

	if !same {
		if dstMeta.IsDir {
			return OutcomeFailed, true, schema.NewPathError(schema.ErrAtomicRename, "check destination", s.DestPath, ErrDestinationIsDirectory)
		}

		return OutcomeFailed, true, schema.NewPathError(schema.ErrAtomicRename, "check destination", s.DestPath, ErrDestinationExists)
	}

	if !s.KeepSource {
		if err := r.removeSource(s.SourcePath, srcMeta, dstMeta); err != nil {
			return OutcomeFailed, true, err
		}
	}
	r.completed[s.DestPath] = dstMeta.Key()

	return OutcomeSkipped, true, nil
}

// isSameElement compares an element at the destination with the source.
func (r *run) isSameElement(s *plan.PrimaryMove, srcMeta *schema.Metadata, dstMeta *schema.Metadata) (bool, error) {
	if srcMeta.Key() == dstMeta.Key() {
		return true, nil
	}

	if !srcMeta.SameAttributes(dstMeta) {
		return false, nil
	}

	if !r.opts.Verify || !srcMeta.IsRegular {
		return true, nil
	}

	srcSum, err := r.hashFile(s.SourcePath)
	if err != nil {
		return false, err
	}

	dstSum, err := r.hashFile(s.DestPath)
	if err != nil {
		return false, err
	}

	return srcSum == dstSum, nil
}

// removeSource removes the source link of an element that is already at the
// destination. When both are the same inode, only the source name is removed.
func (r *run) removeSource(path string, srcMeta *schema.Metadata, dstMeta *schema.Metadata) error {
	if srcMeta.Key() == dstMeta.Key() && srcMeta.Links < 2 {
		return nil
	}

	if err := retryTransient(func() error { return r.osHandler.Remove(path) }); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return schema.NewPathError(schema.ErrAtomicRename, "remove source", path, err)
	}

	return nil
}

// copyPrimary copies a regular file onto another filesystem. The data is
// written to a temporary file in the destination directory, which receives
// ownership, permissions and timestamps before it is renamed onto the
// destination. The source is removed last, unless the group keeps it for its
// last relink.
func (r *run) copyPrimary(s *plan.PrimaryMove, srcMeta *schema.Metadata) (Outcome, error) {
	tmpPath := filepath.Join(filepath.Dir(s.DestPath), "."+filepath.Base(s.DestPath)+tmpSuffix+uuid.NewString())

	r.tmps[tmpPath] = struct{}{}
	defer func() {
		if _, inFlight := r.tmps[tmpPath]; inFlight {
			r.removeTmp(tmpPath)
		}
	}()

	written, err := r.copyFile(s.SourcePath, tmpPath, srcMeta)
	if err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "copy", s.DestPath, err)
	}

	if err := r.ensurePermissions(tmpPath, s.DestPath, srcMeta); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "set permissions", s.DestPath, err)
	}

	if err := r.unixHandler.UtimesNano(tmpPath, []unix.Timespec{srcMeta.AccessedAt, srcMeta.ModifiedAt}); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "set timestamps", s.DestPath, err)
	}

	if exists, err := r.fsHandler.Exists(s.DestPath); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "check destination", s.DestPath, err)
	} else if exists {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "check destination", s.DestPath, ErrDestinationExists)
	}

	if err := retryTransient(func() error { return r.osHandler.Rename(tmpPath, s.DestPath) }); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "rename temporary file", s.DestPath, err)
	}
	delete(r.tmps, tmpPath)

	r.step.Copies++
	r.step.FilesMoved++
	r.step.BytesCopied += written

	dstMeta, err := r.fsHandler.GetMetadata(s.DestPath)
	if err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "lstat destination", s.DestPath, err)
	}
	r.completed[s.DestPath] = dstMeta.Key()

	if s.KeepSource {
		return OutcomeSuccess, nil
	}

	if err := retryTransient(func() error { return r.osHandler.Remove(s.SourcePath) }); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "remove source", s.SourcePath, err)
	}

	return OutcomeSuccess, nil
}

// copyFile copies the content of a file into a new file, returning the amount
// of bytes written. With verification the new file is read back and its hash
// compared against the hash of the source content.
func (r *run) copyFile(srcPath string, dstPath string, srcMeta *schema.Metadata) (uint64, error) {
	srcFile, err := r.osHandler.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("(io-copy) failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := r.osHandler.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, os.FileMode(srcMeta.Perms&0o777))
	if err != nil {
		return 0, fmt.Errorf("(io-copy) failed to open temporary file: %w", err)
	}
	defer dstFile.Close()

	var reader io.Reader = srcFile

	srcHasher := blake3.New()
	if r.opts.Verify {
		reader = io.TeeReader(srcFile, srcHasher)
	}

	written, err := io.Copy(dstFile, reader)
	if err != nil {
		return 0, fmt.Errorf("(io-copy) failed to copy: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		return 0, fmt.Errorf("(io-copy) failed to sync destination fs: %w", err)
	}

	if err := dstFile.Close(); err != nil {
		return 0, fmt.Errorf("(io-copy) failed to close temporary file: %w", err)
	}

	if r.opts.Verify {
		srcChecksum := hex.EncodeToString(srcHasher.Sum(nil))

		dstChecksum, err := r.hashFile(dstPath)
		if err != nil {
			return 0, fmt.Errorf("(io-copy) failed to hash temporary file: %w", err)
		}

		if srcChecksum != dstChecksum {
			return 0, fmt.Errorf("(io-copy) %w: %s (src) != %s (dst)", ErrHashMismatch, srcChecksum, dstChecksum)
		}
	}

	return handleSize(written), nil
}

// hashFile returns the hex encoded blake3 hash of a file's content.
func (r *run) hashFile(path string) (string, error) {
	f, err := r.osHandler.Open(path)
	if err != nil {
		return "", fmt.Errorf("(io-hash) failed to open: %w", err)
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("(io-hash) failed to read: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// moveSymlink recreates a symbolic link on another filesystem, then removes
// the source link.
func (r *run) moveSymlink(s *plan.PrimaryMove, srcMeta *schema.Metadata) (Outcome, error) {
	if err := retryTransient(func() error { return r.unixHandler.Symlink(srcMeta.SymlinkTo, s.DestPath) }); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "symlink", s.DestPath, err)
	}

	if err := r.ensureLinkPermissions(s.DestPath, srcMeta); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "set link ownership", s.DestPath, err)
	}

	if err := r.unixHandler.LutimesNano(s.DestPath, []unix.Timespec{srcMeta.AccessedAt, srcMeta.ModifiedAt}); err != nil {
		r.warn(schema.OwnershipWarning, s.DestPath, fmt.Errorf("failed to set link timestamps: %w", err))
	}

	r.step.FilesMoved++
	r.completed[s.DestPath] = srcMeta.Key()

	if err := retryTransient(func() error { return r.osHandler.Remove(s.SourcePath) }); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrCrossDeviceCopy, "remove source", s.SourcePath, err)
	}

	return OutcomeSuccess, nil
}
