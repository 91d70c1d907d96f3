package io

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
	"golang.org/x/sys/unix"
)

// exists returns if an element exists, as far as a dry run is concerned.
// Elements a dry run would have created or removed take precedence.
func (r *run) exists(path string) (bool, error) {
	if created, ok := r.virtual[path]; ok {
		return created, nil
	}

	return r.fsHandler.Exists(path) //nolint:wrapcheck
}

// checkWritable checks that a directory, or the directory that would be its
// nearest existing ancestor, can be written to by this process.
func (r *run) checkWritable(dir string) error {
	existing, err := r.fsHandler.NearestExisting(dir)
	if err != nil {
		return fmt.Errorf("(io-dryrun) failed to find existing parent: %w", err)
	}

	if err := r.unixHandler.Access(existing, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("(io-dryrun) %w: %s: %w", ErrNotWritable, existing, err)
	}

	return nil
}

// dryDirectory validates a [plan.DirectoryCreate] without mutation.
func (r *run) dryDirectory(s *plan.DirectoryCreate) (Outcome, error) {
	if created, ok := r.virtual[s.Path]; ok && created {
		return OutcomeSkipped, nil
	}

	exists, err := r.fsHandler.Exists(s.Path)
	if err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat", s.Path, err)
	}

	if exists {
		meta, err := r.fsHandler.GetMetadata(s.Path)
		if err != nil {
			return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat", s.Path, err)
		}
		if !meta.IsDir {
			return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "mkdir", s.Path, ErrNotADirectory)
		}

		return OutcomeSkipped, nil
	}

	if err := r.checkWritable(filepath.Dir(s.Path)); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "mkdir", s.Path, err)
	}

	r.virtual[s.Path] = true
	r.step.DirectoriesCreated++

	return OutcomeSuccess, nil
}

// dryPrimary validates a [plan.PrimaryMove] without mutation.
func (r *run) dryPrimary(s *plan.PrimaryMove) (Outcome, error) {
	srcMeta, err := r.fsHandler.GetMetadata(s.SourcePath)
	if err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat source", s.SourcePath, err)
	}

	if _, virtual := r.virtual[s.DestPath]; !virtual {
		dstMeta, err := r.fsHandler.GetMetadata(s.DestPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat destination", s.DestPath, err)
		}
		if err == nil {
			same, err := r.isSameElement(s, srcMeta, dstMeta)
			if err != nil {
				return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "compare destination", s.DestPath, err)
			}
			if !same {
				return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "check destination", s.DestPath, ErrDestinationExists)
			}
			r.completed[s.DestPath] = dstMeta.Key()

			return OutcomeSkipped, nil
		}
	} else if r.virtual[s.DestPath] {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "check destination", s.DestPath, ErrDestinationExists)
	}

	if err := r.checkWritable(filepath.Dir(s.DestPath)); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "move", s.DestPath, err)
	}

	if err := r.checkWritable(filepath.Dir(s.SourcePath)); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "remove source", s.SourcePath, err)
	}

	if r.plan.SameFilesystem {
		r.step.Renames++
	} else if !srcMeta.IsSymlink {
		r.step.Copies++
	}

	r.virtual[s.DestPath] = true
	if !s.KeepSource {
		r.virtual[s.SourcePath] = false
	}
	r.completed[s.DestPath] = srcMeta.Key()

	return OutcomeSuccess, nil
}

// dryRelink validates a [plan.RelinkMove] without mutation.
func (r *run) dryRelink(s *plan.RelinkMove) (Outcome, error) {
	primaryKey, err := r.checkPrimary(s)
	if err != nil {
		return OutcomeFailed, err
	}

	if s.IsOutside() {
		exists, err := r.exists(s.DestPath)
		if err != nil || !exists {
			if err == nil {
				err = ErrLinkDiverged
			}
			r.warn(schema.PartialScopeLoss, s.DestPath, fmt.Errorf("link outside of the source is not preserved: %w", err))

			return OutcomeSkipped, nil
		}
		r.step.HardlinksPreserved++

		return OutcomeSuccess, nil
	}

	if _, virtual := r.virtual[s.DestPath]; !virtual {
		dstMeta, err := r.fsHandler.GetMetadata(s.DestPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat destination", s.DestPath, err)
		}
		if err == nil {
			if dstMeta.Key() != primaryKey {
				return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "check destination", s.DestPath, ErrDestinationExists)
			}
			r.step.HardlinksPreserved++

			return OutcomeSkipped, nil
		}
	} else if r.virtual[s.DestPath] {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "check destination", s.DestPath, ErrDestinationExists)
	}

	if err := r.checkWritable(filepath.Dir(s.DestPath)); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "link", s.DestPath, err)
	}

	r.step.Links++
	r.step.HardlinksPreserved++

	r.virtual[s.DestPath] = true
	r.virtual[s.SourcePath] = false
	if s.PrimarySourcePath != "" {
		r.virtual[s.PrimarySourcePath] = false
	}

	return OutcomeSuccess, nil
}
