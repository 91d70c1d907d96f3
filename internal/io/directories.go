package io

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
)

// parentPerms are the permissions of created parents of the destination.
const parentPerms = 0o755

// createDirectory ensures the directory of a [plan.DirectoryCreate] exists.
// An existing directory is left as it is.
func (r *run) createDirectory(s *plan.DirectoryCreate) (Outcome, error) {
	meta, err := r.fsHandler.GetMetadata(s.Path)
	if err == nil {
		if !meta.IsDir {
			return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "mkdir", s.Path, ErrNotADirectory)
		}

		return OutcomeSkipped, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat", s.Path, err)
	}

	perms := uint32(parentPerms)
	if !s.IsParent() {
		perms = s.Metadata.Perms
	}

	if err := retryTransient(func() error { return r.unixHandler.Mkdir(s.Path, perms) }); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "mkdir", s.Path, err)
	}
	r.stepDirs = append(r.stepDirs, s.Path)
	r.step.DirectoriesCreated++

	if s.IsParent() {
		if owner := r.opts.ParentOwner; owner != nil {
			if err := r.unixHandler.Chown(s.Path, owner.UID, owner.GID); err != nil {
				r.warn(schema.OwnershipWarning, s.Path, fmt.Errorf("failed to set ownership: %w", err))
			}
		}

		return OutcomeSuccess, nil
	}

	if err := r.ensurePermissions(s.Path, s.Path, s.Metadata); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "set permissions", s.Path, err)
	}
	r.createdDirs = append(r.createdDirs, s)

	return OutcomeSuccess, nil
}
