package io

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
)

// relink recreates a hardlink of a [plan.RelinkMove] at its destination and
// removes the source link thereafter. The [plan.PrimaryMove] of the inode must
// have completed within the same run.
func (r *run) relink(s *plan.RelinkMove) (Outcome, error) {
	primaryKey, err := r.checkPrimary(s)
	if err != nil {
		return OutcomeFailed, err
	}

	if s.IsOutside() {
		return r.keepOutside(s, primaryKey)
	}

	dstMeta, err := r.fsHandler.GetMetadata(s.DestPath)
	switch {
	case err == nil && dstMeta.Key() == primaryKey:
		if err := r.removeLink(s.SourcePath); err != nil {
			return OutcomeFailed, err
		}
		if err := r.releasePrimary(s); err != nil {
			return OutcomeFailed, err
		}
		r.step.HardlinksPreserved++

		return OutcomeSkipped, nil

	case err == nil:
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "check destination", s.DestPath, ErrDestinationExists)

	case !errors.Is(err, fs.ErrNotExist):
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "lstat destination", s.DestPath, err)
	}

	if err := retryTransient(func() error { return r.unixHandler.Link(s.PrimaryDestPath, s.DestPath) }); err != nil {
		return OutcomeFailed, schema.NewPathError(schema.ErrAtomicRename, "link", s.DestPath, err)
	}
	r.step.Links++
	r.step.HardlinksPreserved++

	if err := r.removeLink(s.SourcePath); err != nil {
		return OutcomeFailed, err
	}

	if err := r.releasePrimary(s); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeSuccess, nil
}

// releasePrimary removes the source link that the [plan.PrimaryMove] of the
// group has kept, once the last relink of the group is done.
func (r *run) releasePrimary(s *plan.RelinkMove) error {
	if s.PrimarySourcePath == "" {
		return nil
	}

	return r.removeLink(s.PrimarySourcePath)
}

// checkPrimary re-validates the ordering of a [plan.RelinkMove], returning the
// inode identity of the primary destination.
func (r *run) checkPrimary(s *plan.RelinkMove) (schema.InodeKey, error) {
	primaryKey, completed := r.completed[s.PrimaryDestPath]
	if !completed {
		return schema.InodeKey{}, schema.NewPathError(schema.ErrOrderingViolation, "relink", s.DestPath,
			fmt.Errorf("%w: %s", ErrPrimaryNotCompleted, s.PrimaryDestPath))
	}

	if r.opts.DryRun {
		return primaryKey, nil
	}

	primaryMeta, err := r.fsHandler.GetMetadata(s.PrimaryDestPath)
	if err != nil {
		return schema.InodeKey{}, schema.NewPathError(schema.ErrOrderingViolation, "relink", s.DestPath, err)
	}

	return primaryMeta.Key(), nil
}

// keepOutside accounts for a link outside of the source. The link is never
// touched, it is only confirmed to still reference the relocated inode.
func (r *run) keepOutside(s *plan.RelinkMove, primaryKey schema.InodeKey) (Outcome, error) {
	meta, err := r.fsHandler.GetMetadata(s.DestPath)
	if err != nil || meta.Key() != primaryKey {
		if err == nil {
			err = ErrLinkDiverged
		}
		r.warn(schema.PartialScopeLoss, s.DestPath, fmt.Errorf("link outside of the source is not preserved: %w", err))

		return OutcomeSkipped, nil
	}

	r.step.HardlinksPreserved++

	return OutcomeSuccess, nil
}

// removeLink removes a source link, a link that is already gone is fine.
func (r *run) removeLink(path string) error {
	if err := retryTransient(func() error { return r.osHandler.Remove(path) }); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return schema.NewPathError(schema.ErrAtomicRename, "remove source", path, err)
	}

	return nil
}
