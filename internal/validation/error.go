package validation

import "errors"

var (
	// ErrNoPlan occurs when no plan was given to validate.
	ErrNoPlan = errors.New("no plan")

	// ErrUnknownStep occurs when a plan contains a step of an unknown type.
	ErrUnknownStep = errors.New("unknown step type")

	// ErrNoMetadata indicates that required metadata is missing for a step.
	ErrNoMetadata = errors.New("no metadata")

	// ErrSourcePathRelative occurs when a source path is provided as relative
	// rather than absolute.
	ErrSourcePathRelative = errors.New("source path is relative")

	// ErrDestPathRelative occurs when a destination path is provided as
	// relative rather than absolute.
	ErrDestPathRelative = errors.New("destination path is relative")

	// ErrSourceMismatch occurs when a source path is not located where the
	// step type requires it to be.
	ErrSourceMismatch = errors.New("source path mismatches the source tree")

	// ErrDestMismatch occurs when a destination path is not located inside
	// the destination tree.
	ErrDestMismatch = errors.New("destination path mismatches the destination tree")

	// ErrRelatedDirNotDir indicates that an element that is to be created as a
	// directory is not actually a directory.
	ErrRelatedDirNotDir = errors.New("related dir is not a dir")

	// ErrParentNotPlanned occurs when an element is placed into a directory
	// that no earlier step creates.
	ErrParentNotPlanned = errors.New("parent directory is not created before")

	// ErrDuplicatePrimary occurs when an inode would be moved more than once.
	ErrDuplicatePrimary = errors.New("inode has more than one primary move")

	// ErrDuplicateDestination occurs when two steps produce the same path.
	ErrDuplicateDestination = errors.New("destination path is produced twice")

	// ErrOutsideRelinkAcrossFilesystems occurs when a link outside of the
	// source is accounted for, even though the move crosses filesystems.
	ErrOutsideRelinkAcrossFilesystems = errors.New("outside link cannot be kept across filesystems")

	// ErrKeptSourceNotReleased occurs when a primary move keeps its source
	// link, but no later relink removes it.
	ErrKeptSourceNotReleased = errors.New("kept source link is never removed")

	// ErrReleasedSourceNotKept occurs when a relink removes a source link that
	// no earlier primary move has kept.
	ErrReleasedSourceNotKept = errors.New("removed source link is not kept by a primary move")
)
