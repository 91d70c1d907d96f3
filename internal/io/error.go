package io

import "errors"

var (
	// ErrUnknownStep is a step of a type that cannot be executed.
	ErrUnknownStep = errors.New("unknown step type")

	// ErrDestinationExists is a different element at the destination.
	ErrDestinationExists = errors.New("different element exists at destination")

	// ErrDestinationIsDirectory is a directory at the destination of a file.
	ErrDestinationIsDirectory = errors.New("directory exists at destination")

	// ErrNotADirectory is a non-directory where a directory is needed.
	ErrNotADirectory = errors.New("non-directory exists at destination")

	// ErrHashMismatch is a copy whose content differs from its source.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrPrimaryNotCompleted is a relink whose primary move has not completed.
	ErrPrimaryNotCompleted = errors.New("primary move not completed")

	// ErrLinkDiverged is a link that no longer references the relocated inode.
	ErrLinkDiverged = errors.New("link no longer references the moved inode")

	// ErrSourceDirNotEmpty is a source directory still holding elements.
	ErrSourceDirNotEmpty = errors.New("source directory not empty (elements were not moved)")

	// ErrNotWritable is a directory that cannot be written to.
	ErrNotWritable = errors.New("directory not writable")
)
