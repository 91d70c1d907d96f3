package scope

import "errors"

var (
	// ErrInvalidExcludePattern is an error that occurs when a scan exclusion is
	// not a valid glob pattern.
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")

	// ErrMountTableUnreadable is an error that occurs when the mount table
	// could not be read to its end.
	ErrMountTableUnreadable = errors.New("mount table unreadable")
)
