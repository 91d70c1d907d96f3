package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrScope is the kind of error that occurs when the source or destination
	// is invalid or of an unsupported type. It is fatal and occurs before any
	// mutation.
	ErrScope = errors.New("scope error")

	// ErrOrderingViolation is the kind of error that occurs when a relink is
	// attempted before the primary move it depends on has completed.
	ErrOrderingViolation = errors.New("ordering violation")

	// ErrCrossDeviceCopy is the kind of error that occurs when the copy of a
	// file onto another filesystem fails.
	ErrCrossDeviceCopy = errors.New("cross-device copy failed")

	// ErrAtomicRename is the kind of error that occurs when a rename, link or
	// directory creation fails for a reason other than crossing devices.
	ErrAtomicRename = errors.New("atomic rename failed")

	// ErrCanceled is the kind of error that occurs when a run was interrupted
	// between two steps.
	ErrCanceled = errors.New("move canceled")

	// ErrPathNotFound occurs when the source or the parent of the destination
	// does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrUnsupportedPath occurs when the source is neither a regular file nor
	// a directory.
	ErrUnsupportedPath = errors.New("unsupported file type")

	// ErrDestinationInsideSource occurs when a directory would be moved into
	// itself.
	ErrDestinationInsideSource = errors.New("destination is inside the source")

	// ErrSameSourceDestination occurs when source and destination are equal.
	ErrSameSourceDestination = errors.New("source and destination are the same")

	// ErrNotEnoughSpace occurs when the destination filesystem cannot take the
	// data that would have to be copied.
	ErrNotEnoughSpace = errors.New("not enough free space on destination")
)

// PathError records an error kind together with the operation and path that
// caused it. Both the kind and the underlying error can be matched with
// [errors.Is].
type PathError struct {
	Kind error
	Op   string
	Path string
	Err  error
}

// NewPathError returns a pointer to a new [PathError].
func NewPathError(kind error, op string, path string, err error) *PathError {
	return &PathError{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s %s", e.Kind, e.Op, e.Path)
	}

	return fmt.Sprintf("%v: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}
