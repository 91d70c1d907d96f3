package filesystem

import "errors"

// ErrNoExistingAncestor is an error that occurs when not even the filesystem
// root of a path could be found to exist.
var ErrNoExistingAncestor = errors.New("no existing ancestor")
