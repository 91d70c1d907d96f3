// Package filesystem implements routines for establishing filesystem metadata
// of elements, checking for existence and emptiness of paths and querying the
// usage statistics of mounted filesystems.
package filesystem

import (
	"os"

	"golang.org/x/sys/unix"
)

// osProvider defines operating system methods needed to inspect the
// filesystem.
type osProvider interface {
	Readlink(name string) (string, error)
	ReadDir(name string) ([]os.DirEntry, error)
	Lstat(name string) (os.FileInfo, error)
}

// unixProvider defines Unix operating system methods needed to inspect the
// filesystem.
type unixProvider interface {
	Lstat(path string, stat *unix.Stat_t) error
	Statfs(path string, buf *unix.Statfs_t) error
}

// Handler is the principal implementation for the filesystem services.
type Handler struct {
	osHandler   osProvider
	unixHandler unixProvider
}

// NewHandler returns a pointer to a new filesystem [Handler].
func NewHandler(osHandler osProvider, unixHandler unixProvider) *Handler {
	return &Handler{
		osHandler:   osHandler,
		unixHandler: unixHandler,
	}
}
