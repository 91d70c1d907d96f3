// Package index implements the inode index of a move. It walks the source
// subtree and all scan roots of a [scope.Scope] without following symbolic
// links or crossing filesystems, and relates every path that references a
// multiply linked regular file to the inode identity it shares with others.
package index

import (
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/desertwitch/smartmove/internal/schema"
)

// DefaultMinLinks is the link count from which on regular files are recorded
// into an [InodeGroup].
const DefaultMinLinks = 2

// fsProvider defines filesystem methods needed to build an [Index].
type fsProvider interface {
	GetMetadata(path string) (*schema.Metadata, error)
}

// fsWalkProvider defines methods needed to walk a directory tree.
type fsWalkProvider interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// FileWalker is the implementation walking directory trees of the operating
// system.
type FileWalker struct{}

// WalkDir wraps around [filepath.WalkDir].
func (*FileWalker) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

// Options are the options for building an [Index].
type Options struct {
	// MinLinks is the link count from which on files are recorded.
	MinLinks uint64
}

// Entry is an element of the source subtree.
type Entry struct {
	Path     string
	Metadata *schema.Metadata
}

// InodeGroup are all known paths that reference the same physical file.
type InodeGroup struct {
	// Key is the shared inode identity.
	Key schema.InodeKey

	// Paths are the absolute paths seen to reference the file, sorted and
	// unique. There can be less paths than links, but never more.
	Paths []string

	// LinkCount is the link count the filesystem reports for the file.
	LinkCount uint64

	// Metadata is the [schema.Metadata] of the file, as seen on the first
	// recorded path.
	Metadata *schema.Metadata
}

// UnseenLinks returns the amount of links that were not found in the scan.
func (g *InodeGroup) UnseenLinks() uint64 {
	if seen := uint64(len(g.Paths)); g.LinkCount > seen {
		return g.LinkCount - seen
	}

	return 0
}

// Index is the result of a scan. It is built fresh for every invocation and
// discarded thereafter.
type Index struct {
	// Groups relates inode identities to the paths referencing them.
	Groups map[schema.InodeKey]*InodeGroup

	// Entries is the source subtree (including the source itself) in walk
	// order, so that parents always precede their children.
	Entries []*Entry

	// Roots are the scan roots that were walked.
	Roots []string

	// Warnings are the elements that could not be scanned.
	Warnings []schema.Warning
}

// Group returns the [InodeGroup] for an [schema.InodeKey], if it was recorded.
func (i *Index) Group(key schema.InodeKey) (*InodeGroup, bool) {
	g, ok := i.Groups[key]

	return g, ok
}

// Handler is the principal implementation for the inode index.
type Handler struct {
	fsHandler   fsProvider
	walkHandler fsWalkProvider
}

// NewHandler returns a pointer to a new index [Handler].
func NewHandler(fsHandler fsProvider, walkHandler fsWalkProvider) *Handler {
	return &Handler{
		fsHandler:   fsHandler,
		walkHandler: walkHandler,
	}
}

// finalize sorts and deduplicates the paths of all groups.
func (i *Index) finalize() {
	for _, g := range i.Groups {
		slices.Sort(g.Paths)
		g.Paths = slices.Compact(g.Paths)
	}
}
