// Package scope implements the resolution of a [schema.MoveRequest] into a
// [Scope]. A scope holds the absolute source and destination paths, the
// devices they are located on, whether the move stays on the same filesystem
// and the roots of the filesystem trees that need to be scanned for hardlinks.
package scope

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/desertwitch/smartmove/internal/filesystem"
	"github.com/desertwitch/smartmove/internal/schema"
	"golang.org/x/sys/unix"
)

// Mode describes how the scan roots of a [Scope] were established.
type Mode int

const (
	// ModeExplicit are scan roots that were given with the request.
	ModeExplicit Mode = iota + 1

	// ModeMount is the mount point containing the source.
	ModeMount

	// ModeComprehensive are all mounted non-pseudo filesystems.
	ModeComprehensive
)

func (m Mode) String() string {
	switch m {
	case ModeExplicit:
		return "explicit"
	case ModeMount:
		return "mount"
	case ModeComprehensive:
		return "comprehensive"
	default:
		return "unknown"
	}
}

// fsProvider defines filesystem methods needed to resolve a [Scope].
type fsProvider interface {
	GetMetadata(path string) (*schema.Metadata, error)
	NearestExisting(path string) (string, error)
}

// mountsProvider defines methods needed to read the table of mounted
// filesystems.
type mountsProvider interface {
	Mounts() ([]Mount, error)
}

// Scope is the resolved form of a [schema.MoveRequest]. It is constant for the
// duration of a single invocation and meant to be passed by reference.
type Scope struct {
	// Request is the request the [Scope] was resolved from.
	Request schema.MoveRequest

	// Source is the absolute and clean path of the source.
	Source string

	// SourceMetadata is the [schema.Metadata] of the source.
	SourceMetadata *schema.Metadata

	// Destination is the absolute and clean final path of the source after
	// the move, with directory semantics already applied.
	Destination string

	// MissingParents are the ancestors of the destination that do not exist
	// yet, ordered from the shallowest to the deepest.
	MissingParents []string

	// SourceDevice is the device the source is located on.
	SourceDevice uint64

	// DestDevice is the device of the nearest existing ancestor of the
	// destination.
	DestDevice uint64

	// SameFilesystem describes if the move can use renames and links.
	SameFilesystem bool

	// SourceMount is the mount point that contains the source.
	SourceMount string

	// Roots are the absolute roots of the hardlink scan.
	Roots []string

	// Mode describes how the [Scope.Roots] were established.
	Mode Mode

	// Excludes are glob patterns of paths to be left out of the scan.
	Excludes []string
}

// Handler is the principal implementation for the scope resolution.
type Handler struct {
	fsHandler     fsProvider
	mountsHandler mountsProvider
}

// NewHandler returns a pointer to a new scope [Handler].
func NewHandler(fsHandler fsProvider, mountsHandler mountsProvider) *Handler {
	return &Handler{
		fsHandler:     fsHandler,
		mountsHandler: mountsHandler,
	}
}

// Resolve validates a [schema.MoveRequest] and resolves it into a [Scope].
// Any returned error is a [schema.PathError] of kind [schema.ErrScope] and
// occurs before anything on the filesystem was changed.
func (s *Handler) Resolve(req schema.MoveRequest) (*Scope, error) {
	for _, pattern := range req.ScanExcludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, schema.NewPathError(schema.ErrScope, "validate exclude", pattern, ErrInvalidExcludePattern)
		}
	}

	if req.Source == "" {
		return nil, schema.NewPathError(schema.ErrScope, "resolve source", req.Source, schema.ErrPathNotFound)
	}

	source, err := filepath.Abs(req.Source)
	if err != nil {
		return nil, schema.NewPathError(schema.ErrScope, "resolve source", req.Source, err)
	}

	srcMeta, err := s.fsHandler.GetMetadata(source)
	if err != nil {
		return nil, schema.NewPathError(schema.ErrScope, "lstat source", source, notFound(err))
	}

	if !srcMeta.IsRegular && !srcMeta.IsDir {
		return nil, schema.NewPathError(schema.ErrScope, "check source", source, schema.ErrUnsupportedPath)
	}

	dest, err := s.resolveDestination(source, req.Destination)
	if err != nil {
		return nil, err
	}

	if dest == source {
		return nil, schema.NewPathError(schema.ErrScope, "check destination", dest, schema.ErrSameSourceDestination)
	}

	if srcMeta.IsDir && filesystem.IsWithin(source, dest) {
		return nil, schema.NewPathError(schema.ErrScope, "check destination", dest, schema.ErrDestinationInsideSource)
	}

	missing, err := s.missingParents(dest, req.CreateParents)
	if err != nil {
		return nil, err
	}

	nearest, err := s.fsHandler.NearestExisting(filepath.Dir(dest))
	if err != nil {
		return nil, schema.NewPathError(schema.ErrScope, "resolve destination device", dest, err)
	}

	nearestMeta, err := s.fsHandler.GetMetadata(nearest)
	if err != nil {
		return nil, schema.NewPathError(schema.ErrScope, "lstat destination ancestor", nearest, err)
	}

	scope := &Scope{
		Request:        req,
		Source:         source,
		SourceMetadata: srcMeta,
		Destination:    dest,
		MissingParents: missing,
		SourceDevice:   srcMeta.Device,
		DestDevice:     nearestMeta.Device,
		SameFilesystem: srcMeta.Device == nearestMeta.Device && !req.ForceCopy,
		SourceMount:    s.mountPoint(source, srcMeta.Device),
		Excludes:       slices.Clone(req.ScanExcludes),
	}

	if err := s.establishRoots(scope); err != nil {
		return nil, err
	}

	return scope, nil
}

// resolveDestination returns the final destination path. A destination with a
// trailing slash or one that is an existing directory receives the basename of
// the source appended.
func (s *Handler) resolveDestination(source string, destination string) (string, error) {
	if destination == "" {
		return "", schema.NewPathError(schema.ErrScope, "resolve destination", destination, schema.ErrPathNotFound)
	}

	dest, err := filepath.Abs(destination)
	if err != nil {
		return "", schema.NewPathError(schema.ErrScope, "resolve destination", destination, err)
	}

	if strings.HasSuffix(destination, string(filepath.Separator)) {
		return filepath.Join(dest, filepath.Base(source)), nil
	}

	if meta, err := s.fsHandler.GetMetadata(dest); err == nil && meta.IsDir {
		return filepath.Join(dest, filepath.Base(source)), nil
	}

	return dest, nil
}

// missingParents returns the ancestors of the destination that do not exist,
// shallowest first. Missing ancestors are an error unless they may be created.
func (s *Handler) missingParents(dest string, createParents bool) ([]string, error) {
	parent := filepath.Dir(dest)

	meta, err := s.fsHandler.GetMetadata(parent)
	if err == nil {
		if !meta.IsDir {
			return nil, schema.NewPathError(schema.ErrScope, "check destination parent", parent, unix.ENOTDIR)
		}

		return nil, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, schema.NewPathError(schema.ErrScope, "lstat destination parent", parent, err)
	}

	if !createParents {
		return nil, schema.NewPathError(schema.ErrScope, "check destination parent", parent,
			fmt.Errorf("%w (use -p to create parents)", schema.ErrPathNotFound))
	}

	var missing []string

	for current := parent; ; current = filepath.Dir(current) {
		meta, err := s.fsHandler.GetMetadata(current)
		if err == nil {
			if !meta.IsDir {
				return nil, schema.NewPathError(schema.ErrScope, "check destination parent", current, unix.ENOTDIR)
			}

			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, schema.NewPathError(schema.ErrScope, "lstat destination parent", current, err)
		}

		missing = append(missing, current)

		if filepath.Dir(current) == current {
			break
		}
	}

	slices.Reverse(missing)

	return missing, nil
}

// mountPoint walks up from a path for as long as the parent is located on the
// same device, returning the last path that was.
func (s *Handler) mountPoint(path string, device uint64) string {
	current := path

	for {
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}

		meta, err := s.fsHandler.GetMetadata(parent)
		if err != nil || meta.Device != device {
			return current
		}

		current = parent
	}
}

// establishRoots sets the scan roots and the [Mode] of a [Scope].
func (s *Handler) establishRoots(scope *Scope) error {
	switch {
	case len(scope.Request.ScanRoots) > 0:
		roots, err := s.explicitRoots(scope.Request.ScanRoots)
		if err != nil {
			return err
		}
		scope.Roots = roots
		scope.Mode = ModeExplicit

	case scope.Request.Comprehensive:
		mounts, err := s.mountsHandler.Mounts()
		if err != nil {
			return schema.NewPathError(schema.ErrScope, "read mount table", MountTableFile, err)
		}
		roots := comprehensiveRoots(mounts, scope.Excludes)
		if !slices.Contains(roots, scope.SourceMount) {
			roots = append(roots, scope.SourceMount)
			slices.Sort(roots)
		}
		scope.Roots = roots
		scope.Mode = ModeComprehensive

	default:
		scope.Roots = []string{scope.SourceMount}
		scope.Mode = ModeMount
	}

	return nil
}

// explicitRoots returns the absolute, deduplicated and sorted scan roots,
// which all need to be existing directories.
func (s *Handler) explicitRoots(paths []string) ([]string, error) {
	roots := make([]string, 0, len(paths))

	for _, p := range paths {
		root, err := filepath.Abs(p)
		if err != nil {
			return nil, schema.NewPathError(schema.ErrScope, "resolve scan root", p, err)
		}

		meta, err := s.fsHandler.GetMetadata(root)
		if err != nil {
			return nil, schema.NewPathError(schema.ErrScope, "lstat scan root", root, notFound(err))
		}
		if !meta.IsDir {
			return nil, schema.NewPathError(schema.ErrScope, "check scan root", root, unix.ENOTDIR)
		}

		roots = append(roots, root)
	}

	slices.Sort(roots)

	return slices.Compact(roots), nil
}

// notFound adds [schema.ErrPathNotFound] to errors of non-existing paths.
func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", schema.ErrPathNotFound, err)
	}

	return err
}
