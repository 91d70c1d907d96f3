package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/desertwitch/smartmove/internal/scope"
)

// entryKey is the identity of a directory entry. Two paths with an equal
// entryKey are aliases of the same directory entry, as seen through bind
// mounts or overlapping scan roots.
type entryKey struct {
	dev       uint64
	parentIno uint64
	name      string
}

// scan holds the state of one [Handler.Build] call.
type scan struct {
	*Handler
	ctx      context.Context //nolint:containedctx
	scope    *scope.Scope
	opts     Options
	index    *Index
	seen     map[entryKey]struct{}
	dirInode map[string]uint64
}

// Build walks the source subtree and all scan roots of a [scope.Scope] and
// returns the resulting [Index]. Unreadable elements are recorded as
// [schema.ScanWarning] and skipped, only the cancellation of the context or an
// unreadable source aborts the scan.
func (h *Handler) Build(ctx context.Context, sc *scope.Scope, opts Options) (*Index, error) {
	if opts.MinLinks == 0 {
		opts.MinLinks = DefaultMinLinks
	}

	s := &scan{
		Handler: h,
		ctx:     ctx,
		scope:   sc,
		opts:    opts,
		index: &Index{
			Groups:  make(map[schema.InodeKey]*InodeGroup),
			Entries: []*Entry{},
			Roots:   sc.Roots,
		},
		seen:     make(map[entryKey]struct{}),
		dirInode: make(map[string]uint64),
	}

	if err := s.walkSource(); err != nil {
		return nil, err
	}

	for _, root := range sc.Roots {
		if err := s.walkRoot(root); err != nil {
			return nil, err
		}
	}

	s.index.finalize()

	slog.Debug("Inode index established",
		"groups", len(s.index.Groups),
		"entries", len(s.index.Entries),
		"warnings", len(s.index.Warnings),
		"roots", len(sc.Roots),
	)

	return s.index, nil
}

// walkSource walks the source subtree, recording every supported element as
// an [Entry]. The source subtree is walked before the scan roots, so its paths
// take precedence over any aliases of them.
func (s *scan) walkSource() error {
	source := s.scope.Source

	err := s.walkHandler.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == source {
				return err
			}
			s.warn(path, err)

			return nil
		}

		md, err := s.fsHandler.GetMetadata(path)
		if err != nil {
			if path == source {
				return err
			}
			s.warn(path, err)

			return skipIfDir(d)
		}

		if !md.IsSupported() {
			s.warn(path, fmt.Errorf("%w: %s", schema.ErrUnsupportedPath, typeOf(d)))

			return nil
		}

		if s.markSeen(path, md) {
			return skipIfDir(d)
		}

		s.index.Entries = append(s.index.Entries, &Entry{Path: path, Metadata: md})
		s.record(path, md)

		return nil
	})
	if err != nil {
		return fmt.Errorf("(index-source) failed walking: %w", err)
	}

	return nil
}

// walkRoot walks a scan root without descending into other filesystems,
// excluded paths or the already walked source subtree.
func (s *scan) walkRoot(root string) error {
	rootMeta, err := s.fsHandler.GetMetadata(root)
	if err != nil {
		s.warn(root, err)

		return nil
	}

	err = s.walkHandler.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			s.warn(path, err)

			return nil
		}

		if path == s.scope.Source {
			return skipIfDir(d)
		}

		if scope.IsExcluded(path, s.scope.Excludes) {
			return skipIfDir(d)
		}

		if d.IsDir() {
			md, err := s.fsHandler.GetMetadata(path)
			if err != nil {
				s.warn(path, err)

				return fs.SkipDir
			}
			if md.Device != rootMeta.Device {
				return fs.SkipDir
			}
			if s.markSeen(path, md) {
				return fs.SkipDir
			}

			return nil
		}

		// Only regular files can be hardlinked, which allows to skip the
		// lstat for all other types that the directory entry already tells.
		if !d.Type().IsRegular() {
			return nil
		}

		md, err := s.fsHandler.GetMetadata(path)
		if err != nil {
			s.warn(path, err)

			return nil
		}

		if md.Links < s.opts.MinLinks {
			return nil
		}

		if s.markSeen(path, md) {
			return nil
		}

		s.record(path, md)

		return nil
	})
	if err != nil {
		return fmt.Errorf("(index-root) failed walking %s: %w", root, err)
	}

	return nil
}

// record adds a multiply linked regular file to its [InodeGroup].
func (s *scan) record(path string, md *schema.Metadata) {
	if !md.IsRegular || md.Links < s.opts.MinLinks {
		return
	}

	key := md.Key()

	group, exists := s.index.Groups[key]
	if !exists {
		group = &InodeGroup{
			Key:       key,
			LinkCount: md.Links,
			Metadata:  md,
		}
		s.index.Groups[key] = group
	}

	group.Paths = append(group.Paths, path)
}

// markSeen records the [entryKey] of a path, returning whether it was seen
// before. The inodes of directories are remembered for their children.
func (s *scan) markSeen(path string, md *schema.Metadata) bool {
	if md.IsDir {
		s.dirInode[path] = md.Inode
	}

	parent := filepath.Dir(path)

	parentIno, ok := s.dirInode[parent]
	if !ok {
		if parentMeta, err := s.fsHandler.GetMetadata(parent); err == nil {
			parentIno = parentMeta.Inode
			s.dirInode[parent] = parentIno
		}
	}

	key := entryKey{dev: md.Device, parentIno: parentIno, name: filepath.Base(path)}

	if _, exists := s.seen[key]; exists {
		slog.Debug("Skipped alias of an already scanned path", "path", path)

		return true
	}
	s.seen[key] = struct{}{}

	return false
}

// warn records a [schema.ScanWarning].
func (s *scan) warn(path string, err error) {
	if errors.Is(err, fs.SkipDir) {
		return
	}

	slog.Warn("Failure for path during walking of directory tree (was skipped)",
		"path", path,
		"err", err,
	)

	s.index.Warnings = append(s.index.Warnings, schema.Warning{
		Kind: schema.ScanWarning,
		Path: path,
		Err:  err,
	})
}

func skipIfDir(d fs.DirEntry) error {
	if d != nil && d.IsDir() {
		return fs.SkipDir
	}

	return nil
}

func typeOf(d fs.DirEntry) string {
	if d == nil {
		return "unknown"
	}

	return d.Type().String()
}
