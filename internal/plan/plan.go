// Package plan implements the move planner. It turns an [index.Index] and a
// [scope.Scope] into a [Plan], a totally ordered sequence of [Step]s that
// relocates the source while keeping every hardlink group intact.
package plan

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertwitch/smartmove/internal/filesystem"
	"github.com/desertwitch/smartmove/internal/index"
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/desertwitch/smartmove/internal/scope"
)

// Plan is the ordered sequence of [Step]s of a move. For identical input the
// plan is always identical, so that dry runs and real runs agree.
type Plan struct {
	// Steps are the operations in order of execution.
	Steps []Step

	// Source is the absolute path of the source.
	Source string

	// Destination is the absolute final path of the source.
	Destination string

	// SourceIsDir describes if a directory tree is moved.
	SourceIsDir bool

	// SameFilesystem describes if renames and links can be used.
	SameFilesystem bool

	// SourceDirs are the directories of the source, in walk order.
	SourceDirs []string

	// EstimatedBytes is the amount of bytes that need to be copied.
	EstimatedBytes uint64

	// Warnings are the problems that were found while planning.
	Warnings []schema.Warning
}

// Count returns the amount of steps of each type.
func (p *Plan) Count() (primaries int, relinks int, dirs int) {
	for _, step := range p.Steps {
		switch step.(type) {
		case *PrimaryMove:
			primaries++
		case *RelinkMove:
			relinks++
		case *DirectoryCreate:
			dirs++
		}
	}

	return primaries, relinks, dirs
}

// Build produces the [Plan] for a [scope.Scope] from its [index.Index].
func Build(idx *index.Index, sc *scope.Scope) (*Plan, error) {
	if len(idx.Entries) == 0 || idx.Entries[0].Path != sc.Source {
		return nil, fmt.Errorf("(plan) %w: %s", ErrSourceNotIndexed, sc.Source)
	}

	p := &Plan{
		Source:         sc.Source,
		Destination:    sc.Destination,
		SourceIsDir:    idx.Entries[0].Metadata.IsDir,
		SameFilesystem: sc.SameFilesystem,
	}

	destFor := func(path string) string {
		rel := strings.TrimPrefix(strings.TrimPrefix(path, sc.Source), string(filepath.Separator))

		return filepath.Join(sc.Destination, rel)
	}

	for _, parent := range sc.MissingParents {
		p.Steps = append(p.Steps, &DirectoryCreate{Path: parent})
	}

	files := make([]*index.Entry, 0, len(idx.Entries))

	for _, e := range idx.Entries {
		if e.Metadata.IsDir {
			p.Steps = append(p.Steps, &DirectoryCreate{
				Path:       destFor(e.Path),
				SourcePath: e.Path,
				Metadata:   e.Metadata,
			})
			p.SourceDirs = append(p.SourceDirs, e.Path)

			continue
		}
		files = append(files, e)
	}

	slices.SortFunc(files, func(a, b *index.Entry) int {
		return strings.Compare(a.Path, b.Path)
	})

	planned := make(map[schema.InodeKey]struct{})

	for _, e := range files {
		md := e.Metadata
		key := md.Key()

		group, grouped := idx.Group(key)
		if !md.IsRegular || !grouped {
			p.addPrimary(e.Path, destFor(e.Path), md)

			continue
		}

		if _, done := planned[key]; done {
			continue
		}
		planned[key] = struct{}{}

		p.addGroup(group, sc, destFor)
	}

	return p, nil
}

// addPrimary appends a [PrimaryMove] for an element.
func (p *Plan) addPrimary(source string, dest string, md *schema.Metadata) *PrimaryMove {
	step := &PrimaryMove{
		Key:        md.Key(),
		SourcePath: source,
		DestPath:   dest,
		Metadata:   md,
	}
	p.Steps = append(p.Steps, step)

	if !p.SameFilesystem && md.IsRegular {
		p.EstimatedBytes += md.Size
	}

	return step
}

// addGroup appends the steps for an [index.InodeGroup] that has at least one
// path inside the source. The lexicographically smallest inside path becomes
// the [PrimaryMove], all other paths are relinked to its destination.
func (p *Plan) addGroup(group *index.InodeGroup, sc *scope.Scope, destFor func(string) string) {
	var inside, outside []string

	for _, path := range group.Paths {
		if filesystem.IsWithin(sc.Source, path) {
			inside = append(inside, path)
		} else {
			outside = append(outside, path)
		}
	}

	primary := p.addPrimary(inside[0], destFor(inside[0]), group.Metadata)

	var last *RelinkMove
	for _, path := range inside[1:] {
		last = &RelinkMove{
			Key:             group.Key,
			SourcePath:      path,
			DestPath:        destFor(path),
			PrimaryDestPath: primary.DestPath,
		}
		p.Steps = append(p.Steps, last)
	}

	// A copy leaves the source inode behind, its last source link goes with
	// the last relink of the group.
	if last != nil && !p.SameFilesystem {
		primary.KeepSource = true
		last.PrimarySourcePath = primary.SourcePath
	}

	for _, path := range outside {
		if p.SameFilesystem {
			p.Steps = append(p.Steps, &RelinkMove{
				Key:             group.Key,
				SourcePath:      path,
				DestPath:        path,
				PrimaryDestPath: primary.DestPath,
			})

			continue
		}

		p.warn(path, fmt.Errorf("%w: %s", ErrLinkAcrossFilesystems, primary.DestPath))
	}

	if unseen := group.UnseenLinks(); unseen > 0 && !p.SameFilesystem {
		p.warn(primary.SourcePath, fmt.Errorf("%w: %d link(s) of the inode", ErrLinksOutsideScope, unseen))
	}
}

// warn records a [schema.PartialScopeLoss] warning.
func (p *Plan) warn(path string, err error) {
	slog.Warn("Hardlink cannot be preserved (will become an independent file)",
		"path", path,
		"err", err,
	)

	p.Warnings = append(p.Warnings, schema.Warning{
		Kind: schema.PartialScopeLoss,
		Path: path,
		Err:  err,
	})
}
