// Package validation implements the checks a [plan.Plan] has to pass before it
// is executed. The checks re-establish the structural and ordering invariants
// of the planner, so that a violation is caught before any mutation.
package validation

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/desertwitch/smartmove/internal/filesystem"
	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
)

// validator holds the state of one [ValidatePlan] call.
type validator struct {
	plan      *plan.Plan
	primaries map[schema.InodeKey]string
	kept      map[string]struct{}
	dirs      map[string]struct{}
	targets   map[string]struct{}
}

// ValidatePlan validates a [plan.Plan], returning the first violation found.
func ValidatePlan(p *plan.Plan) error {
	if p == nil {
		return fmt.Errorf("(validation) %w", ErrNoPlan)
	}

	if !filepath.IsAbs(p.Source) {
		return fmt.Errorf("(validation) %w: %s", ErrSourcePathRelative, p.Source)
	}

	if !filepath.IsAbs(p.Destination) {
		return fmt.Errorf("(validation) %w: %s", ErrDestPathRelative, p.Destination)
	}

	v := &validator{
		plan:      p,
		primaries: make(map[schema.InodeKey]string),
		kept:      make(map[string]struct{}),
		dirs:      make(map[string]struct{}),
		targets:   make(map[string]struct{}),
	}

	for i, step := range p.Steps {
		var err error

		switch s := step.(type) {
		case *plan.DirectoryCreate:
			err = v.validateDirectory(s)
		case *plan.PrimaryMove:
			err = v.validatePrimary(s)
		case *plan.RelinkMove:
			err = v.validateRelink(s)
		default:
			err = fmt.Errorf("%w: %T", ErrUnknownStep, step)
		}

		if err != nil {
			return fmt.Errorf("(validation) step %d (%s): %w", i+1, step, err)
		}
	}

	if len(v.kept) > 0 {
		return fmt.Errorf("(validation) %w: %s", ErrKeptSourceNotReleased, slices.Sorted(maps.Keys(v.kept))[0])
	}

	return nil
}

func (v *validator) validateDirectory(s *plan.DirectoryCreate) error {
	if !filepath.IsAbs(s.Path) {
		return ErrDestPathRelative
	}

	if !s.IsParent() {
		if s.Metadata == nil {
			return ErrNoMetadata
		}
		if !s.Metadata.IsDir {
			return ErrRelatedDirNotDir
		}
		if !filesystem.IsWithin(v.plan.Source, s.SourcePath) {
			return ErrSourceMismatch
		}
		if !filesystem.IsWithin(v.plan.Destination, s.Path) {
			return ErrDestMismatch
		}
		if err := v.validateParent(s.Path); err != nil {
			return err
		}
	}

	if err := v.claim(s.Path); err != nil {
		return err
	}
	v.dirs[s.Path] = struct{}{}

	return nil
}

func (v *validator) validatePrimary(s *plan.PrimaryMove) error {
	if s.Metadata == nil {
		return ErrNoMetadata
	}

	if !filepath.IsAbs(s.SourcePath) {
		return ErrSourcePathRelative
	}

	if !filepath.IsAbs(s.DestPath) {
		return ErrDestPathRelative
	}

	if !filesystem.IsWithin(v.plan.Source, s.SourcePath) {
		return ErrSourceMismatch
	}

	if !filesystem.IsWithin(v.plan.Destination, s.DestPath) {
		return ErrDestMismatch
	}

	if err := v.validateParent(s.DestPath); err != nil {
		return err
	}

	if s.Metadata.IsRegular {
		if _, exists := v.primaries[s.Key]; exists {
			return ErrDuplicatePrimary
		}
		v.primaries[s.Key] = s.DestPath
	}

	if s.KeepSource {
		v.kept[s.SourcePath] = struct{}{}
	}

	return v.claim(s.DestPath)
}

func (v *validator) validateRelink(s *plan.RelinkMove) error {
	if !filepath.IsAbs(s.SourcePath) || !filepath.IsAbs(s.PrimaryDestPath) {
		return ErrSourcePathRelative
	}

	if !filepath.IsAbs(s.DestPath) {
		return ErrDestPathRelative
	}

	primaryDest, exists := v.primaries[s.Key]
	if !exists || primaryDest != s.PrimaryDestPath {
		return fmt.Errorf("%w: %s", schema.ErrOrderingViolation, s.PrimaryDestPath)
	}

	if s.PrimarySourcePath != "" {
		if _, exists := v.kept[s.PrimarySourcePath]; !exists || s.IsOutside() {
			return fmt.Errorf("%w: %s", ErrReleasedSourceNotKept, s.PrimarySourcePath)
		}
		delete(v.kept, s.PrimarySourcePath)
	}

	if s.IsOutside() {
		if !v.plan.SameFilesystem {
			return ErrOutsideRelinkAcrossFilesystems
		}
		if filesystem.IsWithin(v.plan.Source, s.SourcePath) {
			return ErrSourceMismatch
		}

		return nil
	}

	if !filesystem.IsWithin(v.plan.Source, s.SourcePath) {
		return ErrSourceMismatch
	}

	if !filesystem.IsWithin(v.plan.Destination, s.DestPath) {
		return ErrDestMismatch
	}

	if err := v.validateParent(s.DestPath); err != nil {
		return err
	}

	return v.claim(s.DestPath)
}

// validateParent checks that the parent of a path inside the destination tree
// is created by an earlier step.
func (v *validator) validateParent(path string) error {
	if path == v.plan.Destination {
		return nil
	}

	if _, exists := v.dirs[filepath.Dir(path)]; !exists {
		return fmt.Errorf("%w: %s", ErrParentNotPlanned, filepath.Dir(path))
	}

	return nil
}

// claim records a path as produced, failing if an earlier step produced it.
func (v *validator) claim(path string) error {
	if _, exists := v.targets[path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDestination, path)
	}
	v.targets[path] = struct{}{}

	return nil
}
