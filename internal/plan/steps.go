package plan

import (
	"fmt"

	"github.com/desertwitch/smartmove/internal/schema"
)

// Step is a single operation of a [Plan]. The set of steps is closed, a Step
// is always one of [*PrimaryMove], [*RelinkMove] or [*DirectoryCreate].
type Step interface {
	fmt.Stringer

	// Target returns the path the step produces.
	Target() string

	isStep()
}

// PrimaryMove physically relocates the data of an inode group or of an
// ordinary file, directory entry or symbolic link.
//
// With KeepSource the source link outlives the step and is removed by the last
// [RelinkMove] of the group. Until then the remaining source links still share
// an inode with it, so an interrupted group is planned as one group again.
type PrimaryMove struct {
	Key        schema.InodeKey
	SourcePath string
	DestPath   string
	Metadata   *schema.Metadata
	KeepSource bool
}

// RelinkMove recreates a hardlink at DestPath to the inode located at
// PrimaryDestPath, after the respective [PrimaryMove] has completed. A
// RelinkMove with equal SourcePath and DestPath is a link outside of the
// source that keeps referencing the relocated inode, it is only accounted for.
// PrimarySourcePath is only set on the last RelinkMove of a group whose
// [PrimaryMove] kept its source link.
type RelinkMove struct {
	Key               schema.InodeKey
	SourcePath        string
	DestPath          string
	PrimaryDestPath   string
	PrimarySourcePath string
}

// DirectoryCreate ensures a directory exists at the destination. SourcePath
// and Metadata are empty for missing parents of the destination.
type DirectoryCreate struct {
	Path       string
	SourcePath string
	Metadata   *schema.Metadata
}

func (*PrimaryMove) isStep()     {}
func (*RelinkMove) isStep()      {}
func (*DirectoryCreate) isStep() {}

// Target returns the destination path.
func (s *PrimaryMove) Target() string { return s.DestPath }

// Target returns the destination path.
func (s *RelinkMove) Target() string { return s.DestPath }

// Target returns the directory path.
func (s *DirectoryCreate) Target() string { return s.Path }

// IsOutside returns whether the link is located outside of the source.
func (s *RelinkMove) IsOutside() bool {
	return s.SourcePath == s.DestPath
}

// IsParent returns whether the directory is a missing parent of the
// destination rather than a directory of the source.
func (s *DirectoryCreate) IsParent() bool {
	return s.SourcePath == ""
}

func (s *PrimaryMove) String() string {
	return fmt.Sprintf("move %s -> %s", s.SourcePath, s.DestPath)
}

func (s *RelinkMove) String() string {
	if s.IsOutside() {
		return fmt.Sprintf("keep %s (linked to %s)", s.DestPath, s.PrimaryDestPath)
	}

	return fmt.Sprintf("relink %s -> %s (linked to %s)", s.SourcePath, s.DestPath, s.PrimaryDestPath)
}

func (s *DirectoryCreate) String() string {
	return fmt.Sprintf("mkdir %s", s.Path)
}
