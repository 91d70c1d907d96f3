package schema

import "golang.org/x/sys/unix"

// InodeKey is the composite identity of a physical file. Two paths with an
// equal [InodeKey] are the same file, but keys are only comparable within a
// single scan, as device numbers are not portable across remounts.
type InodeKey struct {
	Dev uint64
	Ino uint64
}

// Metadata is the filesystem metadata of an element, as established with an
// lstat call. It is meant to be passed by reference (pointer).
type Metadata struct {
	Device     uint64
	Inode      uint64
	Links      uint64
	Perms      uint32
	UID        uint32
	GID        uint32
	AccessedAt unix.Timespec
	ModifiedAt unix.Timespec
	Size       uint64
	IsDir      bool
	IsRegular  bool
	IsSymlink  bool
	SymlinkTo  string
}

// Key returns the [InodeKey] of the element.
func (m *Metadata) Key() InodeKey {
	return InodeKey{Dev: m.Device, Ino: m.Inode}
}

// IsSupported returns whether the element is of a type that can be moved
// (regular file, directory or symbolic link).
func (m *Metadata) IsSupported() bool {
	return m.IsRegular || m.IsDir || m.IsSymlink
}

// SameAttributes compares size, modification time, permissions and ownership
// of two elements. It is used to decide whether an element already exists at
// the destination. Moves keep the modification time, so an unrelated file of
// equal size is told apart by it.
func (m *Metadata) SameAttributes(o *Metadata) bool {
	if m == nil || o == nil {
		return false
	}

	return m.Size == o.Size &&
		m.ModifiedAt == o.ModifiedAt &&
		m.Perms == o.Perms &&
		m.UID == o.UID &&
		m.GID == o.GID &&
		m.IsRegular == o.IsRegular &&
		m.IsSymlink == o.IsSymlink &&
		m.SymlinkTo == o.SymlinkTo
}
