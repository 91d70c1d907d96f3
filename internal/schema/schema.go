// Package schema provides the principal schematics for all other packages. It
// defines the move request, inode identities and filesystem metadata, the
// error and warning kinds shared across the engine and implementations for
// handling (Unix-based) operating system syscalls. The package serves as a
// foundational layer for filesystem interactions throughout the codebase.
package schema
