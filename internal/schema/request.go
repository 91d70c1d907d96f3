package schema

// MoveRequest is the principal configuration for one invocation of the move
// engine. It is constant for the duration of that invocation.
type MoveRequest struct {
	// Source is the file or directory that is to be moved.
	Source string

	// Destination is where the source is to be moved to. A trailing slash or an
	// already existing directory means the source is moved into it.
	Destination string

	// CreateParents allows for missing parents of the destination to be created.
	CreateParents bool

	// Comprehensive extends the scan scope to all mounted filesystems.
	Comprehensive bool

	// DryRun validates and reports all steps without mutating anything.
	DryRun bool

	// ForceCopy uses the copy-then-relink strategy also on the same filesystem.
	ForceCopy bool

	// Verify hashes source and destination contents during copies.
	Verify bool

	// ScanRoots overrides the scan scope with explicit directories.
	ScanRoots []string

	// ScanExcludes are glob patterns of paths to be left out of the scan.
	ScanExcludes []string

	// MinFreeSpace is the amount of bytes that needs to remain free on the
	// destination filesystem for cross-filesystem moves.
	MinFreeSpace uint64
}
