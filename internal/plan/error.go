package plan

import "errors"

var (
	// ErrSourceNotIndexed occurs when the index does not begin with the
	// source, which means it was not built for the given scope.
	ErrSourceNotIndexed = errors.New("source is not indexed")

	// ErrLinkAcrossFilesystems occurs when a hardlink outside of the source is
	// located on another filesystem than the destination, as hardlinks cannot
	// span filesystems.
	ErrLinkAcrossFilesystems = errors.New("hardlink cannot span filesystems")

	// ErrLinksOutsideScope occurs when an inode has more links than the scan
	// has found, so these are outside of the scan scope.
	ErrLinksOutsideScope = errors.New("links outside of the scan scope")
)
