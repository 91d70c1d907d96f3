package schema

import "fmt"

// WarningKind describes the kind of a [Warning].
type WarningKind int

const (
	// ScanWarning is an element that could not be read during the scan.
	ScanWarning WarningKind = iota + 1

	// PartialScopeLoss is a hardlink sibling that could not be relinked.
	PartialScopeLoss

	// DryRunRisk is an error that a real run would have failed with.
	DryRunRisk

	// OwnershipWarning is ownership that could not be preserved.
	OwnershipWarning

	// CleanupWarning is a leftover that could not be removed.
	CleanupWarning
)

var warningKindNames = [...]string{
	ScanWarning:      "scan",
	PartialScopeLoss: "partial-scope-loss",
	DryRunRisk:       "dry-run-risk",
	OwnershipWarning: "ownership",
	CleanupWarning:   "cleanup",
}

func (k WarningKind) String() string {
	if k > 0 && int(k) < len(warningKindNames) {
		return warningKindNames[k]
	}

	return "unknown"
}

// Warning is a non-fatal problem that is accumulated and surfaced in the final
// report of a run.
type Warning struct {
	Kind WarningKind
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %v", w.Kind, w.Path, w.Err)
}
