package io

import (
	"time"

	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
)

// Outcome is the result of a single step.
type Outcome int

const (
	// OutcomeSuccess is a step that was carried out.
	OutcomeSuccess Outcome = iota + 1

	// OutcomeSkipped is a step whose result was already at the destination.
	OutcomeSkipped

	// OutcomeFailed is a step that failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped (already at destination)"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepResult is the [Outcome] of a [plan.Step], with the reason of a failure.
type StepResult struct {
	Step    plan.Step
	Outcome Outcome
	Err     error
}

// Progress is the event that is emitted after every step.
type Progress struct {
	CompletedSteps int
	TotalSteps     int
	CurrentPath    string
	BytesCopied    uint64
	Outcome        Outcome
	Time           time.Time
}

// ProgressReporter receives a [Progress] after every step. Throttling the
// presentation of the events is left to the implementation.
type ProgressReporter interface {
	Report(p Progress)
}

// Report is the aggregated result of executing a [plan.Plan]. For a dry run
// the operation counters describe what would have been done, while FilesMoved
// and BytesCopied remain zero.
type Report struct {
	// DryRun describes if nothing was mutated.
	DryRun bool

	// FilesMoved is the amount of files and symbolic links relocated.
	FilesMoved int

	// HardlinksPreserved is the amount of links kept on a relocated inode.
	HardlinksPreserved int

	// BytesCopied is the amount of bytes copied across filesystems.
	BytesCopied uint64

	// Renames is the amount of rename operations.
	Renames int

	// Copies is the amount of copy operations.
	Copies int

	// Links is the amount of link operations.
	Links int

	// DirectoriesCreated is the amount of directories created.
	DirectoriesCreated int

	// DirectoriesRemoved is the amount of emptied source directories removed.
	DirectoriesRemoved int

	// Skipped is the amount of steps already done at the destination.
	Skipped int

	// CompletedSteps is the amount of steps that were carried out.
	CompletedSteps int

	// TotalSteps is the amount of steps of the plan.
	TotalSteps int

	// Results are the results of all carried out steps, in order.
	Results []StepResult

	// Warnings are all non-fatal problems of the run.
	Warnings []schema.Warning

	// Err is the error that aborted the run.
	Err error

	// Started and Finished are the times the run started and finished.
	Started  time.Time
	Finished time.Time
}

// HasWarnings returns whether the run produced warnings.
func (r *Report) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// AddWarnings adds warnings that occurred outside of the execution.
func (r *Report) AddWarnings(warnings ...schema.Warning) {
	r.Warnings = append(r.Warnings, warnings...)
}

// mergeReports merges the counters and collections of a source [Report] into
// a target [Report].
func mergeReports(target, source *Report) {
	if target == nil || source == nil {
		return
	}

	target.FilesMoved += source.FilesMoved
	target.HardlinksPreserved += source.HardlinksPreserved
	target.BytesCopied += source.BytesCopied
	target.Renames += source.Renames
	target.Copies += source.Copies
	target.Links += source.Links
	target.DirectoriesCreated += source.DirectoriesCreated
	target.DirectoriesRemoved += source.DirectoriesRemoved
	target.Skipped += source.Skipped
	target.Warnings = append(target.Warnings, source.Warnings...)
}
