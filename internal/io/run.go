package io

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
)

// run holds the state of one [Handler.Execute] call.
type run struct {
	*Handler
	plan   *plan.Plan
	opts   Options
	report *Report

	// step collects the counters and warnings of the current step.
	step *Report

	// completed are the destinations of completed primary moves.
	completed map[string]schema.InodeKey

	// tmps are the temporary files of in-flight copies.
	tmps map[string]struct{}

	// stepDirs are the directories created by the current step.
	stepDirs []string

	// createdDirs are all directories created from source directories.
	createdDirs []*plan.DirectoryCreate

	// virtual are the paths a dry run would have created (true) or removed
	// (false).
	virtual map[string]bool
}

func newRun(h *Handler, p *plan.Plan, opts Options) *run {
	return &run{
		Handler: h,
		plan:    p,
		opts:    opts,
		report: &Report{
			DryRun:     opts.DryRun,
			TotalSteps: len(p.Steps),
			Results:    make([]StepResult, 0, len(p.Steps)),
			Started:    time.Now(),
		},
		completed: make(map[string]schema.InodeKey),
		tmps:      make(map[string]struct{}),
		virtual:   make(map[string]bool),
	}
}

// executeStep dispatches a [plan.Step] to its implementation.
func (r *run) executeStep(step plan.Step) StepResult {
	r.step = &Report{}
	r.stepDirs = nil

	var (
		outcome Outcome
		err     error
	)

	switch s := step.(type) {
	case *plan.DirectoryCreate:
		if r.opts.DryRun {
			outcome, err = r.dryDirectory(s)
		} else {
			outcome, err = r.createDirectory(s)
		}

	case *plan.PrimaryMove:
		if r.opts.DryRun {
			outcome, err = r.dryPrimary(s)
		} else {
			outcome, err = r.movePrimary(s)
		}

	case *plan.RelinkMove:
		if r.opts.DryRun {
			outcome, err = r.dryRelink(s)
		} else {
			outcome, err = r.relink(s)
		}

	default:
		outcome, err = OutcomeFailed, fmt.Errorf("%w: %T", ErrUnknownStep, step)
	}

	if err != nil {
		outcome = OutcomeFailed

		var pathErr *schema.PathError
		if !errors.As(err, &pathErr) {
			err = schema.NewPathError(schema.ErrAtomicRename, "execute", step.Target(), err)
		}

		if r.opts.DryRun {
			r.warn(schema.DryRunRisk, step.Target(), err)
		}
	}

	if outcome == OutcomeSkipped {
		r.step.Skipped++
	}

	return StepResult{Step: step, Outcome: outcome, Err: err}
}

// record adds a [StepResult] to the [Report] and emits the [Progress].
func (r *run) record(result StepResult) {
	mergeReports(r.report, r.step)
	r.step = nil

	r.report.Results = append(r.report.Results, result)
	r.report.CompletedSteps++

	switch result.Outcome {
	case OutcomeFailed:
		if !r.opts.DryRun {
			slog.Error("Failure processing step",
				"step", result.Step.String(),
				"err", result.Err,
			)
		}
	case OutcomeSkipped:
		slog.Info("Skipped (already at destination):", "path", result.Step.Target())
	default:
		slog.Info("Processed:", "step", result.Step.String())
	}

	if r.opts.Reporter != nil {
		r.opts.Reporter.Report(Progress{
			CompletedSteps: r.report.CompletedSteps,
			TotalSteps:     r.report.TotalSteps,
			CurrentPath:    result.Step.Target(),
			BytesCopied:    r.report.BytesCopied,
			Outcome:        result.Outcome,
			Time:           time.Now(),
		})
	}
}

// warn records a [schema.Warning] for the current step.
func (r *run) warn(kind schema.WarningKind, path string, err error) {
	slog.Warn("Warning ("+kind.String()+"):",
		"path", path,
		"err", err,
	)

	target := r.step
	if target == nil {
		target = r.report
	}

	target.Warnings = append(target.Warnings, schema.Warning{
		Kind: kind,
		Path: path,
		Err:  err,
	})
}

// checkFreeSpace checks that the destination filesystem of a cross-filesystem
// move can take all data that is to be copied.
func (r *run) checkFreeSpace() error {
	if r.plan.SameFilesystem {
		return nil
	}

	path, err := r.fsHandler.NearestExisting(r.plan.Destination)
	if err != nil {
		return schema.NewPathError(schema.ErrScope, "check free space", r.plan.Destination, err)
	}

	enough, stats, err := r.fsHandler.HasEnoughFreeSpace(path, r.opts.MinFreeSpace, r.plan.EstimatedBytes)
	if err != nil {
		return schema.NewPathError(schema.ErrScope, "check free space", path, err)
	}

	if !enough {
		return schema.NewPathError(schema.ErrScope, "check free space", path,
			fmt.Errorf("%w: %d bytes needed, %d bytes free", schema.ErrNotEnoughSpace,
				max(r.plan.EstimatedBytes, r.opts.MinFreeSpace), stats.FreeSpace))
	}

	return nil
}
