// Package io implements the move executor. It carries out a [plan.Plan] step
// by step, renaming within a filesystem and copying via temporary files across
// filesystems, relinks hardlinks, recreates directories with their ownership,
// permissions and timestamps and finally cleans up the source tree.
package io

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/desertwitch/smartmove/internal/filesystem"
	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
	"golang.org/x/sys/unix"
)

// fsProvider defines filesystem methods needed to execute a plan.
type fsProvider interface {
	Exists(path string) (bool, error)
	GetMetadata(path string) (*schema.Metadata, error)
	HasEnoughFreeSpace(path string, minFree uint64, size uint64) (bool, filesystem.DiskStats, error)
	IsEmptyFolder(path string) (bool, error)
	NearestExisting(path string) (string, error)
}

// osProvider defines operating system methods needed to execute a plan.
type osProvider interface {
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
}

// unixProvider defines Unix operating system methods needed to execute a plan.
type unixProvider interface {
	Access(path string, mode uint32) error
	Chmod(path string, mode uint32) error
	Chown(path string, uid, gid int) error
	Lchown(path string, uid, gid int) error
	Link(oldpath, newpath string) error
	LutimesNano(path string, times []unix.Timespec) error
	Mkdir(path string, mode uint32) error
	Symlink(oldpath, newpath string) error
	UtimesNano(path string, times []unix.Timespec) error
}

// Owner is a numeric user and group to give created elements to.
type Owner struct {
	UID int
	GID int
}

// Options are the options for executing a [plan.Plan].
type Options struct {
	// DryRun validates all steps without mutating anything.
	DryRun bool

	// Verify hashes the source and the destination of every copy.
	Verify bool

	// MinFreeSpace is the amount of bytes that needs to remain free on the
	// destination filesystem of a cross-filesystem move.
	MinFreeSpace uint64

	// RemoveSourceRoot removes the source directory itself once it is empty.
	RemoveSourceRoot bool

	// ParentOwner is given the missing parents of the destination, when set.
	ParentOwner *Owner

	// Reporter receives a [Progress] after every step, when set.
	Reporter ProgressReporter
}

// Handler is the principal implementation for the move executor.
type Handler struct {
	fsHandler   fsProvider
	osHandler   osProvider
	unixHandler unixProvider
	isRoot      bool
}

// NewHandler returns a pointer to a new move executor [Handler].
func NewHandler(fsHandler fsProvider, osHandler osProvider, unixHandler unixProvider) *Handler {
	return &Handler{
		fsHandler:   fsHandler,
		osHandler:   osHandler,
		unixHandler: unixHandler,
		isRoot:      os.Geteuid() == 0,
	}
}

// Execute carries out all steps of a [plan.Plan] in order, stopping at the
// first step that fails. A cancellation of the context is honored between
// steps only. The returned [Report] is never nil, its Err field holds the
// error that aborted the run.
func (i *Handler) Execute(ctx context.Context, p *plan.Plan, opts Options) *Report {
	r := newRun(i, p, opts)

	if err := r.checkFreeSpace(); err != nil {
		if !opts.DryRun {
			r.report.Err = err

			return r.report
		}
		r.warn(schema.DryRunRisk, p.Destination, err)
	}

	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			r.report.Err = schema.NewPathError(schema.ErrCanceled, "execute", step.Target(), err)

			break
		}

		result := r.executeStep(step)
		r.record(result)

		if result.Outcome == OutcomeFailed && !opts.DryRun {
			r.report.Err = result.Err

			break
		}
	}

	if r.report.Err != nil {
		r.cleanAfterFailure()

		slog.Error("Move was aborted, completed steps were kept",
			"completed", r.report.CompletedSteps,
			"total", r.report.TotalSteps,
			"err", r.report.Err,
		)

		return r.report
	}

	if !opts.DryRun {
		r.ensureTimestamps()
		r.cleanSource()
	}

	r.report.Finished = time.Now()

	return r.report
}
