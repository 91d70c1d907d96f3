// Package mover implements the orchestration of a move. It resolves the scope
// of a [schema.MoveRequest], indexes the hardlinks within it, plans and
// validates the steps and finally executes them.
package mover

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/desertwitch/smartmove/internal/filesystem"
	"github.com/desertwitch/smartmove/internal/index"
	"github.com/desertwitch/smartmove/internal/io"
	"github.com/desertwitch/smartmove/internal/plan"
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/desertwitch/smartmove/internal/scope"
	"github.com/desertwitch/smartmove/internal/validation"
)

// scopeProvider defines methods needed to resolve the scope of a move.
type scopeProvider interface {
	Resolve(req schema.MoveRequest) (*scope.Scope, error)
}

// indexProvider defines methods needed to index the scope of a move.
type indexProvider interface {
	Build(ctx context.Context, sc *scope.Scope, opts index.Options) (*index.Index, error)
}

// ioProvider defines methods needed to execute the plan of a move.
type ioProvider interface {
	Execute(ctx context.Context, p *plan.Plan, opts io.Options) *io.Report
}

// Handler is the principal implementation for the move orchestration.
type Handler struct {
	scopeHandler scopeProvider
	indexHandler indexProvider
	ioHandler    ioProvider
	parentOwner  *io.Owner
}

// NewHandler returns a pointer to a new move orchestration [Handler]. Missing
// parents of destinations are given to the user that invoked sudo, if any.
func NewHandler(scopeHandler scopeProvider, indexHandler indexProvider, ioHandler ioProvider) *Handler {
	return &Handler{
		scopeHandler: scopeHandler,
		indexHandler: indexHandler,
		ioHandler:    ioHandler,
		parentOwner:  sudoOwner(os.Getenv),
	}
}

// NewDefaultHandler returns a pointer to a new move orchestration [Handler]
// that operates on the real filesystem.
func NewDefaultHandler() *Handler {
	osProvider := &schema.OS{}
	unixProvider := &schema.Unix{}

	fsHandler := filesystem.NewHandler(osProvider, unixProvider)

	return NewHandler(
		scope.NewHandler(fsHandler, scope.NewMountTable(osProvider, scope.MountTableFile)),
		index.NewHandler(fsHandler, &index.FileWalker{}),
		io.NewHandler(fsHandler, osProvider, unixProvider),
	)
}

// Move relocates the source of a [schema.MoveRequest] onto its destination on
// the real filesystem. See [Handler.Move].
func Move(ctx context.Context, req schema.MoveRequest, reporter io.ProgressReporter) (*io.Report, error) {
	return NewDefaultHandler().Move(ctx, req, reporter)
}

// Move relocates the source of a [schema.MoveRequest] onto its destination,
// preserving all hardlinks within the scanned scope. The returned error is a
// [schema.PathError] of one of the error kinds. The [io.Report] is returned
// whenever the execution has started, also alongside an error.
func (m *Handler) Move(ctx context.Context, req schema.MoveRequest, reporter io.ProgressReporter) (*io.Report, error) {
	sc, err := m.scopeHandler.Resolve(req)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	slog.Info("Scope resolved:",
		"source", sc.Source,
		"destination", sc.Destination,
		"mode", sc.Mode.String(),
		"roots", sc.Roots,
		"sameFilesystem", sc.SameFilesystem,
	)

	idx, err := m.indexHandler.Build(ctx, sc, index.Options{})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, schema.NewPathError(schema.ErrCanceled, "index", sc.Source, err)
		}

		return nil, schema.NewPathError(schema.ErrScope, "index", sc.Source, err)
	}

	p, err := plan.Build(idx, sc)
	if err != nil {
		return nil, schema.NewPathError(schema.ErrScope, "plan", sc.Source, err)
	}

	if err := validation.ValidatePlan(p); err != nil {
		return nil, schema.NewPathError(schema.ErrOrderingViolation, "validate plan", sc.Source, err)
	}

	primaries, relinks, dirs := p.Count()
	slog.Info("Plan established:",
		"primaries", primaries,
		"relinks", relinks,
		"directories", dirs,
		"estimatedBytes", p.EstimatedBytes,
	)

	report := m.ioHandler.Execute(ctx, p, io.Options{
		DryRun:           req.DryRun,
		Verify:           req.Verify,
		MinFreeSpace:     req.MinFreeSpace,
		RemoveSourceRoot: p.SourceIsDir,
		ParentOwner:      m.parentOwner,
		Reporter:         reporter,
	})

	warnings := make([]schema.Warning, 0, len(idx.Warnings)+len(p.Warnings)+len(report.Warnings))
	warnings = append(warnings, idx.Warnings...)
	warnings = append(warnings, p.Warnings...)
	report.Warnings = append(warnings, report.Warnings...)

	return report, report.Err
}

// sudoOwner returns the user that invoked sudo, or nil when there is none.
func sudoOwner(getenv func(string) string) *io.Owner {
	uid, err := strconv.Atoi(getenv("SUDO_UID"))
	if err != nil || uid < 0 {
		return nil
	}

	gid, err := strconv.Atoi(getenv("SUDO_GID"))
	if err != nil || gid < 0 {
		return nil
	}

	return &io.Owner{UID: uid, GID: gid}
}
