package main

import (
	"context"
	"log/slog"
	"os"
	"runtime/pprof"
)

//nolint:containedctx
type CPUProfiler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// NewCPUProfiler starts writing a CPU profile to path, when path is not empty.
// The profile is complete once [CPUProfiler.Stop] has returned.
func NewCPUProfiler(ctx context.Context, path string) *CPUProfiler {
	cprof := &CPUProfiler{}
	cprof.ctx, cprof.cancel = context.WithCancel(ctx)
	cprof.doneChan = make(chan struct{})

	ready := make(chan struct{})
	go cprof.Profile(path, ready)
	<-ready

	return cprof
}

func (cprof *CPUProfiler) Profile(path string, ready chan<- struct{}) {
	defer close(cprof.doneChan)

	if path == "" {
		close(ready)

		return
	}

	f, err := os.Create(path)
	if err != nil {
		slog.Error("Could not create cpu profile", "path", path, "err", err)
		close(ready)

		return
	}
	defer f.Close()

	if err := pprof.StartCPUProfile(f); err != nil {
		slog.Error("Could not start cpu profile", "path", path, "err", err)
		close(ready)

		return
	}
	defer pprof.StopCPUProfile()

	close(ready)
	<-cprof.ctx.Done()
}

func (cprof *CPUProfiler) Stop() {
	cprof.cancel()
	<-cprof.doneChan
}
