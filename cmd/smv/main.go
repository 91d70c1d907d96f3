// smv moves files and directories like mv, while preserving the hardlinks
// that connect them, also across filesystems.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/desertwitch/smartmove/internal/configuration"
	"github.com/desertwitch/smartmove/internal/io"
	"github.com/desertwitch/smartmove/internal/mover"
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/desertwitch/smartmove/internal/ui"
	"github.com/spf13/cobra"
)

const (
	stackTraceBufMax = 1 << 24
)

// Exit codes of the program.
const (
	exitSuccess  = 0
	exitFatal    = 1
	exitWarnings = 2
)

//nolint:gochecknoglobals
var Version = "dev"

var errDebugWithoutVerbose = errors.New("--debug requires -v")

// options are the command-line flags.
type options struct {
	createParents bool
	dryRun        bool
	comprehensive bool
	forceCopy     bool
	verify        bool
	verbose       bool
	debug         bool
	quiet         bool
	noProgress    bool
	ui            bool
	showVersion   bool

	scanRoots    []string
	scanExcludes []string
	minFree      bytesValue

	configFile string
	cpuProfile string
}

func newTerminalHandler(level slog.Level) slog.Handler {
	return newTintHandler(os.Stderr, level, !ui.IsTerminal(os.Stderr))
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		slog.Warn("Received signal, stopping after the current step...")
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

func newRootCommand(opts *options, exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smv [flags] SOURCE DEST",
		Short: "Move files and directories while preserving hardlinks",
		Long: "smv moves SOURCE to DEST like mv. Hardlinks between the moved elements are kept,\n" +
			"also when DEST is located on another filesystem. Hardlinks to elements outside of\n" +
			"SOURCE are found by scanning the filesystem of SOURCE (or all filesystems with\n" +
			"--comprehensive) and are relinked to the moved elements where possible.",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}

			return cobra.ExactArgs(2)(cmd, args) //nolint:mnd
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "smv %s\n", Version)

				return nil
			}

			if opts.debug && !opts.verbose {
				return errDebugWithoutVerbose
			}

			*exitCode = execute(cmd, opts, args[0], args[1])

			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.createParents, "parents", "p", false, "create missing parent directories of DEST")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "show what would be done without changing anything")
	flags.BoolVar(&opts.comprehensive, "comprehensive", false, "scan all mounted filesystems for hardlinks")
	flags.StringArrayVar(&opts.scanRoots, "scan-root", nil, "scan only DIR for hardlinks (repeatable)")
	flags.StringArrayVar(&opts.scanExcludes, "exclude", nil, "leave paths matching GLOB out of the scan (repeatable)")
	flags.BoolVar(&opts.forceCopy, "copy", false, "copy and relink also within the same filesystem")
	flags.BoolVar(&opts.verify, "verify", false, "verify copies with BLAKE3 checksums")
	flags.Var(&opts.minFree, "min-free", "minimum free space to keep on DEST (e.g. 10GB)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "show informational logs")
	flags.BoolVar(&opts.debug, "debug", false, "show debug logs (requires -v)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "show errors only")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "do not show progress")
	flags.BoolVar(&opts.ui, "ui", false, "show progress in a full-screen user interface")
	flags.StringVar(&opts.configFile, "config", configuration.DefaultConfigFile, "read defaults from FILE")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to FILE")
	flags.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	return cmd
}

// applyConfigDefaults applies the configuration to all flags that were not
// explicitly given on the command-line.
func applyConfigDefaults(cmd *cobra.Command, config *configuration.AppConfiguration, opts *options) {
	flags := cmd.Flags()

	if !flags.Changed("comprehensive") {
		opts.comprehensive = config.Comprehensive
	}
	if !flags.Changed("verify") {
		opts.verify = config.Verify
	}
	if !flags.Changed("no-progress") {
		opts.noProgress = config.NoProgress
	}
	if !flags.Changed("ui") {
		opts.ui = config.UI
	}
	if !flags.Changed("min-free") {
		opts.minFree = bytesValue(config.MinFreeSpace)
	}
	if !flags.Changed("exclude") {
		opts.scanExcludes = config.ScanExcludes
	}
}

func execute(cmd *cobra.Command, opts *options, source string, dest string) int {
	level := logLevel(opts.verbose, opts.debug, opts.quiet)

	logManager := NewSlogManager()
	logManager.AddHandler(logHandlerTerminal, newTerminalHandler(level))
	slog.SetDefault(slog.New(logManager))

	config, err := configuration.NewHandler(&configuration.GodotenvProvider{}).
		Load(opts.configFile, !cmd.Flags().Changed("config"))
	if err != nil {
		slog.Error("Failed to load the configuration.", "err", err)

		return exitFatal
	}
	applyConfigDefaults(cmd, config, opts)

	if os.Geteuid() != 0 {
		slog.Warn("Not running as root: ownership of moved elements may not be preserved (run with sudo).")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	setupSignalHandlers(cancel)

	cpuProfiler := NewCPUProfiler(ctx, opts.cpuProfile)
	defer cpuProfiler.Stop()

	req := schema.MoveRequest{
		Source:        source,
		Destination:   dest,
		CreateParents: opts.createParents,
		Comprehensive: opts.comprehensive,
		DryRun:        opts.dryRun,
		ForceCopy:     opts.forceCopy,
		Verify:        opts.verify,
		ScanRoots:     opts.scanRoots,
		ScanExcludes:  opts.scanExcludes,
		MinFreeSpace:  uint64(opts.minFree),
	}

	showProgress := !opts.noProgress && !opts.quiet && ui.IsTerminal(os.Stdout)

	var reporter io.ProgressReporter
	if showProgress && !opts.ui {
		reporter = ui.NewPlainReporter(os.Stdout, ui.SupportsUnicode(os.Stdout, os.Getenv))
	}

	app := NewApp(mover.NewDefaultHandler(), reporter, logManager, level)
	if showProgress && opts.ui {
		tracker := ui.NewTracker()
		app.WithUI(tracker, ui.NewHandler(ctx, cancel, tracker))
	}

	report, err := app.Launch(ctx, req)
	if err != nil {
		slog.Error("Move failed.", "err", err)
	}

	if !opts.quiet || err != nil {
		printSummary(cmd.OutOrStdout(), report)
	}

	return exitCodeFor(report, err)
}

// exitCodeFor returns the exit code for the outcome of a move.
func exitCodeFor(report *io.Report, err error) int {
	if err != nil {
		return exitFatal
	}

	if report != nil && report.HasWarnings() {
		return exitWarnings
	}

	return exitSuccess
}

func main() {
	exitCode := exitSuccess

	cmd := newRootCommand(&options{}, &exitCode)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "smv: %v\n", err)
		fmt.Fprintln(os.Stderr, "Try 'smv --help' for more information.")

		os.Exit(exitFatal)
	}

	os.Exit(exitCode)
}
