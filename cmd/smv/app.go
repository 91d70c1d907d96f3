package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/desertwitch/smartmove/internal/io"
	"github.com/desertwitch/smartmove/internal/schema"
	"github.com/desertwitch/smartmove/internal/ui"
)

// uiReadyTimeout is how long a move waits for the UI before it starts anyway.
const uiReadyTimeout = 5 * time.Second

type moveProvider interface {
	Move(ctx context.Context, req schema.MoveRequest, reporter io.ProgressReporter) (*io.Report, error)
}

type App struct {
	moveHandler moveProvider
	reporter    io.ProgressReporter
	tracker     *ui.Tracker
	uiHandler   *ui.Handler
	logManager  *SlogManager
	logLevel    slog.Level
}

func NewApp(moveHandler moveProvider, reporter io.ProgressReporter, logManager *SlogManager, logLevel slog.Level) *App {
	return &App{
		moveHandler: moveHandler,
		reporter:    reporter,
		logManager:  logManager,
		logLevel:    logLevel,
	}
}

// WithUI presents the progress of the move in the command-line user
// interface, which takes over the logs while it runs.
func (app *App) WithUI(tracker *ui.Tracker, uiHandler *ui.Handler) *App {
	app.tracker = tracker
	app.reporter = tracker
	app.uiHandler = uiHandler

	return app
}

// Launch executes the move, with the user interface if one was set up.
func (app *App) Launch(ctx context.Context, req schema.MoveRequest) (*io.Report, error) {
	if app.uiHandler == nil {
		return app.move(ctx, req)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go app.startUI(&wg)

	app.waitForUI(ctx)

	report, err := app.move(ctx, req)
	app.tracker.Finish()

	if !app.uiHandler.Failed.Load() {
		app.uiHandler.Quit()
	}
	wg.Wait()

	return report, err
}

func (app *App) move(ctx context.Context, req schema.MoveRequest) (*io.Report, error) {
	report, err := app.moveHandler.Move(ctx, req, app.reporter)
	if err != nil {
		return report, fmt.Errorf("(app) %w", err)
	}

	return report, nil
}

// startUI runs the user interface, redirecting the logs into it. The terminal
// logs are restored when the user interface exits or fails.
func (app *App) startUI(wg *sync.WaitGroup) {
	defer wg.Done()

	app.logManager.AddHandler(logHandlerUI, newTintHandler(app.uiHandler.LogWriter, app.logLevel, false))
	app.logManager.RemoveHandler(logHandlerTerminal)

	defer func() {
		app.logManager.RemoveHandler(logHandlerUI)
		app.logManager.AddHandler(logHandlerTerminal, newTerminalHandler(app.logLevel))
	}()

	if err := app.uiHandler.Launch(); err != nil {
		app.logManager.AddHandler(logHandlerTerminal, newTerminalHandler(app.logLevel))
		slog.Error("UI failure: falling back to terminal.", "err", err)
	}
}

// waitForUI blocks until the user interface is ready or has failed.
func (app *App) waitForUI(ctx context.Context) {
	slog.Debug("Waiting for UI...")

	deadline := time.Now().Add(uiReadyTimeout)

	for !app.uiHandler.Ready.Load() && !app.uiHandler.Failed.Load() {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return
		}
		time.Sleep(10 * time.Millisecond) //nolint:mnd
	}
}
