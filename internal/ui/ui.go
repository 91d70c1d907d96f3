// Package ui implements the progress presentation of a move: a command-line
// user interface using [tea] and a plain single-line progress bar.
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	tracker *Tracker
	program *tea.Program

	LogWriter *TeaLogWriter

	Ready  atomic.Bool
	Failed atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler], presenting
// the progress a [Tracker] receives. The cancel function is called when the
// user requests to abort the move.
func NewHandler(ctx context.Context, cancel context.CancelFunc, tracker *Tracker) *Handler {
	handler := &Handler{
		tracker: tracker,
	}

	model := NewTeaModel(handler, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]).
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}

// Quit stops the command-line user interface.
func (uiHandler *Handler) Quit() {
	uiHandler.program.Quit()
}
