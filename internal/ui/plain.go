package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	smvio "github.com/desertwitch/smartmove/internal/io"
)

const (
	plainBarWidth = 20
	plainInterval = 10
)

// PlainReporter is an [smvio.ProgressReporter] that prints a single-line
// progress bar to a terminal. The line is redrawn every ten steps and once
// the last step has completed.
type PlainReporter struct {
	sync.Mutex
	out     io.Writer
	unicode bool
	tracker *Tracker
}

// NewPlainReporter returns a pointer to a new [PlainReporter] writing to out.
// The bar is drawn with block characters when unicode is set, otherwise with
// plain ASCII.
func NewPlainReporter(out io.Writer, unicode bool) *PlainReporter {
	return &PlainReporter{
		out:     out,
		unicode: unicode,
		tracker: NewTracker(),
	}
}

// Report records an [smvio.Progress] and redraws the bar when due.
func (r *PlainReporter) Report(p smvio.Progress) {
	r.tracker.Report(p)

	if p.TotalSteps == 0 {
		return
	}

	last := p.CompletedSteps >= p.TotalSteps
	if p.CompletedSteps%plainInterval != 0 && !last {
		return
	}

	r.Lock()
	defer r.Unlock()

	fmt.Fprint(r.out, "\r"+r.render(r.tracker.Snapshot()))

	if last {
		fmt.Fprintln(r.out)
	}
}

// render returns the progress line for a [Snapshot].
func (r *PlainReporter) render(s Snapshot) string {
	pct := int(s.ProgressPct)
	filled := plainBarWidth * pct / 100 //nolint:mnd

	var bar string
	if r.unicode {
		bar = strings.Repeat("█", filled) + strings.Repeat("░", plainBarWidth-filled)
	} else {
		arrow := ""
		if filled > 0 && filled < plainBarWidth {
			arrow = ">"
		}
		bar = strings.Repeat("=", filled) + arrow + strings.Repeat(" ", max(0, plainBarWidth-filled-len(arrow)))
	}

	line := fmt.Sprintf("[%s] %3d%% %s/%s", bar, pct,
		humanize.Comma(int64(s.ProcessedItems)), humanize.Comma(int64(s.TotalItems)))

	if s.ItemsPerSec > 0 {
		if s.ItemsPerSec >= 1000 { //nolint:mnd
			line += fmt.Sprintf(" %.1fk/s", s.ItemsPerSec/1000) //nolint:mnd
		} else {
			line += fmt.Sprintf(" %.0f/s", s.ItemsPerSec)
		}
	}

	if s.BytesCopied > 0 {
		line += " " + humanize.Bytes(s.BytesCopied)
	}

	if s.TimeLeft > 0 {
		secs := int(s.TimeLeft.Seconds())
		line += fmt.Sprintf(" ETA %d:%02d", secs/60, secs%60) //nolint:mnd
	}

	return line
}

// SupportsUnicode returns if a terminal file is likely to render unicode
// block characters, judging from the terminal type and the locale.
func SupportsUnicode(f *os.File, getenv func(string) string) bool {
	if !isatty.IsTerminal(f.Fd()) {
		return false
	}

	if getenv("TERM") == "dumb" {
		return false
	}

	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := strings.ToLower(getenv(key)); v != "" {
			return strings.Contains(v, "utf")
		}
	}

	return false
}

// IsTerminal returns if a file is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
