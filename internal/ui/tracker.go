package ui

import (
	"sync"
	"time"

	"github.com/desertwitch/smartmove/internal/io"
)

// Snapshot is the state of a move's progress at a point in time.
type Snapshot struct {
	HasStarted  bool
	HasFinished bool
	StartTime   time.Time
	FinishTime  time.Time

	TotalItems     int
	ProcessedItems int
	SuccessItems   int
	SkippedItems   int
	FailedItems    int
	CurrentPath    string

	ProgressPct float64
	ItemsPerSec float64
	BytesCopied uint64
	BytesPerSec float64
	ETA         time.Time
	TimeLeft    time.Duration
}

// Tracker is an [io.ProgressReporter] that aggregates the [io.Progress] of a
// move into a [Snapshot], for consumption by the presentation layers. It is
// safe for concurrent use.
type Tracker struct {
	sync.RWMutex
	now func() time.Time

	startTime  time.Time
	finishTime time.Time
	started    bool
	finished   bool

	last    io.Progress
	success int
	skipped int
	failed  int
}

// NewTracker returns a pointer to a new [Tracker].
func NewTracker() *Tracker {
	return &Tracker{
		now: time.Now,
	}
}

// Report records an [io.Progress].
func (t *Tracker) Report(p io.Progress) {
	t.Lock()
	defer t.Unlock()

	if !t.started {
		t.started = true
		t.startTime = t.now()
	}

	t.last = p

	switch p.Outcome {
	case io.OutcomeSuccess:
		t.success++
	case io.OutcomeSkipped:
		t.skipped++
	case io.OutcomeFailed:
		t.failed++
	}

	if p.TotalSteps > 0 && p.CompletedSteps >= p.TotalSteps {
		t.finished = true
		t.finishTime = p.Time
	}
}

// Start marks the start of the move, before any steps are reported.
func (t *Tracker) Start() {
	t.Lock()
	defer t.Unlock()

	if !t.started {
		t.started = true
		t.startTime = t.now()
	}
}

// Finish marks the move as finished, also when steps remain unprocessed.
func (t *Tracker) Finish() {
	t.Lock()
	defer t.Unlock()

	if !t.finished {
		t.finished = true
		t.finishTime = t.now()
	}
}

// Snapshot returns the current [Snapshot].
func (t *Tracker) Snapshot() Snapshot {
	t.RLock()
	defer t.RUnlock()

	s := Snapshot{
		HasStarted:     t.started,
		HasFinished:    t.finished,
		StartTime:      t.startTime,
		FinishTime:     t.finishTime,
		TotalItems:     t.last.TotalSteps,
		ProcessedItems: t.last.CompletedSteps,
		SuccessItems:   t.success,
		SkippedItems:   t.skipped,
		FailedItems:    t.failed,
		CurrentPath:    t.last.CurrentPath,
		BytesCopied:    t.last.BytesCopied,
	}

	if s.TotalItems > 0 {
		s.ProgressPct = float64(s.ProcessedItems) / float64(s.TotalItems) * 100 //nolint:mnd
		s.ProgressPct = max(float64(0), min(s.ProgressPct, float64(100)))     //nolint:mnd
	}

	if !t.started || s.ProcessedItems == 0 {
		return s
	}

	end := t.now()
	if t.finished {
		end = t.finishTime
	}

	elapsed := max(end.Sub(t.startTime).Seconds(), 1)
	s.ItemsPerSec = float64(s.ProcessedItems) / elapsed
	s.BytesPerSec = float64(s.BytesCopied) / elapsed

	if !t.finished && s.ProcessedItems < s.TotalItems && s.ItemsPerSec > 0 {
		remaining := float64(s.TotalItems - s.ProcessedItems)
		s.TimeLeft = time.Duration(remaining / s.ItemsPerSec * float64(time.Second))
		s.ETA = end.Add(s.TimeLeft)
	}

	return s
}
