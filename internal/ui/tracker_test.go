package ui

import (
	"testing"
	"time"

	"github.com/desertwitch/smartmove/internal/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(start time.Time, now *time.Time) *Tracker {
	tr := NewTracker()
	tr.now = func() time.Time { return *now }
	*now = start

	return tr
}

func TestTracker_Snapshot_Empty(t *testing.T) {
	t.Parallel()

	s := NewTracker().Snapshot()

	assert.False(t, s.HasStarted)
	assert.False(t, s.HasFinished)
	assert.Zero(t, s.ProgressPct)
	assert.True(t, s.ETA.IsZero())
}

func TestTracker_Snapshot_RateAndETA(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var now time.Time
	tr := newTestTracker(start, &now)

	tr.Report(io.Progress{CompletedSteps: 1, TotalSteps: 40, Outcome: io.OutcomeSuccess, Time: start})
	now = start.Add(10 * time.Second)
	tr.Report(io.Progress{CompletedSteps: 10, TotalSteps: 40, BytesCopied: 10_000, Outcome: io.OutcomeSkipped, Time: now})

	s := tr.Snapshot()

	assert.True(t, s.HasStarted)
	assert.False(t, s.HasFinished)
	assert.InDelta(t, 25.0, s.ProgressPct, 0.001)
	assert.InDelta(t, 1.0, s.ItemsPerSec, 0.001)
	assert.InDelta(t, 1000.0, s.BytesPerSec, 0.001)
	assert.Equal(t, 30*time.Second, s.TimeLeft)
	assert.Equal(t, now.Add(30*time.Second), s.ETA)
	assert.Equal(t, 1, s.SuccessItems)
	assert.Equal(t, 1, s.SkippedItems)
}

func TestTracker_Snapshot_Finished(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var now time.Time
	tr := newTestTracker(start, &now)

	done := start.Add(5 * time.Second)
	tr.Report(io.Progress{CompletedSteps: 2, TotalSteps: 2, Outcome: io.OutcomeSuccess, Time: done})

	s := tr.Snapshot()

	require.True(t, s.HasFinished)
	assert.Equal(t, done, s.FinishTime)
	assert.InDelta(t, 100.0, s.ProgressPct, 0.001)
	assert.Zero(t, s.TimeLeft, "finished moves should have no time left")
}

func TestTracker_Finish_Aborted(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var now time.Time
	tr := newTestTracker(start, &now)

	tr.Start()
	tr.Report(io.Progress{CompletedSteps: 1, TotalSteps: 5, Outcome: io.OutcomeFailed, Time: start})
	now = start.Add(time.Second)
	tr.Finish()

	s := tr.Snapshot()

	assert.True(t, s.HasFinished)
	assert.Equal(t, now, s.FinishTime)
	assert.Equal(t, 1, s.FailedItems)
	assert.InDelta(t, 20.0, s.ProgressPct, 0.001)
}
