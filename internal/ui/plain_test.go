package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/desertwitch/smartmove/internal/io"
	"github.com/stretchr/testify/assert"
)

func TestPlainReporter_Report_EveryTenSteps(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewPlainReporter(&buf, false)

	for i := 1; i <= 25; i++ {
		r.Report(io.Progress{CompletedSteps: i, TotalSteps: 25, Outcome: io.OutcomeSuccess})
	}

	out := buf.String()

	assert.Equal(t, 3, strings.Count(out, "\r"), "bar should be drawn at 10, 20 and 25")
	assert.Contains(t, out, " 40% 10/25")
	assert.Contains(t, out, " 80% 20/25")
	assert.Contains(t, out, "100% 25/25")
	assert.True(t, strings.HasSuffix(out, "\n"), "completion should end the line")
}

func TestPlainReporter_Render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		unicode bool
		pct     float64
		want    string
	}{
		{"Success_ASCIIEmpty", false, 0, "[                    ]   0%"},
		{"Success_ASCIIHalf", false, 50, "[==========>         ]  50%"},
		{"Success_ASCIIFull", false, 100, "[====================] 100%"},
		{"Success_UnicodeHalf", true, 50, "[██████████░░░░░░░░░░]  50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewPlainReporter(&bytes.Buffer{}, tt.unicode)
			line := r.render(Snapshot{ProgressPct: tt.pct, ProcessedItems: 1, TotalItems: 2})

			assert.True(t, strings.HasPrefix(line, tt.want), "got %q", line)
		})
	}
}

func TestPlainReporter_Render_LargeCounts(t *testing.T) {
	t.Parallel()

	r := NewPlainReporter(&bytes.Buffer{}, false)
	line := r.render(Snapshot{ProgressPct: 10, ProcessedItems: 1500, TotalItems: 15000, ItemsPerSec: 2500, BytesCopied: 2_000_000})

	assert.Contains(t, line, "1,500/15,000")
	assert.Contains(t, line, "2.5k/s")
	assert.Contains(t, line, "2.0 MB")
}

func TestSupportsUnicode_NotTerminal(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	env := map[string]string{"LANG": "en_US.UTF-8", "TERM": "xterm"}

	assert.False(t, SupportsUnicode(f, func(k string) string { return env[k] }))
	assert.False(t, IsTerminal(f))
}
