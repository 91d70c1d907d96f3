package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	smvio "github.com/desertwitch/smartmove/internal/io"
)

// bytesValue is a [pflag.Value] for amounts of bytes given in human-readable
// form (e.g. "10GB" or "512MiB").
type bytesValue uint64

var _ pflag.Value = (*bytesValue)(nil)

func (b *bytesValue) String() string {
	if b == nil || *b == 0 {
		return "0"
	}

	return humanize.IBytes(uint64(*b))
}

func (b *bytesValue) Set(s string) error {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid amount of bytes: %w", err)
	}
	*b = bytesValue(v)

	return nil
}

func (*bytesValue) Type() string {
	return "bytes"
}

// printSummary prints the outcome of a move for the user.
func printSummary(w io.Writer, report *smvio.Report) {
	if report == nil {
		return
	}

	var s strings.Builder

	if report.DryRun {
		s.WriteString("Dry run, nothing was changed. The move would perform:\n")
		fmt.Fprintf(&s, "  %d rename(s), %d copy(s), %d link(s), %d directory(s) created\n",
			report.Renames, report.Copies, report.Links, report.DirectoriesCreated)
		fmt.Fprintf(&s, "  %d hardlink(s) preserved, %d step(s) already done\n",
			report.HardlinksPreserved, report.Skipped)
	} else {
		fmt.Fprintf(&s, "Moved %d element(s), %d hardlink(s) preserved, %s copied\n",
			report.FilesMoved, report.HardlinksPreserved, humanize.Bytes(report.BytesCopied))
		fmt.Fprintf(&s, "  %d rename(s), %d copy(s), %d link(s), %d directory(s) created, %d removed, %d skipped\n",
			report.Renames, report.Copies, report.Links, report.DirectoriesCreated, report.DirectoriesRemoved, report.Skipped)
	}

	fmt.Fprintf(&s, "  %d/%d step(s) completed", report.CompletedSteps, report.TotalSteps)
	if !report.Finished.IsZero() {
		fmt.Fprintf(&s, " in %s", report.Finished.Sub(report.Started).Round(time.Millisecond))
	}
	s.WriteString("\n")

	if report.HasWarnings() {
		fmt.Fprintf(&s, "%d warning(s):\n", len(report.Warnings))
		for _, warning := range report.Warnings {
			fmt.Fprintf(&s, "  %s\n", warning.String())
		}
	}

	fmt.Fprint(w, s.String())
}
