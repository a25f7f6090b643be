package ui

import (
	"fmt"

	"github.com/bamsammich/ferry/internal/stats"
)

// completionSummary builds a final summary line from a snapshot.
// Format: done ✓  entries 48,917  copied 1,204  size 2.1 GiB  time 3m 17s  retries 2  unresolved 0
func completionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.EntriesExhausted > 0 || snap.MetaFailed > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  entries %s  copied %s  size %s  time %s",
		icon,
		FormatCount(snap.EntriesScanned),
		FormatCount(snap.EntriesCopied+snap.DirsCreated),
		FormatBytes(snap.BytesCopied),
		FormatDuration(snap.Elapsed),
	)

	if snap.EntriesRecreated > 0 {
		base += fmt.Sprintf("  recreated %s", FormatCount(snap.EntriesRecreated))
	}
	if snap.Passes > 0 {
		base += fmt.Sprintf("  retries %d", snap.Passes)
	}

	base += fmt.Sprintf("  errors %d", snap.EntriesFailed)
	return base
}
