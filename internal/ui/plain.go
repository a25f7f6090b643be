package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/ferry/internal/stats"
)

// plainPresenter writes phase headers, failures and phase results to stdout
// and a periodic progress line to stderr. Used when stderr is not a TTY.
type plainPresenter struct {
	w          io.Writer
	errW       io.Writer
	stats      *stats.Collector
	srcRoot    string
	verbose    bool
	noProgress bool

	last       Event // most recent EntryProgress or MetaProgress
	phaseStart time.Time
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.stats.Tick()
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := StripRoot(p.srcRoot, ev.Path)
	switch ev.Type {
	case ScanComplete:
		fmt.Fprintf(p.w, "scanned %s entries\n", FormatCount(int64(ev.Total)))
	case PhaseStarted:
		p.last = Event{Phase: ev.Phase, Total: ev.Total}
		p.phaseStart = ev.Timestamp
		fmt.Fprintln(p.w, phaseHeader(ev))
	case EntryProgress, MetaProgress:
		p.last = ev
	case PhaseComplete:
		fmt.Fprintf(p.w, "%s done: %s  errors %s  in %s\n",
			ev.Phase,
			FormatCount(int64(p.last.Index)),
			FormatCount(int64(ev.Failures)),
			FormatDuration(ev.Timestamp.Sub(p.phaseStart)),
		)
	case EntryFailed:
		fmt.Fprintf(p.w, "failed: %s  attempt %d  %s\n", path, ev.Attempts, errText(ev.Error))
	case EntryExhausted:
		fmt.Fprintf(p.w, "giving up: %s  after %d attempts\n", path, ev.Attempts)
	case EntryRecreated:
		fmt.Fprintf(p.w, "recreating: %s\n", path)
	case MetaFailed:
		fmt.Fprintf(p.w, "metadata: %s  %s\n", path, errText(ev.Error))
	case EntryCopied:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s\n", path, FormatBytes(ev.Size))
		}
	}
}

func (p *plainPresenter) printProgress() {
	if p.noProgress || p.last.Total == 0 {
		return
	}
	fmt.Fprintf(p.errW, "progress: %s  %s  %s  eta %s\n",
		progressLine(p.last),
		FormatEntryRate(p.stats.RollingEntriesPerSec(5)),
		FormatRate(p.stats.RollingSpeed(5)),
		FormatETA(p.stats.ETA()),
	)
}

func (p *plainPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}

func errText(err error) string {
	if err == nil {
		return "error"
	}
	return err.Error()
}
