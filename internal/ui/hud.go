package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/ferry/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim       = "\033[2m"
	ansiReset     = "\033[0m"
	ansiClearLine = "\r\033[K"
)

const (
	sparklineWidth = 12
	hudMinInterval = 50 * time.Millisecond // don't redraw faster than this
)

// hudPresenter keeps a single progress line at the bottom of the terminal,
// redrawn in place with a carriage return. Failures and phase results
// scroll above it.
type hudPresenter struct {
	w       io.Writer
	stats   *stats.Collector
	srcRoot string
	width   int
	verbose bool

	// Internal state.
	last        Event
	phaseStart  time.Time
	hudDrawn    bool
	lastHUDDraw time.Time
}

func (p *hudPresenter) Run(events <-chan Event) error {
	// Fire first tick quickly to seed the ring buffer, then switch to 1s.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw ticker for when no events are flowing (e.g., a large file).
	redrawTicker := time.NewTicker(200 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.drawHUD()

		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(1 * time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case ScanStarted:
		p.println(fmt.Sprintf("%sscanning %s%s", ansiDim, ev.Path, ansiReset))

	case ScanComplete:
		p.println(fmt.Sprintf("%sscanned %s entries%s", ansiDim, FormatCount(int64(ev.Total)), ansiReset))

	case PhaseStarted:
		p.last = Event{Phase: ev.Phase, Total: ev.Total}
		p.phaseStart = ev.Timestamp
		p.println(phaseHeader(ev))

	case EntryProgress, MetaProgress:
		p.last = ev

	case PhaseComplete:
		final := p.last
		final.Failures = ev.Failures
		p.last = Event{}
		p.println(fmt.Sprintf("%s  in %s", progressLine(final), FormatDuration(ev.Timestamp.Sub(p.phaseStart))))

	case EntryFailed:
		p.println(fmt.Sprintf("✗  %s  %sattempt %d%s  %s",
			p.styledPath(ev.Path), ansiDim, ev.Attempts, ansiReset, errText(ev.Error)))

	case EntryExhausted:
		p.println(fmt.Sprintf("–  %s  %sgave up after %d attempts%s",
			p.styledPath(ev.Path), ansiDim, ev.Attempts, ansiReset))

	case EntryRecreated:
		if p.verbose {
			p.println(fmt.Sprintf("↻  %s", p.styledPath(ev.Path)))
		}

	case EntryCopied:
		if p.verbose {
			p.println(fmt.Sprintf("✓  %s  %10s", p.styledPath(ev.Path), FormatBytes(ev.Size)))
		}

	case MetaFailed:
		p.println(fmt.Sprintf("✗  %s  %smetadata%s  %s",
			p.styledPath(ev.Path), ansiDim, ansiReset, errText(ev.Error)))
	}
}

// println prints a line above the HUD, then redraws the HUD.
func (p *hudPresenter) println(line string) {
	p.clearHUD()
	fmt.Fprintln(p.w, line)
	p.drawHUD()
}

// maybeDrawHUD redraws the HUD if enough time has passed since the last draw.
func (p *hudPresenter) maybeDrawHUD() {
	if time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	p.clearHUD()
	if p.last.Total == 0 {
		return
	}

	fmt.Fprint(p.w, p.hudLine())
	p.hudDrawn = true
	p.lastHUDDraw = time.Now()
}

// hudLine renders the status line. The bar and sparkline are dropped first
// when the line would wrap, since a wrapped line cannot be redrawn in place.
func (p *hudPresenter) hudLine() string {
	pct := float64(p.last.Index) / float64(p.last.Total)
	head := fmt.Sprintf("%s %3.0f%%", progressLine(p.last), pct*100)
	tail := fmt.Sprintf("%s  %s  eta %s",
		FormatEntryRate(p.stats.RollingEntriesPerSec(5)),
		FormatRate(p.stats.RollingSpeed(5)),
		FormatETA(p.stats.ETA()),
	)

	full := fmt.Sprintf("%s  %s  %s %s", head, ProgressBar(pct, 20),
		Sparkline(p.stats.RateHistory(sparklineWidth), sparklineWidth), tail)
	if p.width <= 0 || lipgloss.Width(full) < p.width {
		return full
	}
	if short := head + "  " + tail; lipgloss.Width(short) < p.width {
		return short
	}
	return head
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	fmt.Fprint(p.w, ansiClearLine)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}

// styledPath returns the path relative to the source root with the
// directory portion dimmed, making the actual filename stand out.
func (p *hudPresenter) styledPath(path string) string {
	path = StripRoot(p.srcRoot, path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return base
	}
	return fmt.Sprintf("%s%s/%s%s", ansiDim, dir, ansiReset, base)
}

// StripRoot removes a root prefix from a path, returning a clean relative path.
func StripRoot(root, path string) string {
	if root == "" {
		return path
	}
	// Ensure root ends with separator for clean stripping.
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	if strings.HasPrefix(path, root) {
		return path[len(root):]
	}
	return path
}
