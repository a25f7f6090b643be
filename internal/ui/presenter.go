package ui

import (
	"io"

	"github.com/bamsammich/ferry/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer
	ErrWriter  io.Writer
	Stats      *stats.Collector
	SrcRoot    string // stripped from displayed paths
	IsTTY      bool
	Width      int // terminal columns for the HUD line; 0 means unbounded
	Quiet      bool
	Verbose    bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // selects an implementation
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return quietPresenter{}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return &plainPresenter{
			w:          cfg.Writer,
			errW:       cfg.ErrWriter,
			stats:      cfg.Stats,
			srcRoot:    cfg.SrcRoot,
			verbose:    cfg.Verbose,
			noProgress: cfg.NoProgress,
		}
	}
	return &hudPresenter{
		w:       cfg.ErrWriter, // HUD renders to stderr (the TTY)
		stats:   cfg.Stats,
		srcRoot: cfg.SrcRoot,
		width:   cfg.Width,
		verbose: cfg.Verbose,
	}
}

// phaseHeader describes a phase that is about to start.
func phaseHeader(ev Event) string {
	n := FormatCount(int64(ev.Total))
	switch ev.Phase {
	case PhaseFiles:
		return "copying " + n + " files"
	case PhaseDirs:
		return "creating " + n + " directories"
	case PhaseRetry:
		return "retry pass " + FormatCount(int64(ev.Pass)) + ": " + n + " entries"
	case PhaseMetadata:
		return "reconciling metadata for " + n + " entries"
	default:
		return string(ev.Phase)
	}
}

// progressLine renders the per-phase counter, e.g. "Copied 10/200...  Errors: 1".
func progressLine(ev Event) string {
	verb := "Copied"
	if ev.Phase == PhaseMetadata {
		verb = "Checked"
	}
	return verb + " " + FormatCount(int64(ev.Index)) + "/" + FormatCount(int64(ev.Total)) +
		"...  Errors: " + FormatCount(int64(ev.Failures))
}
