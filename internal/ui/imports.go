package ui

import "github.com/bamsammich/ferry/internal/event"

// Event is a progress event from the engine.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanStarted    = event.ScanStarted
	ScanComplete   = event.ScanComplete
	PhaseStarted   = event.PhaseStarted
	PhaseComplete  = event.PhaseComplete
	EntryProgress  = event.EntryProgress
	EntryCopied    = event.EntryCopied
	DirCreated     = event.DirCreated
	EntryRecreated = event.EntryRecreated
	EntryRecovered = event.EntryRecovered
	EntryFailed    = event.EntryFailed
	EntryExhausted = event.EntryExhausted
	MetaProgress   = event.MetaProgress
	MetaFailed     = event.MetaFailed
)

// Re-export phases for convenience.
const (
	PhaseFiles    = event.PhaseFiles
	PhaseDirs     = event.PhaseDirs
	PhaseRetry    = event.PhaseRetry
	PhaseMetadata = event.PhaseMetadata
)
