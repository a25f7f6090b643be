package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	PhaseStarted
	PhaseComplete
	EntryProgress
	EntryCopied
	DirCreated
	EntryRecreated
	EntryRecovered
	EntryFailed
	EntryExhausted
	MetaProgress
	MetaFailed
)

var typeNames = [...]string{
	ScanStarted:    "ScanStarted",
	ScanComplete:   "ScanComplete",
	PhaseStarted:   "PhaseStarted",
	PhaseComplete:  "PhaseComplete",
	EntryProgress:  "EntryProgress",
	EntryCopied:    "EntryCopied",
	DirCreated:     "DirCreated",
	EntryRecreated: "EntryRecreated",
	EntryRecovered: "EntryRecovered",
	EntryFailed:    "EntryFailed",
	EntryExhausted: "EntryExhausted",
	MetaProgress:   "MetaProgress",
	MetaFailed:     "MetaFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Phase names a stage of a transfer.
type Phase string

const (
	PhaseFiles    Phase = "files"
	PhaseDirs     Phase = "directories"
	PhaseRetry    Phase = "retry"
	PhaseMetadata Phase = "metadata"
)

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Phase     Phase
	Path      string // source path
	Index     int    // entries processed so far in the phase
	Total     int    // entries in the phase (or scanned, for ScanComplete)
	Failures  int    // failures so far in the phase
	Pass      int    // retry pass number, starting at 1
	Attempts  int    // ledger attempt count after an EntryFailed
	Size      int64  // bytes copied for EntryCopied
	Error     error
}
