// Package engine drives a resumable tree copy: a per-entry copy policy
// backed by a failure ledger, a retry loop over that ledger, and the
// pipeline that ties enumeration, copying and metadata repair together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/bamsammich/ferry/internal/attrs"
	"github.com/bamsammich/ferry/internal/compare"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/ledger"
	"github.com/bamsammich/ferry/internal/pathset"
	"github.com/bamsammich/ferry/internal/stats"
)

// DefaultAttempts is the default per-source attempt cap.
const DefaultAttempts = 5

// Invalidation selects what happens to a ledger record whose source has
// changed since the failure was recorded.
type Invalidation string

const (
	InvalidateNone    Invalidation = "none"
	InvalidateChanged Invalidation = "changed"
)

// ParseInvalidation validates an invalidation policy name. Empty means none.
func ParseInvalidation(s string) (Invalidation, error) {
	switch Invalidation(s) {
	case "", InvalidateNone:
		return InvalidateNone, nil
	case InvalidateChanged:
		return InvalidateChanged, nil
	default:
		return "", fmt.Errorf("invalid invalidation policy %q (want none or changed)", s)
	}
}

// Options are the runtime knobs of a transfer.
type Options struct {
	Attempts    int  // per-source attempt cap, at least 1
	Compare     bool // recreate destinations that differ from their source
	Shallow     bool // compare files by size and mtime before content
	AttrRetries int  // apply-and-verify cycles for timestamps and flags
	MaxPasses   int  // retry passes; 0 means until the ledger is exhausted
	Invalidate  Invalidation
}

func (o Options) validate() error {
	if o.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", o.Attempts)
	}
	if o.MaxPasses < 0 {
		return fmt.Errorf("max passes must not be negative, got %d", o.MaxPasses)
	}
	_, err := ParseInvalidation(string(o.Invalidate))
	return err
}

// Progress is emitted once per processed pair.
type Progress struct {
	Index    int      // 1-based position of the pair just processed
	Total    int      // pairs in this batch
	Failures []string // sources that failed so far in this batch
}

// Engine applies the per-entry copy policy to batches of pairs.
type Engine struct {
	Ledger  ledger.Store
	Copier  Copier
	Cloner  *attrs.Cloner
	Options Options
	Stats   *stats.Collector
	Events  chan<- event.Event // optional
	Logger  *slog.Logger

	err error
}

// Err returns the fatal error that stopped the last batch, if any.
func (e *Engine) Err() error {
	return e.err
}

// Copy returns a lazy sequence that processes pairs in order and yields one
// Progress per pair. The sequence can be ranged over once; later ranges
// yield nothing. Per-entry failures are recorded in the ledger and never
// stop the batch. A fatal error stops it and is reported by Err.
func (e *Engine) Copy(ctx context.Context, pairs []pathset.Pair) iter.Seq[Progress] {
	started := false
	return func(yield func(Progress) bool) {
		if started {
			return
		}
		started = true
		e.err = nil

		var failures []string
		for i, p := range pairs {
			if ctx.Err() != nil {
				return
			}

			failed, err := e.processPair(ctx, p)
			if err != nil {
				e.err = err
				e.logger().Error("transfer aborted", "path", p.Src, "error", err)
				return
			}
			if failed {
				failures = append(failures, p.Src)
			}
			e.stats().AddEntriesProcessed(1)

			prog := Progress{
				Index:    i + 1,
				Total:    len(pairs),
				Failures: failures[:len(failures):len(failures)],
			}
			if !yield(prog) {
				return
			}
		}
	}
}

// processPair runs the policy for one pair. It reports whether the pair
// failed, and returns an error only when the whole transfer must stop.
func (e *Engine) processPair(ctx context.Context, p pathset.Pair) (bool, error) {
	rec, found, err := e.Ledger.Get(p.Src)
	if err != nil {
		return false, fmt.Errorf("read ledger for %s: %w", p.Src, err)
	}

	if found && e.Options.Invalidate == InvalidateChanged {
		stale, vanished, err := sourceChanged(rec)
		if err != nil {
			e.logger().Warn("cannot stat source, keeping ledger record", "path", p.Src, "error", err)
		}
		if stale {
			e.logger().Info("discarding ledger record for changed source", "path", p.Src)
			if err := e.Ledger.Delete(p.Src); err != nil {
				return false, fmt.Errorf("invalidate ledger record %s: %w", p.Src, err)
			}
			found = false
			if vanished {
				return false, nil
			}
		}
	}

	if found && rec.Attempts >= e.Options.Attempts {
		e.stats().AddEntriesExhausted(1)
		e.emit(ctx, event.Event{Type: event.EntryExhausted, Path: p.Src, Attempts: rec.Attempts})
		return false, nil
	}

	attemptErr := e.attempt(ctx, p, found)
	if attemptErr == nil {
		return false, nil
	}
	if errors.Is(attemptErr, ErrCopierUnavailable) {
		return false, attemptErr
	}
	if ctx.Err() != nil {
		// Interrupted mid-entry; the next run retries it without charging
		// an attempt.
		return false, nil
	}

	if err := e.recordFailure(ctx, p, rec, found, attemptErr); err != nil {
		return false, err
	}
	return true, nil
}

// attempt runs the copy steps for one pair, converting a panic into an
// error so that no single entry can take the batch down.
func (e *Engine) attempt(ctx context.Context, p pathset.Pair, found bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Errorf("panic copying %s: %v\n%s", p.Src, r, debug.Stack())
		}
	}()

	if found {
		equal, err := compare.Equal(p.Src, p.Dst, e.Options.Shallow)
		if err != nil {
			return pkgerrors.Wrapf(err, "compare %s", p.Src)
		}
		if equal {
			if err := e.cloneAttrs(p); err != nil {
				return err
			}
			if err := e.Ledger.Delete(p.Src); err != nil {
				return pkgerrors.Wrapf(err, "clear ledger record %s", p.Src)
			}
			e.stats().AddFalseFailures(1)
			e.emit(ctx, event.Event{Type: event.EntryRecovered, Path: p.Src})
			return nil
		}
	}

	dstKind, err := compare.KindOf(p.Dst)
	if err != nil {
		return pkgerrors.Wrapf(err, "stat destination %s", p.Dst)
	}

	if e.Options.Compare && (dstKind == compare.File || dstKind == compare.Symlink) {
		equal, err := compare.Equal(p.Src, p.Dst, e.Options.Shallow)
		if err != nil {
			return pkgerrors.Wrapf(err, "compare %s", p.Src)
		}
		if !equal {
			if err := os.Remove(p.Dst); err != nil {
				return pkgerrors.Wrapf(err, "remove stale destination %s", p.Dst)
			}
			e.stats().AddEntriesRecreated(1)
			e.emit(ctx, event.Event{Type: event.EntryRecreated, Path: p.Src})
			dstKind = compare.Missing
		}
	}

	if dstKind == compare.Missing {
		if err := e.create(ctx, p); err != nil {
			return err
		}
	} else {
		e.stats().AddEntriesUnchanged(1)
	}

	if err := e.cloneAttrs(p); err != nil {
		return err
	}
	if found {
		if err := e.Ledger.Delete(p.Src); err != nil {
			return pkgerrors.Wrapf(err, "clear ledger record %s", p.Src)
		}
	}
	return nil
}

// create materializes a missing destination. Directories are created empty;
// their contents arrive as separate entries.
func (e *Engine) create(ctx context.Context, p pathset.Pair) error {
	srcKind, err := compare.KindOf(p.Src)
	if err != nil {
		return pkgerrors.Wrapf(err, "stat source %s", p.Src)
	}

	switch srcKind {
	case compare.Missing:
		return pkgerrors.Errorf("source %s no longer exists", p.Src)
	case compare.Dir:
		if err := os.MkdirAll(p.Dst, 0o777); err != nil {
			return pkgerrors.Wrapf(err, "create directory %s", p.Dst)
		}
		e.stats().AddDirsCreated(1)
		e.emit(ctx, event.Event{Type: event.DirCreated, Path: p.Src})
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p.Dst), 0o777); err != nil {
		return pkgerrors.Wrapf(err, "create parent of %s", p.Dst)
	}
	if err := e.Copier.Copy(ctx, p.Src, p.Dst); err != nil {
		if errors.Is(err, ErrCopierUnavailable) {
			return err
		}
		return pkgerrors.Wrapf(err, "copy %s", p.Src)
	}

	var size int64
	if srcKind == compare.File {
		if info, err := os.Lstat(p.Src); err == nil {
			size = info.Size()
		}
	}
	e.stats().AddEntriesCopied(1)
	e.stats().AddBytesCopied(size)
	e.emit(ctx, event.Event{Type: event.EntryCopied, Path: p.Src, Size: size})
	return nil
}

func (e *Engine) cloneAttrs(p pathset.Pair) error {
	if e.Cloner == nil {
		return nil
	}
	kind, err := compare.KindOf(p.Dst)
	if err != nil {
		return pkgerrors.Wrapf(err, "stat destination %s", p.Dst)
	}
	if err := e.Cloner.Clone(p.Src, p.Dst, kind != compare.Symlink); err != nil {
		return pkgerrors.Wrapf(err, "clone attributes %s", p.Src)
	}
	return nil
}

// recordFailure creates or advances the ledger record for a failed pair.
// Ledger write errors are fatal.
func (e *Engine) recordFailure(ctx context.Context, p pathset.Pair, rec ledger.Record, found bool, cause error) error {
	if !found {
		rec = ledger.Record{Source: p.Src, Destination: p.Dst}
	}
	if rec.Attempts < e.Options.Attempts {
		rec.Attempts++
	}
	rec.Destination = p.Dst
	rec.LastError = cause.Error()
	rec.LastTrace = fmt.Sprintf("%+v", cause)
	rec.SourceSize, rec.SourceModTime = 0, time.Time{}
	if info, err := os.Lstat(p.Src); err == nil {
		rec.SourceSize = info.Size()
		rec.SourceModTime = info.ModTime()
	}
	rec.UpdatedAt = time.Now()

	if err := e.Ledger.Set(rec); err != nil {
		return fmt.Errorf("record failure for %s: %w", p.Src, err)
	}

	e.stats().AddEntriesFailed(1)
	e.logger().Warn("copy failed", "path", p.Src, "attempts", rec.Attempts, "error", cause)
	e.emit(ctx, event.Event{
		Type:     event.EntryFailed,
		Path:     p.Src,
		Attempts: rec.Attempts,
		Error:    cause,
	})
	return nil
}

// sourceChanged reports whether rec's source differs from what was observed
// when the failure was recorded, and whether it is gone altogether. Only a
// missing source counts as vanished; any other stat error is returned and
// the record is treated as current.
func sourceChanged(rec ledger.Record) (stale, vanished bool, err error) {
	info, err := os.Lstat(rec.Source)
	if errors.Is(err, fs.ErrNotExist) {
		return true, true, nil
	}
	if err != nil {
		return false, false, err
	}
	if rec.SourceModTime.IsZero() {
		return false, false, nil
	}
	return info.Size() != rec.SourceSize || !info.ModTime().Equal(rec.SourceModTime), false, nil
}

func (e *Engine) emit(ctx context.Context, ev event.Event) {
	if e.Events == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.Events <- ev:
	case <-ctx.Done():
	}
}

func (e *Engine) stats() *stats.Collector {
	if e.Stats == nil {
		e.Stats = stats.NewCollector()
	}
	return e.Stats
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
