package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bamsammich/ferry/internal/attrs"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/ledger"
	"github.com/bamsammich/ferry/internal/meta"
	"github.com/bamsammich/ferry/internal/pathset"
	"github.com/bamsammich/ferry/internal/stats"
)

// Config describes a transfer.
type Config struct {
	Src     string
	Dst     string
	Options Options
	Reset   bool // clear the ledger before starting

	Filter *filter.Chain
	Ledger ledger.Store
	Copier Copier
	Meta   meta.Provider // nil skips the metadata phase
	AttrFS attrs.FS      // nil means the host filesystem

	Stats  *stats.Collector
	Events chan<- event.Event
	Logger *slog.Logger
}

// Result is the outcome of a transfer.
type Result struct {
	Stats      stats.Snapshot
	Unresolved []ledger.Record // sources still failing, in key order
	Meta       meta.Report
	Passes     int
	Err        error // fatal error; per-entry failures are in Unresolved
}

// Run copies the tree under cfg.Src to cfg.Dst, blocking until done: files
// first, then directories, then retry passes over the ledger, then a
// metadata repair pass over every entry that is not still failing.
func Run(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fail := func(err error) Result {
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	if err := cfg.Options.validate(); err != nil {
		return fail(err)
	}
	if cfg.Ledger == nil || cfg.Copier == nil {
		return fail(errors.New("ledger and copier are required"))
	}

	src, dst, err := resolveRoots(cfg.Src, cfg.Dst)
	if err != nil {
		return fail(err)
	}

	if cfg.Reset {
		if err := cfg.Ledger.Clear(); err != nil {
			return fail(fmt.Errorf("reset ledger: %w", err))
		}
		logger.Info("ledger cleared")
	}

	if err := os.MkdirAll(dst, 0o777); err != nil {
		return fail(fmt.Errorf("create destination: %w", err))
	}

	eng := &Engine{
		Ledger:  cfg.Ledger,
		Copier:  cfg.Copier,
		Cloner:  &attrs.Cloner{Retries: cfg.Options.AttrRetries, FS: cfg.AttrFS, Logger: logger},
		Options: cfg.Options,
		Stats:   collector,
		Events:  cfg.Events,
		Logger:  logger,
	}

	eng.emit(ctx, event.Event{Type: event.ScanStarted, Path: src})
	dirs, files, err := pathset.Enumerate(ctx, src, cfg.Filter, logger)
	if err != nil {
		return fail(fmt.Errorf("enumerate source: %w", err))
	}
	collector.AddEntriesScanned(int64(len(dirs) + len(files)))
	collector.SetEntriesTotal(int64(len(dirs) + len(files)))
	eng.emit(ctx, event.Event{Type: event.ScanComplete, Path: src, Total: len(dirs) + len(files)})
	logger.Info("scan complete", "files", len(files), "dirs", len(dirs))

	filePairs, err := pathset.Zip(files, pathset.RemapAll(src, dst, files))
	if err != nil {
		return fail(err)
	}
	dirPairs, err := pathset.Zip(dirs, pathset.RemapAll(src, dst, dirs))
	if err != nil {
		return fail(err)
	}

	for _, phase := range []struct {
		name  event.Phase
		pairs []pathset.Pair
	}{
		{event.PhaseFiles, filePairs},
		{event.PhaseDirs, dirPairs},
	} {
		runPhase(ctx, eng, phase.name, 0, phase.pairs)
		if err := eng.Err(); err != nil {
			return fail(err)
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
	}

	var lastFailures int
	passes, err := eng.Retry(ctx,
		func(pass, n int) {
			eng.emit(ctx, event.Event{Type: event.PhaseStarted, Phase: event.PhaseRetry, Pass: pass, Total: n})
		},
		func(p Progress) {
			lastFailures = len(p.Failures)
			eng.emit(ctx, event.Event{
				Type:     event.EntryProgress,
				Phase:    event.PhaseRetry,
				Index:    p.Index,
				Total:    p.Total,
				Failures: len(p.Failures),
			})
		})
	if passes > 0 {
		eng.emit(ctx, event.Event{Type: event.PhaseComplete, Phase: event.PhaseRetry, Pass: passes, Failures: lastFailures})
	}
	if err != nil {
		res := fail(err)
		res.Passes = passes
		return res
	}

	unresolved, err := ledger.All(cfg.Ledger)
	if err != nil {
		return fail(fmt.Errorf("read ledger: %w", err))
	}

	var report meta.Report
	if cfg.Meta != nil {
		failing := make(map[string]struct{}, len(unresolved))
		for _, rec := range unresolved {
			failing[rec.Source] = struct{}{}
		}
		pairs := pathset.Without(append(filePairs, dirPairs...), failing)
		report = reconcileMeta(ctx, eng, cfg.Meta, pairs)
	}

	return Result{
		Stats:      collector.Snapshot(),
		Unresolved: unresolved,
		Meta:       report,
		Passes:     passes,
		Err:        ctx.Err(),
	}
}

func runPhase(ctx context.Context, eng *Engine, phase event.Phase, pass int, pairs []pathset.Pair) {
	eng.emit(ctx, event.Event{Type: event.PhaseStarted, Phase: phase, Pass: pass, Total: len(pairs)})

	failures := 0
	for p := range eng.Copy(ctx, pairs) {
		failures = len(p.Failures)
		eng.emit(ctx, event.Event{
			Type:     event.EntryProgress,
			Phase:    phase,
			Pass:     pass,
			Index:    p.Index,
			Total:    p.Total,
			Failures: failures,
		})
	}

	eng.emit(ctx, event.Event{Type: event.PhaseComplete, Phase: phase, Pass: pass, Total: len(pairs), Failures: failures})
}

func reconcileMeta(ctx context.Context, eng *Engine, provider meta.Provider, pairs []pathset.Pair) meta.Report {
	eng.emit(ctx, event.Event{Type: event.PhaseStarted, Phase: event.PhaseMetadata, Total: len(pairs)})

	r := &meta.Reconciler{
		Provider: provider,
		Logger:   eng.logger(),
		OnError: func(dst string, err error) {
			eng.emit(ctx, event.Event{Type: event.MetaFailed, Phase: event.PhaseMetadata, Path: dst, Error: err})
		},
	}
	report := r.ReconcileAll(ctx, pairs, func(done, total int) {
		eng.emit(ctx, event.Event{Type: event.MetaProgress, Phase: event.PhaseMetadata, Index: done, Total: total})
	})

	eng.stats().AddMetaRestored(int64(report.Restored))
	eng.stats().AddMetaDenied(int64(report.Denied))
	eng.stats().AddMetaFailed(int64(report.Failed))

	eng.emit(ctx, event.Event{
		Type:     event.PhaseComplete,
		Phase:    event.PhaseMetadata,
		Total:    len(pairs),
		Failures: report.Denied + report.Failed,
	})
	return report
}

// resolveRoots makes both roots absolute and checks that src is a directory
// that does not contain dst.
func resolveRoots(src, dst string) (string, string, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", "", fmt.Errorf("source: %w", err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return "", "", fmt.Errorf("destination: %w", err)
	}

	info, err := os.Stat(absSrc)
	if err != nil {
		return "", "", fmt.Errorf("source: %w", err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("source %s is not a directory", src)
	}

	if absDst == absSrc || strings.HasPrefix(absDst, absSrc+string(filepath.Separator)) {
		return "", "", fmt.Errorf("destination %s is inside source %s", dst, src)
	}
	return absSrc, absDst, nil
}
