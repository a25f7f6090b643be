package meta

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/bamsammich/ferry/internal/pathset"
)

// Report summarizes a ReconcileAll pass.
type Report struct {
	Checked     int // pairs compared
	Restored    int // pairs whose destination was rewritten
	Skipped     int // pairs with a symlink on either side
	Denied      int // permission errors
	Unsupported int // destination cannot hold extended metadata
	Failed      int // any other error
}

// Reconciler copies extended metadata onto destinations whose metadata
// differs from their source.
type Reconciler struct {
	Provider Provider
	Logger   *slog.Logger

	// OnError, when set, is called for every pair that was denied or
	// failed in ReconcileAll.
	OnError func(dst string, err error)
}

// Reconcile compares the metadata of src and dst and, when they differ,
// replaces the destination's metadata with the source's. Tags and the
// stationery flag are written again only when dst still decodes to
// different values after the replace, so the raw tag attribute stays
// byte-identical to the source's. It reports whether dst was changed.
func (r *Reconciler) Reconcile(src, dst string) (bool, error) {
	want, err := r.Provider.Read(src)
	if err != nil {
		return false, err
	}
	have, err := r.Provider.Read(dst)
	if err != nil {
		return false, err
	}
	if want.Equal(have) {
		return false, nil
	}

	if err := r.Provider.Replace(dst, want); err != nil {
		return false, fmt.Errorf("replace metadata: %w", err)
	}
	after, err := r.Provider.Read(dst)
	if err != nil {
		return true, fmt.Errorf("read replaced metadata: %w", err)
	}
	if after.Stationery != want.Stationery {
		if err := r.Provider.SetStationery(dst, want.Stationery); err != nil {
			return true, fmt.Errorf("set stationery: %w", err)
		}
	}
	if !slices.Equal(after.Tags, want.Tags) {
		if err := r.Provider.SetTags(dst, want.Tags); err != nil {
			return true, fmt.Errorf("set tags: %w", err)
		}
	}
	return true, nil
}

// ReconcileAll runs Reconcile over every pair. Pairs with a symlink on
// either side are skipped; the link target is reconciled as its own entry.
// Per-pair errors are logged and counted, never returned. progress, when
// set, is called after each pair.
func (r *Reconciler) ReconcileAll(ctx context.Context, pairs []pathset.Pair, progress func(done, total int)) Report {
	var rep Report
	logger := r.logger()

	for i, p := range pairs {
		if ctx.Err() != nil {
			break
		}

		switch {
		case isSymlink(p.Src) || isSymlink(p.Dst):
			rep.Skipped++
		default:
			rep.Checked++
			changed, err := r.Reconcile(p.Src, p.Dst)
			if changed {
				rep.Restored++
			}
			switch {
			case err == nil:
			case errors.Is(err, fs.ErrPermission):
				rep.Denied++
				logger.Warn("permission denied restoring metadata, skipping", "path", p.Dst)
			case errors.Is(err, ErrUnsupported):
				rep.Unsupported++
				logger.Debug("extended metadata unsupported", "path", p.Dst)
			default:
				rep.Failed++
				logger.Error("error restoring metadata", "path", p.Dst, "error", err)
			}
			if err != nil && !errors.Is(err, ErrUnsupported) && r.OnError != nil {
				r.OnError(p.Dst, err)
			}
		}

		if progress != nil {
			progress(i+1, len(pairs))
		}
	}
	return rep
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}
