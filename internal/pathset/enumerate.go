// Package pathset enumerates a source tree and maps its paths onto a
// destination root.
package pathset

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/bamsammich/ferry/internal/filter"
)

// Enumerate walks root and returns every directory and every non-directory
// entry beneath it, in lexical traversal order. The root itself is not
// listed. Entries matched by chain are omitted, and an excluded directory's
// whole subtree is pruned. Symlinks are never followed: a link to a directory
// is listed with the files.
//
// Every call performs a fresh scan. The first I/O error aborts the walk and
// is returned.
func Enumerate(ctx context.Context, root string, chain *filter.Chain, logger *slog.Logger) (dirs, files []string, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	filtered := !chain.Empty()
	if filtered && chain.Excluded(root) {
		logger.Debug("excluding", "path", root)
		return nil, nil, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		if filtered && chain.Excluded(path) {
			logger.Debug("excluding", "path", path)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return dirs, files, nil
}
