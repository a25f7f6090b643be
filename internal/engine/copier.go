package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bamsammich/ferry/internal/platform"
)

// ErrCopierUnavailable means the bulk-copy mechanism cannot be invoked at
// all. It aborts a transfer instead of being recorded per entry.
var ErrCopierUnavailable = errors.New("copier unavailable")

// Copier copies one filesystem entry. Implementations must carry extended
// attributes across, must fail rather than replace an existing dst, and
// must report I/O, permission and space errors.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
}

// NativeCopier copies entries in-process using the fastest kernel path the
// platform offers.
type NativeCopier struct {
	Logger *slog.Logger
}

func (c *NativeCopier) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("lstat %s: %w", src, err)
	}

	switch mode := info.Mode(); {
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("readlink %s: %w", src, err)
		}
		if err := os.Symlink(target, dst); err != nil {
			return fmt.Errorf("symlink %s -> %s: %w", dst, target, err)
		}
		return nil
	case mode.IsRegular():
		return c.copyRegularFile(ctx, src, dst, info)
	case mode.IsDir():
		if err := os.Mkdir(dst, mode.Perm()); err != nil {
			return fmt.Errorf("mkdir %s: %w", dst, err)
		}
		return nil
	default:
		return fmt.Errorf("copy %s: unsupported file type %s", src, mode.Type())
	}
}

func (c *NativeCopier) copyRegularFile(ctx context.Context, src, dst string, info os.FileInfo) error {
	dir := filepath.Dir(dst)
	base := filepath.Base(dst)
	tmpName := fmt.Sprintf(".%s.%s.ferry-tmp", base, uuid.New().String()[:8])
	tmpPath := filepath.Join(dir, tmpName)

	RegisterTmp(tmpPath)
	defer func() {
		DeregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op once published
	}()

	cloned, err := platform.Clone(src, tmpPath)
	if err != nil {
		return fmt.Errorf("clone %s: %w", src, err)
	}
	if !cloned {
		if err := c.writeTmp(ctx, src, tmpPath, info); err != nil {
			return err
		}
	}

	if err := platform.Publish(tmpPath, dst); err != nil {
		return err
	}
	return nil
}

func (c *NativeCopier) writeTmp(ctx context.Context, src, tmpPath string, info os.FileInfo) error {
	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	if info.Size() > 0 {
		result, err := platform.CopyFile(platform.CopyFileParams{
			Ctx:     ctx,
			SrcPath: src,
			DstFd:   tmpFd,
			SrcSize: info.Size(),
		})
		if err != nil {
			tmpFd.Close()
			return fmt.Errorf("copy data %s: %w", src, err)
		}
		if result.BytesWritten != info.Size() {
			tmpFd.Close()
			return fmt.Errorf("copy data %s: short copy, %d of %d bytes", src, result.BytesWritten, info.Size())
		}
		c.logger().Debug("copied data", "src", src, "method", result.Method.String(), "bytes", result.BytesWritten)
	}

	if err := tmpFd.Chmod(info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)); err != nil {
		tmpFd.Close()
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := tmpFd.Close(); err != nil {
		return fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}

	if err := c.copyXattrs(src, tmpPath); err != nil {
		return err
	}

	atime, err := platform.AccessTime(src)
	if err != nil {
		return err
	}
	return platform.SetTimes(tmpPath, atime, info.ModTime(), true)
}

// copyXattrs copies every extended attribute the destination accepts.
// Attributes the kernel refuses to an unprivileged writer are skipped.
func (c *NativeCopier) copyXattrs(src, dst string) error {
	names, err := platform.ListXattrs(src)
	if err != nil {
		return err
	}
	for _, name := range names {
		val, err := platform.GetXattr(src, name)
		if err != nil {
			if platform.IsNoAttr(err) {
				continue
			}
			return err
		}
		err = platform.SetXattr(dst, name, val)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrPermission), platform.IsXattrUnsupported(err):
			c.logger().Debug("skipping xattr", "path", dst, "name", name, "error", err)
		default:
			return err
		}
	}
	return nil
}

func (c *NativeCopier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// ExecCopier shells out to cp(1) with -Rpn, which keeps resource forks and
// extended attributes on macOS and never overwrites.
type ExecCopier struct {
	// Path to the cp binary. Empty means "cp" from PATH.
	Path string
}

func (c *ExecCopier) Copy(ctx context.Context, src, dst string) error {
	bin := c.Path
	if bin == "" {
		bin = "cp"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopierUnavailable, err)
	}

	cmd := exec.CommandContext(ctx, resolved, "-Rpn", src, filepath.Dir(dst))
	out, err := cmd.CombinedOutput()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return fmt.Errorf("%w: %w", ErrCopierUnavailable, err)
		}
		return fmt.Errorf("cp %s: %w: %s", src, err, out)
	}

	// -n exits zero when it declines to overwrite; only a destination that
	// now exists counts as copied.
	if _, err := os.Lstat(dst); err != nil {
		return fmt.Errorf("cp %s: destination not created: %w", src, err)
	}
	return nil
}
