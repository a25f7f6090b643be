package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Publish moves a fully written temporary file to dst without ever
// replacing an existing entry there. It returns an error wrapping
// fs.ErrExist when dst is already taken.
//
// An atomic no-replace rename is tried first. Filesystems that lack it fall
// back to link-then-unlink, and those without hard links to a checked
// rename.
func Publish(tmp, dst string) error {
	err := renameNoReplace(tmp, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("publish %s: %w", dst, fs.ErrExist)
	}
	if !isUnsupported(err) {
		return fmt.Errorf("publish %s: %w", dst, err)
	}

	err = os.Link(tmp, dst)
	if err == nil {
		_ = os.Remove(tmp)
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("publish %s: %w", dst, fs.ErrExist)
	}
	if !isUnsupported(err) && !errors.Is(err, unix.EPERM) {
		return fmt.Errorf("publish %s: %w", dst, err)
	}

	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("publish %s: %w", dst, fs.ErrExist)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("publish %s: %w", dst, err)
	}
	return nil
}

func isUnsupported(err error) bool {
	return errors.Is(err, unix.EINVAL) ||
		errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, errors.ErrUnsupported)
}
