//go:build darwin

package platform

import (
	"golang.org/x/sys/unix"
)

// CopyFile copies with read/write on macOS. Copy-on-write clones go through
// Clone instead, which needs the destination path to not exist yet.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	return copyReadWrite(params)
}

// Clone creates dst as a copy-on-write clone of src with clonefile(2),
// carrying data, extended attributes and resource forks. ok is false when
// the filesystem cannot clone and the caller should fall back to CopyFile.
// An existing dst is reported as an error, never overwritten.
func Clone(src, dst string) (ok bool, err error) {
	err = unix.Clonefile(src, dst, unix.CLONE_NOFOLLOW)
	if err == nil {
		return true, nil
	}
	if fallbackErr(err) {
		return false, nil
	}
	return false, err
}
