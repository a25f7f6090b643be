//go:build linux || darwin

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ListXattrs returns the extended attribute names set on path. Filesystems
// without xattr support report an empty list.
func ListXattrs(path string) ([]string, error) {
	sz, err := unix.Listxattr(path, nil)
	if err != nil {
		if isNoXattrSupport(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listxattr %s: %w", path, err)
	}
	if sz == 0 {
		return nil, nil
	}

	buf := make([]byte, sz)
	sz, err = unix.Listxattr(path, buf)
	if err != nil {
		return nil, fmt.Errorf("listxattr %s: %w", path, err)
	}
	return parseXattrNames(buf[:sz]), nil
}

// GetXattr reads a single extended attribute value.
func GetXattr(path, name string) ([]byte, error) {
	sz, err := unix.Getxattr(path, name, nil)
	if err != nil {
		return nil, fmt.Errorf("getxattr %s %s: %w", path, name, err)
	}
	if sz == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, sz)
	sz, err = unix.Getxattr(path, name, buf)
	if err != nil {
		return nil, fmt.Errorf("getxattr %s %s: %w", path, name, err)
	}
	return buf[:sz], nil
}

// SetXattr creates or replaces an extended attribute value.
func SetXattr(path, name string, value []byte) error {
	if err := unix.Setxattr(path, name, value, 0); err != nil {
		return fmt.Errorf("setxattr %s %s: %w", path, name, err)
	}
	return nil
}

// RemoveXattr deletes an extended attribute. A missing attribute is not an
// error.
func RemoveXattr(path, name string) error {
	err := unix.Removexattr(path, name)
	if err == nil || errors.Is(err, errNoAttr) {
		return nil
	}
	return fmt.Errorf("removexattr %s %s: %w", path, name, err)
}

// IsNoAttr reports whether err means the requested attribute is not set.
func IsNoAttr(err error) bool {
	return errors.Is(err, errNoAttr)
}

// IsXattrUnsupported reports whether err means the filesystem cannot store
// extended attributes.
func IsXattrUnsupported(err error) bool {
	return isNoXattrSupport(err)
}

func isNoXattrSupport(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP)
}

func parseXattrNames(buf []byte) []string {
	var names []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				names = append(names, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	return names
}
