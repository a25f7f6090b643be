//go:build !linux && !darwin

package platform

import "errors"

// ListXattrs reports no attributes on platforms without xattr syscalls.
func ListXattrs(_ string) ([]string, error) { return nil, nil }

// GetXattr always fails with ErrXattrUnsupported.
func GetXattr(_, _ string) ([]byte, error) { return nil, ErrXattrUnsupported }

// SetXattr always fails with ErrXattrUnsupported.
func SetXattr(_, _ string, _ []byte) error { return ErrXattrUnsupported }

// RemoveXattr always fails with ErrXattrUnsupported.
func RemoveXattr(_, _ string) error { return ErrXattrUnsupported }

// IsNoAttr reports whether err means the requested attribute is not set.
func IsNoAttr(_ error) bool { return false }

// FinderFlags reports no flags on platforms without xattr syscalls.
func FinderFlags(_ string) (uint16, error) { return 0, nil }

// SetFinderFlag always fails with ErrXattrUnsupported.
func SetFinderFlag(_ string, _ uint16, _ bool) error { return ErrXattrUnsupported }

// IsXattrUnsupported reports whether err means the filesystem cannot store
// extended attributes.
func IsXattrUnsupported(err error) bool { return errors.Is(err, ErrXattrUnsupported) }
