//go:build linux || darwin

package platform

import (
	"encoding/binary"
	"fmt"
)

// The flags are stored big-endian at offset 8 of the Finder info.
const (
	finderInfoLen    = 32
	finderFlagsIndex = 8
)

// FinderFlags returns the Finder flags of path, or zero when no Finder info
// is set or the filesystem cannot hold it.
func FinderFlags(path string) (uint16, error) {
	info, err := GetXattr(path, FinderInfoKey)
	if err != nil {
		if IsNoAttr(err) || isNoXattrSupport(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(info) < finderFlagsIndex+2 {
		return 0, nil
	}
	return binary.BigEndian.Uint16(info[finderFlagsIndex:]), nil
}

// SetFinderFlag sets or clears flag in the Finder info of path, leaving the
// other bytes unchanged. Finder info that ends up all zero is removed.
func SetFinderFlag(path string, flag uint16, on bool) error {
	info, err := GetXattr(path, FinderInfoKey)
	if err != nil && !IsNoAttr(err) {
		return err
	}
	buf := make([]byte, finderInfoLen)
	copy(buf, info)

	flags := binary.BigEndian.Uint16(buf[finderFlagsIndex:])
	if on {
		flags |= flag
	} else {
		flags &^= flag
	}
	binary.BigEndian.PutUint16(buf[finderFlagsIndex:], flags)

	if allZero(buf) {
		if err := RemoveXattr(path, FinderInfoKey); err != nil {
			return fmt.Errorf("clear finder info: %w", err)
		}
		return nil
	}
	return SetXattr(path, FinderInfoKey, buf)
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
