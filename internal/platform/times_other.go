//go:build !linux && !darwin

package platform

import (
	"os"
	"time"
)

// SetModTime sets the modification time of path. Symlinks are always
// followed on this platform.
func SetModTime(path string, modTime time.Time, _ bool) error {
	return os.Chtimes(path, time.Time{}, modTime)
}

// SetTimes sets both access and modification times of path.
func SetTimes(path string, accTime, modTime time.Time, _ bool) error {
	return os.Chtimes(path, accTime, modTime)
}

// AccessTime is not tracked on this platform and returns the zero time.
func AccessTime(_ string) (time.Time, error) {
	return time.Time{}, nil
}

// BirthTime is not tracked on this platform and returns the zero time.
func BirthTime(_ string, _ bool) (time.Time, error) {
	return time.Time{}, nil
}

// SetBirthTime is a no-op on this platform.
func SetBirthTime(_ string, _ time.Time, _ bool) error {
	return nil
}
