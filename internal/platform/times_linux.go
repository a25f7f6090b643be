//go:build linux

package platform

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// SetModTime sets the modification time of path and leaves the access time
// untouched. With follow false the change applies to a symlink itself.
func SetModTime(path string, modTime time.Time, follow bool) error {
	times := []unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(modTime.UnixNano()),
	}
	flags := 0
	if !follow {
		flags = unix.AT_SYMLINK_NOFOLLOW
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, flags); err != nil {
		return fmt.Errorf("utimensat %s: %w", path, err)
	}
	return nil
}

// SetTimes sets both access and modification times of path.
func SetTimes(path string, accTime, modTime time.Time, follow bool) error {
	times := []unix.Timespec{
		unix.NsecToTimespec(accTime.UnixNano()),
		unix.NsecToTimespec(modTime.UnixNano()),
	}
	flags := 0
	if !follow {
		flags = unix.AT_SYMLINK_NOFOLLOW
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, flags); err != nil {
		return fmt.Errorf("utimensat %s: %w", path, err)
	}
	return nil
}

// AccessTime returns the access time of path without following symlinks.
func AccessTime(path string) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return time.Time{}, fmt.Errorf("lstat %s: %w", path, err)
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec), nil
}

// BirthTime is not settable on Linux, so it is reported as the zero time
// to keep source and destination comparable.
func BirthTime(_ string, _ bool) (time.Time, error) {
	return time.Time{}, nil
}

// SetBirthTime is a no-op on Linux.
func SetBirthTime(_ string, _ time.Time, _ bool) error {
	return nil
}
