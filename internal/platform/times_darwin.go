//go:build darwin

package platform

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// SetModTime sets the modification time of path. Darwin lacks UTIME_OMIT,
// so the current access time is read back and written unchanged.
func SetModTime(path string, modTime time.Time, follow bool) error {
	atime, err := accessTime(path, follow)
	if err != nil {
		return err
	}
	return SetTimes(path, atime, modTime, follow)
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
	return accessTime(path, false)
}

func accessTime(path string, follow bool) (time.Time, error) {
	st, err := stat(path, follow)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec), nil
}

// BirthTime returns the creation time of path.
func BirthTime(path string, follow bool) (time.Time, error) {
	st, err := stat(path, follow)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(st.Btim.Sec, st.Btim.Nsec), nil
}

// SetBirthTime sets the creation time of path with setattrlist(2).
func SetBirthTime(path string, t time.Time, follow bool) error {
	attrs := unix.Attrlist{
		Bitmapcount: unix.ATTR_BIT_MAP_COUNT,
		Commonattr:  unix.ATTR_CMN_CRTIME,
	}
	ts := unix.NsecToTimespec(t.UnixNano())
	buf := make([]byte, 16)
	binary.NativeEndian.PutUint64(buf[0:], uint64(ts.Sec))
	binary.NativeEndian.PutUint64(buf[8:], uint64(ts.Nsec))

	opts := 0
	if !follow {
		opts = unix.FSOPT_NOFOLLOW
	}
	if err := unix.Setattrlist(path, &attrs, buf, opts); err != nil {
		return fmt.Errorf("setattrlist %s: %w", path, err)
	}
	return nil
}

func stat(path string, follow bool) (*unix.Stat_t, error) {
	var st unix.Stat_t
	var err error
	if follow {
		err = unix.Stat(path, &st)
	} else {
		err = unix.Lstat(path, &st)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &st, nil
}
