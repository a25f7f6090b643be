// Package attrs copies the small set of file attributes that survive a trip
// between filesystems: creation time, modification time and the Finder
// "hide extension" flag.
package attrs

import (
	"log/slog"
	"time"
)

// DefaultRetries bounds the apply-verify cycles of a Cloner.
const DefaultRetries = 50

// Set is the attribute subset kept in sync. Fields the platform cannot
// read or write stay at their zero value on both sides.
type Set struct {
	Created         time.Time
	Modified        time.Time
	ExtensionHidden bool
}

// Equal reports whether two sets hold the same values.
func (s Set) Equal(o Set) bool {
	return s.Created.Equal(o.Created) &&
		s.Modified.Equal(o.Modified) &&
		s.ExtensionHidden == o.ExtensionHidden
}

// FS reads and writes attribute sets.
type FS interface {
	// Read returns the attributes of path, following symlinks.
	Read(path string) (Set, error)
	// Apply writes s onto path, following symlinks.
	Apply(path string, s Set) error
	// CopyTimes copies access and modification times from src to dst
	// without following symlinks on either side.
	CopyTimes(src, dst string) error
}

// Cloner copies attribute sets from a source entry to its copy.
type Cloner struct {
	// Retries is the number of apply-verify cycles before giving up.
	// Zero means DefaultRetries.
	Retries int
	// FS defaults to the host filesystem.
	FS     FS
	Logger *slog.Logger
}

// Clone copies the attribute set of src onto dst.
//
// With follow set, the destination is left alone when it already matches.
// Otherwise the source values are applied and read back; when they did not
// take effect the cycle repeats up to Retries times and then gives up
// without an error. Errors reading or applying attributes are returned.
//
// Without follow, only timestamps are copied onto dst itself and nothing is
// verified. Use this when dst is a symlink.
func (c *Cloner) Clone(src, dst string, follow bool) error {
	fsys := c.fs()
	if !follow {
		return fsys.CopyTimes(src, dst)
	}

	retries := c.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	for range retries {
		done, err := c.cloneOnce(fsys, src, dst)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	c.logger().Debug("attributes did not take effect, giving up",
		"src", src, "dst", dst, "cycles", retries)
	return nil
}

func (c *Cloner) cloneOnce(fsys FS, src, dst string) (bool, error) {
	want, err := fsys.Read(src)
	if err != nil {
		return false, err
	}
	have, err := fsys.Read(dst)
	if err != nil {
		return false, err
	}
	if want.Equal(have) {
		return true, nil
	}

	if err := fsys.Apply(dst, want); err != nil {
		return false, err
	}

	have, err = fsys.Read(dst)
	if err != nil {
		return false, err
	}
	return want.Equal(have), nil
}

func (c *Cloner) fs() FS {
	if c.FS != nil {
		return c.FS
	}
	return OS{}
}

func (c *Cloner) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
