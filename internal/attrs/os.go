package attrs

import (
	"fmt"
	"os"

	"github.com/bamsammich/ferry/internal/platform"
)

// OS is the host filesystem implementation of FS.
type OS struct{}

func (OS) Read(path string) (Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Set{}, fmt.Errorf("stat %s: %w", path, err)
	}
	created, err := platform.BirthTime(path, true)
	if err != nil {
		return Set{}, err
	}
	hidden, err := extensionHidden(path)
	if err != nil {
		return Set{}, err
	}
	return Set{
		Created:         created,
		Modified:        info.ModTime(),
		ExtensionHidden: hidden,
	}, nil
}

func (OS) Apply(path string, s Set) error {
	if err := platform.SetModTime(path, s.Modified, true); err != nil {
		return err
	}
	// Set after the mtime: an mtime older than the creation time drags the
	// creation time back with it.
	if !s.Created.IsZero() {
		if err := platform.SetBirthTime(path, s.Created, true); err != nil {
			return err
		}
	}
	return setExtensionHidden(path, s.ExtensionHidden)
}

func (OS) CopyTimes(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("lstat %s: %w", src, err)
	}
	atime, err := platform.AccessTime(src)
	if err != nil {
		return err
	}
	return platform.SetTimes(dst, atime, info.ModTime(), false)
}
