// Package compare decides whether two filesystem entries are equivalent.
package compare

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// Kind classifies a filesystem entry without following symlinks.
type Kind int

const (
	Missing Kind = iota
	File
	Dir
	Symlink
	Other
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case File:
		return "file"
	case Dir:
		return "dir"
	case Symlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindOf returns the kind of path. A path that does not exist is Missing,
// not an error.
func KindOf(path string) (Kind, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Missing, nil
	}
	if err != nil {
		return Missing, fmt.Errorf("lstat %s: %w", path, err)
	}
	return kindOfMode(info.Mode()), nil
}

func kindOfMode(m fs.FileMode) Kind {
	switch {
	case m.IsRegular():
		return File
	case m.IsDir():
		return Dir
	case m&fs.ModeSymlink != 0:
		return Symlink
	default:
		return Other
	}
}

// Equal reports whether a and b are equivalent entries:
//   - two symlinks are equal when their targets are identical strings;
//   - two files are equal when their contents match. With shallow set,
//     files with the same size and modification time are assumed equal
//     without reading them;
//   - two directories are equal when they hold the same names and every
//     child pair is Equal.
//
// Any other combination, including a missing side, is not equal. Equal is
// symmetric in a and b.
func Equal(a, b string, shallow bool) (bool, error) {
	ia, err := lstat(a)
	if err != nil {
		return false, err
	}
	ib, err := lstat(b)
	if err != nil {
		return false, err
	}
	if ia == nil || ib == nil {
		return false, nil
	}

	ka, kb := kindOfMode(ia.Mode()), kindOfMode(ib.Mode())
	if ka != kb {
		return false, nil
	}

	switch ka {
	case Symlink:
		return equalLinks(a, b)
	case File:
		return equalFiles(a, b, ia, ib, shallow)
	case Dir:
		return equalDirs(a, b, shallow)
	default:
		return false, nil
	}
}

// lstat returns nil info for a path that does not exist.
func lstat(path string) (fs.FileInfo, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lstat %s: %w", path, err)
	}
	return info, nil
}

func equalLinks(a, b string) (bool, error) {
	ta, err := os.Readlink(a)
	if err != nil {
		return false, fmt.Errorf("readlink %s: %w", a, err)
	}
	tb, err := os.Readlink(b)
	if err != nil {
		return false, fmt.Errorf("readlink %s: %w", b, err)
	}
	return ta == tb, nil
}

func equalFiles(a, b string, ia, ib fs.FileInfo, shallow bool) (bool, error) {
	if shallow && ia.Size() == ib.Size() && ia.ModTime().Equal(ib.ModTime()) {
		return true, nil
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}
	return equalContents(a, b)
}

const chunkSize = 64 << 10

func equalContents(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", a, err)
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", b, err)
	}
	defer fb.Close()

	bufA := make([]byte, chunkSize)
	bufB := make([]byte, chunkSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if errA != nil && !isEOF(errA) {
			return false, fmt.Errorf("read %s: %w", a, errA)
		}
		if errB != nil && !isEOF(errB) {
			return false, fmt.Errorf("read %s: %w", b, errB)
		}
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if isEOF(errA) || isEOF(errB) {
			return isEOF(errA) && isEOF(errB), nil
		}
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func equalDirs(a, b string, shallow bool) (bool, error) {
	na, err := names(a)
	if err != nil {
		return false, err
	}
	nb, err := names(b)
	if err != nil {
		return false, err
	}
	if !slices.Equal(na, nb) {
		return false, nil
	}

	for _, name := range na {
		eq, err := Equal(filepath.Join(a, name), filepath.Join(b, name), shallow)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func names(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", dir, err)
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name()
	}
	return out, nil
}
