package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bamsammich/ferry/internal/meta"
)

var errSimulated = errors.New("simulated I/O error")

// fakeCopier copies plain files and symlinks without preserving anything,
// and can be told to fail, panic or be unavailable.
type fakeCopier struct {
	mu    sync.Mutex
	calls []string

	failures    map[string]int // src -> failures left; negative fails forever
	panicOn     string
	unavailable bool
	before      func(src string)
}

func newFakeCopier() *fakeCopier {
	return &fakeCopier{failures: map[string]int{}}
}

func (f *fakeCopier) Copy(_ context.Context, src, dst string) error {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	before := f.before
	n, failing := f.failures[src]
	if failing && n > 0 {
		f.failures[src] = n - 1
	}
	f.mu.Unlock()

	if before != nil {
		before(src)
	}
	if f.unavailable {
		return fmt.Errorf("%w: no cp in PATH", ErrCopierUnavailable)
	}
	if src == f.panicOn {
		panic("copier exploded")
	}
	if failing && n != 0 {
		return errSimulated
	}

	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (f *fakeCopier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// recordingMeta reports empty metadata for every path and remembers which
// paths were read.
type recordingMeta struct {
	mu    sync.Mutex
	reads []string
}

func (r *recordingMeta) Read(path string) (meta.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads = append(r.reads, path)
	return meta.Set{}, nil
}

func (r *recordingMeta) Replace(string, meta.Set) error   { return nil }
func (r *recordingMeta) SetTags(string, []string) error   { return nil }
func (r *recordingMeta) SetStationery(string, bool) error { return nil }

func (r *recordingMeta) Reads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reads...)
}
