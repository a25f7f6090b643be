package engine

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeCopier_RegularFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o640))
	require.NoError(t, os.Chmod(src, 0o640))
	mtime := time.Date(2015, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	c := &NativeCopier{}
	require.NoError(t, c.Copy(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestNativeCopier_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty")
	dst := filepath.Join(dir, "copy")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	require.NoError(t, (&NativeCopier{}).Copy(context.Background(), src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestNativeCopier_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("keep"), 0o644))

	err := (&NativeCopier{}).Copy(context.Background(), src, dst)
	require.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".ferry-tmp"), "leftover temp file %s", e.Name())
	}
	assert.Equal(t, 0, PendingTmp())
}

func TestNativeCopier_Symlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "link")
	dst := filepath.Join(dir, "copy")
	require.NoError(t, os.Symlink("missing-target", src))

	require.NoError(t, (&NativeCopier{}).Copy(context.Background(), src, dst))

	target, err := os.Readlink(dst)
	require.NoError(t, err)
	assert.Equal(t, "missing-target", target)

	err = (&NativeCopier{}).Copy(context.Background(), src, dst)
	assert.ErrorIs(t, err, fs.ErrExist)
}

func TestNativeCopier_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := (&NativeCopier{}).Copy(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrCopierUnavailable)
}

func TestNativeCopier_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (&NativeCopier{}).Copy(ctx, "a", "b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecCopier_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	c := &ExecCopier{Path: filepath.Join(dir, "no-such-cp")}
	err := c.Copy(context.Background(), src, filepath.Join(dir, "out", "src.txt"))
	assert.ErrorIs(t, err, ErrCopierUnavailable)
}

func TestExecCopier_CopiesIntoParent(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	writeFile(t, src, "alpha")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, (&ExecCopier{}).Copy(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
}

func TestExecCopier_FailureIsNotFatal(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	err := (&ExecCopier{}).Copy(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "dst", "nope"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCopierUnavailable)
}

func TestCleanupTmpFiles(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, ".x.1234abcd.ferry-tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o600))

	RegisterTmp(tmp)
	RegisterTmp(filepath.Join(dir, "already-gone"))
	assert.Equal(t, 2, PendingTmp())
	assert.Equal(t, 1, CleanupTmpFiles())

	assert.Equal(t, 0, PendingTmp())
	assert.NoFileExists(t, tmp)
}
