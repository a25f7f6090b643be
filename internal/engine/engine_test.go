package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/ledger"
	"github.com/bamsammich/ferry/internal/pathset"
	"github.com/bamsammich/ferry/internal/stats"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestEngine(store ledger.Store, copier Copier, attempts int) *Engine {
	return &Engine{
		Ledger:  store,
		Copier:  copier,
		Options: Options{Attempts: attempts},
		Stats:   stats.NewCollector(),
	}
}

func mapPairs(t *testing.T, srcRoot, dstRoot string, paths []string) []pathset.Pair {
	t.Helper()
	pairs, err := pathset.Zip(paths, pathset.RemapAll(srcRoot, dstRoot, paths))
	require.NoError(t, err)
	return pairs
}

func collect(ctx context.Context, e *Engine, pairs []pathset.Pair) []Progress {
	var out []Progress
	for p := range e.Copy(ctx, pairs) {
		out = append(out, p)
	}
	return out
}

func TestCopy_ProgressPerPair(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "src", "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "src", "c.txt"), "c")

	copier := newFakeCopier()
	copier.failures[filepath.Join(dir, "src", "b.txt")] = -1

	pairs := mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{
		filepath.Join(dir, "src", "a.txt"),
		filepath.Join(dir, "src", "b.txt"),
		filepath.Join(dir, "src", "c.txt"),
	})

	e := newTestEngine(ledger.NewMemory(), copier, 3)
	progress := collect(context.Background(), e, pairs)

	require.Len(t, progress, 3)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Index)
		assert.Equal(t, 3, p.Total)
	}
	assert.Empty(t, progress[0].Failures)
	assert.Equal(t, []string{pairs[1].Src}, progress[1].Failures)
	assert.Equal(t, []string{pairs[1].Src}, progress[2].Failures)
	require.NoError(t, e.Err())

	snap := e.Stats.Snapshot()
	assert.Equal(t, int64(2), snap.EntriesCopied)
	assert.Equal(t, int64(1), snap.EntriesFailed)
	assert.Equal(t, int64(3), snap.EntriesProcessed)
}

func TestCopy_NotRestartable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")

	copier := newFakeCopier()
	e := newTestEngine(ledger.NewMemory(), copier, 3)
	seq := e.Copy(context.Background(), mapPairs(t, 
		filepath.Join(dir, "src"), filepath.Join(dir, "dst"),
		[]string{filepath.Join(dir, "src", "a.txt")},
	))

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Len(t, copier.Calls(), 1)
}

func TestCopy_IsLazy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "src", "b.txt"), "b")

	copier := newFakeCopier()
	e := newTestEngine(ledger.NewMemory(), copier, 3)
	seq := e.Copy(context.Background(), mapPairs(t, 
		filepath.Join(dir, "src"), filepath.Join(dir, "dst"),
		[]string{filepath.Join(dir, "src", "a.txt"), filepath.Join(dir, "src", "b.txt")},
	))
	assert.Empty(t, copier.Calls(), "nothing runs before iteration")

	for range seq {
		break
	}
	assert.Len(t, copier.Calls(), 1)
}

func TestCopy_FailureCreatesAndAdvancesRecord(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	writeFile(t, src, "a")
	pairs := mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{src})

	copier := newFakeCopier()
	copier.failures[src] = -1
	store := ledger.NewMemory()
	e := newTestEngine(store, copier, 2)

	collect(context.Background(), e, pairs)
	rec, ok, err := store.Get(src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, pairs[0].Dst, rec.Destination)
	assert.Contains(t, rec.LastError, "simulated I/O error")
	assert.Contains(t, rec.LastTrace, "simulated I/O error")
	assert.Equal(t, int64(1), rec.SourceSize)
	assert.False(t, rec.UpdatedAt.IsZero())

	e = newTestEngine(store, copier, 2)
	collect(context.Background(), e, pairs)
	rec, _, err = store.Get(src)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Attempts)

	// At the cap the record is frozen and the copier is not consulted.
	before := rec
	e = newTestEngine(store, copier, 2)
	collect(context.Background(), e, pairs)
	rec, _, err = store.Get(src)
	require.NoError(t, err)
	assert.Equal(t, before, rec)
	assert.Len(t, copier.Calls(), 2)
	assert.Equal(t, int64(1), e.Stats.Snapshot().EntriesExhausted)
}

func TestCopy_SuccessClearsRecord(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	writeFile(t, src, "a")
	pairs := mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{src})

	store := ledger.NewMemory()
	require.NoError(t, store.Set(ledger.Record{Source: src, Destination: pairs[0].Dst, Attempts: 1}))

	copier := newFakeCopier()
	e := newTestEngine(store, copier, 3)
	collect(context.Background(), e, pairs)

	_, ok, err := store.Get(src)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{src}, copier.Calls())
}

func TestCopy_FalseFailureRecovered(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	writeFile(t, src, "same")
	writeFile(t, dst, "same")

	store := ledger.NewMemory()
	require.NoError(t, store.Set(ledger.Record{Source: src, Destination: dst, Attempts: 2}))

	copier := newFakeCopier()
	e := newTestEngine(store, copier, 3)
	progress := collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

	require.Len(t, progress, 1)
	assert.Empty(t, progress[0].Failures)
	assert.Empty(t, copier.Calls())
	_, ok, err := store.Get(src)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), e.Stats.Snapshot().FalseFailures)
}

func TestCopy_CompareRecreatesDifferingFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	writeFile(t, src, "new content")
	writeFile(t, dst, "old")

	copier := newFakeCopier()
	e := newTestEngine(ledger.NewMemory(), copier, 3)
	e.Options.Compare = true
	collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
	assert.Equal(t, int64(1), e.Stats.Snapshot().EntriesRecreated)
}

func TestCopy_WithoutCompareLeavesExistingFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	writeFile(t, src, "new content")
	writeFile(t, dst, "old")

	copier := newFakeCopier()
	e := newTestEngine(ledger.NewMemory(), copier, 3)
	collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.Empty(t, copier.Calls())
	assert.Equal(t, int64(1), e.Stats.Snapshot().EntriesUnchanged)
}

func TestCopy_CompareLeavesMismatchedDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "sub")
	dst := filepath.Join(dir, "dst", "sub")
	writeFile(t, filepath.Join(src, "x"), "x")
	require.NoError(t, os.MkdirAll(dst, 0o755))

	e := newTestEngine(ledger.NewMemory(), newFakeCopier(), 3)
	e.Options.Compare = true
	progress := collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

	require.Len(t, progress, 1)
	assert.Empty(t, progress[0].Failures)
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopy_DanglingSymlinkDestinationCountsAsPresent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "link")
	dst := filepath.Join(dir, "dst", "link")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.Symlink("nowhere", src))
	require.NoError(t, os.Symlink("nowhere", dst))

	copier := newFakeCopier()
	e := newTestEngine(ledger.NewMemory(), copier, 3)
	collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

	assert.Empty(t, copier.Calls())
	assert.Equal(t, int64(1), e.Stats.Snapshot().EntriesUnchanged)
}

func TestCopy_DirectoryCreatedEmpty(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "sub")
	dst := filepath.Join(dir, "dst", "sub")
	writeFile(t, filepath.Join(src, "inner.txt"), "x")

	copier := newFakeCopier()
	e := newTestEngine(ledger.NewMemory(), copier, 3)
	collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, copier.Calls())
	assert.Equal(t, int64(1), e.Stats.Snapshot().DirsCreated)
}

func TestCopy_PanicIsRecordedAsFailure(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	b := filepath.Join(dir, "src", "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	copier := newFakeCopier()
	copier.panicOn = a
	store := ledger.NewMemory()
	e := newTestEngine(store, copier, 3)
	progress := collect(context.Background(), e,
		mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{a, b}))

	require.Len(t, progress, 2)
	assert.Equal(t, []string{a}, progress[1].Failures)
	rec, ok, err := store.Get(a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, rec.LastError, "copier exploded")
	assert.Contains(t, rec.LastTrace, "goroutine")
	assert.FileExists(t, filepath.Join(dir, "dst", "b.txt"))
}

func TestCopy_CopierUnavailableIsFatal(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	b := filepath.Join(dir, "src", "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	copier := newFakeCopier()
	copier.unavailable = true
	store := ledger.NewMemory()
	e := newTestEngine(store, copier, 3)
	progress := collect(context.Background(), e,
		mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{a, b}))

	assert.Empty(t, progress)
	require.ErrorIs(t, e.Err(), ErrCopierUnavailable)
	assert.Len(t, copier.Calls(), 1)
	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCopy_ErrResetOnReuse(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	writeFile(t, a, "a")
	pairs := mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{a})

	copier := newFakeCopier()
	copier.unavailable = true
	e := newTestEngine(ledger.NewMemory(), copier, 3)

	collect(context.Background(), e, pairs)
	require.ErrorIs(t, e.Err(), ErrCopierUnavailable)

	copier.unavailable = false
	progress := collect(context.Background(), e, pairs)
	require.Len(t, progress, 1)
	assert.NoError(t, e.Err())
	assert.FileExists(t, filepath.Join(dir, "dst", "a.txt"))
}

func TestCopy_ContextCanceledStopsBetweenPairs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	b := filepath.Join(dir, "src", "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	copier := newFakeCopier()
	e := newTestEngine(ledger.NewMemory(), copier, 3)
	var seen int
	for range e.Copy(ctx, mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{a, b})) {
		seen++
		cancel()
	}

	assert.Equal(t, 1, seen)
	assert.Equal(t, []string{a}, copier.Calls())
}

func TestCopy_InvalidateChanged(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	writeFile(t, src, "rewritten")

	stale := ledger.Record{
		Source:        src,
		Destination:   dst,
		Attempts:      2,
		SourceSize:    3,
		SourceModTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("none keeps exhausted record", func(t *testing.T) {
		store := ledger.NewMemory()
		require.NoError(t, store.Set(stale))
		copier := newFakeCopier()
		e := newTestEngine(store, copier, 2)

		collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

		rec, ok, err := store.Get(src)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, stale, rec)
		assert.Empty(t, copier.Calls())
	})

	t.Run("changed discards record and copies", func(t *testing.T) {
		store := ledger.NewMemory()
		require.NoError(t, store.Set(stale))
		copier := newFakeCopier()
		e := newTestEngine(store, copier, 2)
		e.Options.Invalidate = InvalidateChanged

		collect(context.Background(), e, []pathset.Pair{{Src: src, Dst: dst}})

		_, ok, err := store.Get(src)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{src}, copier.Calls())
	})

	t.Run("changed drops vanished source", func(t *testing.T) {
		gone := filepath.Join(dir, "src", "gone.txt")
		store := ledger.NewMemory()
		require.NoError(t, store.Set(ledger.Record{Source: gone, Destination: dst, Attempts: 1}))
		copier := newFakeCopier()
		e := newTestEngine(store, copier, 2)
		e.Options.Invalidate = InvalidateChanged

		progress := collect(context.Background(), e, []pathset.Pair{{Src: gone, Dst: dst}})

		require.Len(t, progress, 1)
		assert.Empty(t, progress[0].Failures)
		_, ok, err := store.Get(gone)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, copier.Calls())
	})

	t.Run("changed keeps record when source cannot be stat'd", func(t *testing.T) {
		// A path under a regular file fails with ENOTDIR, not ENOENT.
		blocked := filepath.Join(src, "child")
		rec := ledger.Record{Source: blocked, Destination: dst, Attempts: 2}
		store := ledger.NewMemory()
		require.NoError(t, store.Set(rec))
		copier := newFakeCopier()
		e := newTestEngine(store, copier, 2)
		e.Options.Invalidate = InvalidateChanged

		collect(context.Background(), e, []pathset.Pair{{Src: blocked, Dst: dst}})

		got, ok, err := store.Get(blocked)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec, got)
		assert.Empty(t, copier.Calls())
	})
}

func TestRetry_UntilLedgerExhausted(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	b := filepath.Join(dir, "src", "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	copier := newFakeCopier()
	copier.failures[a] = 2
	copier.failures[b] = -1
	store := ledger.NewMemory()
	e := newTestEngine(store, copier, 4)

	collect(context.Background(), e,
		mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{a, b}))

	var passSizes []int
	passes, err := e.Retry(context.Background(), func(_, n int) { passSizes = append(passSizes, n) }, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, passes)
	assert.Equal(t, []int{2, 2, 1}, passSizes)
	_, ok, err := store.Get(a)
	require.NoError(t, err)
	assert.False(t, ok)
	rec, ok, err := store.Get(b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, rec.Attempts)
}

func TestRetry_MaxPasses(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	writeFile(t, a, "a")

	copier := newFakeCopier()
	copier.failures[a] = -1
	store := ledger.NewMemory()
	e := newTestEngine(store, copier, 10)
	e.Options.MaxPasses = 2

	collect(context.Background(), e,
		mapPairs(t, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), []string{a}))
	passes, err := e.Retry(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, passes)
	rec, _, err := store.Get(a)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, int64(2), e.Stats.Snapshot().Passes)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", Options{Attempts: DefaultAttempts}, false},
		{"changed", Options{Attempts: 1, Invalidate: InvalidateChanged}, false},
		{"zero attempts", Options{}, true},
		{"negative passes", Options{Attempts: 1, MaxPasses: -1}, true},
		{"bad policy", Options{Attempts: 1, Invalidate: "always"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseInvalidation(t *testing.T) {
	p, err := ParseInvalidation("")
	require.NoError(t, err)
	assert.Equal(t, InvalidateNone, p)

	p, err = ParseInvalidation("changed")
	require.NoError(t, err)
	assert.Equal(t, InvalidateChanged, p)

	_, err = ParseInvalidation("sometimes")
	assert.Error(t, err)
}

func TestRetryPairs(t *testing.T) {
	recs := []ledger.Record{{Source: "/s/a", Destination: "/d/a"}, {Source: "/s/b", Destination: "/d/b"}}
	pairs := retryPairs(recs)
	assert.Equal(t, []pathset.Pair{{Src: "/s/a", Dst: "/d/a"}, {Src: "/s/b", Dst: "/d/b"}}, pairs)
}
