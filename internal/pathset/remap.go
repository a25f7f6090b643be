package pathset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Pair is a source entry and its destination counterpart.
type Pair struct {
	Src string
	Dst string
}

// Remap maps path, which must begin with srcRoot, onto dstRoot: the srcRoot
// prefix is stripped, one leading separator is trimmed and the remainder is
// joined under dstRoot. An empty remainder yields dstRoot itself.
//
// Remap is not idempotent: remapping its own output treats the whole output
// as the remainder.
func Remap(srcRoot, dstRoot, path string) string {
	rest := strings.TrimPrefix(path, srcRoot)
	rest = strings.TrimPrefix(rest, string(os.PathSeparator))
	return filepath.Join(dstRoot, rest)
}

// RemapAll applies Remap to every path, preserving order and length.
func RemapAll(srcRoot, dstRoot string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = Remap(srcRoot, dstRoot, p)
	}
	return out
}

// Zip pairs two parallel sequences. They must have equal length.
func Zip(srcs, dsts []string) ([]Pair, error) {
	if len(srcs) != len(dsts) {
		return nil, fmt.Errorf("zip: %d sources but %d destinations", len(srcs), len(dsts))
	}
	pairs := make([]Pair, len(srcs))
	for i := range srcs {
		pairs[i] = Pair{Src: srcs[i], Dst: dsts[i]}
	}
	return pairs, nil
}

// Without returns the pairs whose source is not in drop. The input is left
// untouched.
func Without(pairs []Pair, drop map[string]struct{}) []Pair {
	if len(drop) == 0 {
		return pairs
	}
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := drop[p.Src]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}
