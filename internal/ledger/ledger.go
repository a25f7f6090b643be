// Package ledger records per-source copy failures so an interrupted or
// partially failed transfer can resume where it left off.
package ledger

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"
)

// DirName is the name of the default ledger directory created inside the
// source root.
const DirName = ".ferry_progress"

// Record is the retry state of one source path. Its presence in a Store
// means the last attempt for Source did not complete cleanly.
type Record struct {
	Source      string
	Destination string
	Attempts    int
	LastError   string
	LastTrace   string

	// Source size and mtime observed when the failure was recorded, used by
	// the "changed" invalidation policy.
	SourceSize    int64
	SourceModTime time.Time

	UpdatedAt time.Time
}

// Store is a durable mapping from absolute source path to Record.
type Store interface {
	// Get returns the record for src and whether one exists.
	Get(src string) (Record, bool, error)
	// Set stores rec under rec.Source, replacing any previous record.
	Set(rec Record) error
	Delete(src string) error
	// Clear removes every record.
	Clear() error
	// Keys returns every stored source path in ascending order.
	Keys() ([]string, error)
	Close() error
}

// Pending returns the records whose attempt count is still below limit, in
// key order.
func Pending(s Store, limit int) ([]Record, error) {
	all, err := All(s)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if rec.Attempts < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every record in key order.
func All(s Store) ([]Record, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, fmt.Errorf("list ledger keys: %w", err)
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec, ok, err := s.Get(k)
		if err != nil {
			return nil, fmt.Errorf("read ledger record %s: %w", k, err)
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// JobID computes a deterministic identifier for a source/destination pair.
func JobID(src, dst string) string {
	h := blake3.New()
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(dst))
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}

// DefaultDir returns the ledger directory used when none is configured.
func DefaultDir(srcRoot string) string {
	return filepath.Join(srcRoot, DirName)
}

// PathFor returns the ledger database path for a transfer inside dir.
func PathFor(dir, src, dst string) string {
	return filepath.Join(dir, JobID(src, dst)+".db")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
