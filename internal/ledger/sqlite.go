package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRootsMismatch is returned when a ledger database is reopened for a
// different source/destination pair than the one that created it.
var ErrRootsMismatch = errors.New("ledger roots mismatch")

// SQLite is a Store backed by a SQLite database file. Every write is
// committed before it returns so a killed process loses nothing.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the ledger database at path for the given
// source/destination roots.
func OpenSQLite(path, src, dst string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path}
	if err := s.init(src, dst); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init(src, dst string) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS failures (
			source       TEXT PRIMARY KEY,
			destination  TEXT NOT NULL,
			attempts     INTEGER NOT NULL,
			last_error   TEXT NOT NULL,
			last_trace   TEXT NOT NULL,
			source_size  INTEGER NOT NULL,
			source_mtime INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	// Validate or store src/dst roots.
	var storedSrc, storedDst string
	row := s.db.QueryRow("SELECT value FROM meta WHERE key = 'src_root'")
	if err := row.Scan(&storedSrc); err == nil {
		row2 := s.db.QueryRow("SELECT value FROM meta WHERE key = 'dst_root'")
		if err := row2.Scan(&storedDst); err != nil {
			return fmt.Errorf("read meta: %w", err)
		}
		if storedSrc != src || storedDst != dst {
			return fmt.Errorf("%w: stored %s->%s, got %s->%s",
				ErrRootsMismatch, storedSrc, storedDst, src, dst)
		}
	} else if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('src_root', ?), ('dst_root', ?)", src, dst)
		if err != nil {
			return fmt.Errorf("store meta: %w", err)
		}
	} else {
		return fmt.Errorf("read meta: %w", err)
	}

	return nil
}

func (s *SQLite) Get(src string) (Record, bool, error) {
	var (
		rec              Record
		mtime, updatedAt int64
	)
	err := s.db.QueryRow(`
		SELECT source, destination, attempts, last_error, last_trace,
		       source_size, source_mtime, updated_at
		FROM failures WHERE source = ?`, src,
	).Scan(&rec.Source, &rec.Destination, &rec.Attempts, &rec.LastError, &rec.LastTrace,
		&rec.SourceSize, &mtime, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s: %w", src, err)
	}
	rec.SourceModTime = fromNanos(mtime)
	rec.UpdatedAt = fromNanos(updatedAt)
	return rec, true, nil
}

func (s *SQLite) Set(rec Record) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO failures
			(source, destination, attempts, last_error, last_trace, source_size, source_mtime, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Source, rec.Destination, rec.Attempts, rec.LastError, rec.LastTrace,
		rec.SourceSize, toNanos(rec.SourceModTime), toNanos(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("set %s: %w", rec.Source, err)
	}
	return nil
}

func (s *SQLite) Delete(src string) error {
	if _, err := s.db.Exec("DELETE FROM failures WHERE source = ?", src); err != nil {
		return fmt.Errorf("delete %s: %w", src, err)
	}
	return nil
}

func (s *SQLite) Clear() error {
	if _, err := s.db.Exec("DELETE FROM failures"); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

func (s *SQLite) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT source FROM failures ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the path to the ledger database file.
func (s *SQLite) Path() string {
	return s.path
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
