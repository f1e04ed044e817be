// Package store implements the append-only memory store: goal/task records
// in telos.jsonl, journal entries in journal.md, and the change log in
// changes.jsonl. Existing bytes are never altered or removed; every write is
// an atomic whole-file replace that only extends the previous content.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"
)

const (
	telosFile   = "telos.jsonl"
	journalFile = "journal.md"
	changesFile = "changes.jsonl"
	lockFile    = ".lock"

	// lockWait bounds how long an append waits on another process before
	// giving up with ErrConcurrency.
	lockWait  = 250 * time.Millisecond
	lockRetry = 25 * time.Millisecond
)

// Store provides append and scan access to one memory directory.
type Store struct {
	dir     string
	entropy *rand.Rand
	now     func() time.Time
}

// ScanFault reports a corrupt region encountered during a scan. Pos is the
// 1-based line number for JSONL files and the block index for the journal.
// Well-formed entries before and after the fault are still returned.
type ScanFault struct {
	Pos int
	Err error
}

// Open creates the memory directory if needed and returns a store for it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create memory dir: %v", ErrStorage, err)
	}
	return &Store{
		dir:     dir,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Dir returns the memory directory path.
func (s *Store) Dir() string { return s.dir }

// NewID returns a fresh sortable record ID.
func (s *Store) NewID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *Store) telosPath() string   { return filepath.Join(s.dir, telosFile) }
func (s *Store) journalPath() string { return filepath.Join(s.dir, journalFile) }
func (s *Store) changesPath() string { return filepath.Join(s.dir, changesFile) }

// withLock runs fn under the store's exclusive advisory lock. Contention
// beyond lockWait fails fast with ErrConcurrency instead of blocking.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	fl := flock.New(filepath.Join(s.dir, lockFile))
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, lockRetry)
	if !ok {
		if err != nil && lockCtx.Err() == nil {
			return fmt.Errorf("%w: acquire lock: %v", ErrStorage, err)
		}
		return fmt.Errorf("%w: memory store is locked by another process", ErrConcurrency)
	}
	defer func() {
		if uerr := fl.Unlock(); uerr != nil {
			slog.Warn("store: release lock", "error", uerr)
		}
	}()

	return fn()
}

// appendBytes extends path by data via a same-directory temp file and an
// atomic rename. On failure the original file is untouched, so readers never
// observe a partially written record.
func (s *Store) appendBytes(path string, data []byte) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: read %s: %v", ErrStorage, filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open temp for %s: %v", ErrStorage, filepath.Base(path), err)
	}

	write := func() error {
		if _, werr := f.Write(existing); werr != nil {
			return werr
		}
		if _, werr := f.Write(data); werr != nil {
			return werr
		}
		return f.Sync()
	}
	if werr := write(); werr != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %v", ErrStorage, filepath.Base(path), werr)
	}
	if cerr := f.Close(); cerr != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close temp for %s: %v", ErrStorage, filepath.Base(path), cerr)
	}
	if rerr := os.Rename(tmp, path); rerr != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %v", ErrStorage, filepath.Base(path), rerr)
	}
	return nil
}

// readFileIfExists reads path, treating a missing file as empty.
func readFileIfExists(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, filepath.Base(path), err)
	}
	return raw, nil
}

// clampTime enforces non-decreasing timestamps within a collection.
func clampTime(t, last time.Time) time.Time {
	if t.Before(last) {
		return last
	}
	return t
}
