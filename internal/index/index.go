// Package index maintains a derived SQLite projection of the append-only
// collections for keyword search and statistics. The JSONL/Markdown files
// stay the sole source of truth; the index is disposable and rebuilt from a
// full scan.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nomore1007/SnekretAIry/internal/store"
)

// Index wraps the projection database.
type Index struct {
	db   *sql.DB
	path string
}

// Hit is one search result.
type Hit struct {
	Ref       string    `json:"ref"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarizes the indexed collections.
type Stats struct {
	DBPath         string         `json:"db_path"`
	DBSizeBytes    int64          `json:"db_size_bytes"`
	Goals          int            `json:"goals"`
	Tasks          int            `json:"tasks"`
	ByStatus       map[string]int `json:"by_status"`
	JournalEntries int            `json:"journal_entries"`
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	idx := &Index{db: db, path: path}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return idx, nil
}

func (i *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		text       TEXT NOT NULL,
		status     TEXT NOT NULL,
		parent_id  TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
	CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);

	CREATE TABLE IF NOT EXISTS journal (
		ts   TEXT PRIMARY KEY,
		body TEXT NOT NULL
	);
	`
	_, err := i.db.Exec(schema)
	return err
}

// Rebuild drops the projection and repopulates it from a store scan. The
// effective (folded) record per ID is indexed, so search reflects current
// statuses.
func (i *Index) Rebuild(ctx context.Context, st *store.Store) error {
	telos, _, err := st.ScanTelos(ctx)
	if err != nil {
		return err
	}
	journal, _, err := st.ScanJournal(ctx)
	if err != nil {
		return err
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM journal`); err != nil {
		return err
	}

	for _, rec := range store.FoldOrdered(telos) {
		var parent *string
		if rec.ParentID != "" {
			parent = &rec.ParentID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, kind, text, status, parent_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Kind, rec.Text, rec.Status, parent,
			rec.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("index record %s: %w", rec.ID, err)
		}
	}
	for _, e := range journal {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO journal (ts, body) VALUES (?, ?)`,
			e.Timestamp.Format(time.RFC3339Nano), e.Body)
		if err != nil {
			return fmt.Errorf("index journal %s: %w", e.Timestamp.Format(time.RFC3339Nano), err)
		}
	}

	return tx.Commit()
}

// Search finds records and journal entries whose text matches the query
// substring, newest first.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"

	rows, err := i.db.QueryContext(ctx, `
		SELECT id, kind, text, status, created_at FROM records WHERE text LIKE ?
		UNION ALL
		SELECT ts, 'journal', body, '', ts FROM journal WHERE body LIKE ?
		ORDER BY created_at DESC
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var createdAt string
		if err := rows.Scan(&h.Ref, &h.Kind, &h.Text, &h.Status, &createdAt); err != nil {
			return nil, err
		}
		h.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Stats returns counts over the projection.
func (i *Index) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: i.path, ByStatus: map[string]int{}}
	if info, err := os.Stat(i.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE kind = 'goal'`).Scan(&st.Goals); err != nil {
		return st, err
	}
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE kind = 'task'`).Scan(&st.Tasks); err != nil {
		return st, err
	}
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal`).Scan(&st.JournalEntries); err != nil {
		return st, err
	}

	rows, err := i.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM records GROUP BY status`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		st.ByStatus[status] = n
	}
	return st, rows.Err()
}

// Close closes the database.
func (i *Index) Close() error {
	return i.db.Close()
}
