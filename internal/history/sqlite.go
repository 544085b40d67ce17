// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// DBFile is the history database name under the download root.
const DBFile = "history.db"

// timestampLayout is fixed-width so timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the durable Store. Reads run concurrently; writes are
// serialized through mu.
type SQLite struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates dir/history.db and its schema. A missing file is
// created empty.
func Open(dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	path := filepath.Join(dir, DBFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS history (
			key TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			path TEXT,
			files TEXT,
			total_size INTEGER,
			strategy TEXT,
			name TEXT,
			repository TEXT,
			url TEXT,
			doi TEXT,
			source_title TEXT,
			source_url TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_status ON history(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

const selectColumns = `key, status, timestamp, path, files, total_size, strategy,
	name, repository, url, doi, source_title, source_url`

func (s *SQLite) Contains(ctx context.Context, key string) bool {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM history WHERE key = ?`, key).Scan(&n)
	return err == nil && n > 0
}

func (s *SQLite) Get(ctx context.Context, key string) (*types.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM history WHERE key = ?`, key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading history %s: %w", key, err)
	}
	return rec, nil
}

func (s *SQLite) Put(ctx context.Context, key string, rec types.HistoryRecord) error {
	files, err := json.Marshal(rec.Files)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO history
		(key, status, timestamp, path, files, total_size, strategy,
		 name, repository, url, doi, source_title, source_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, string(rec.Status), rec.Timestamp.UTC().Format(timestampLayout),
		rec.Path, string(files), rec.TotalSize, rec.Strategy,
		rec.Name, string(rec.Repository), rec.URL, rec.DOI,
		rec.SourceTitle, rec.SourceURL)
	if err != nil {
		return fmt.Errorf("writing history %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE key = ?`, key); err != nil {
		return fmt.Errorf("removing history %s: %w", key, err)
	}
	return nil
}

// Flush checkpoints the write-ahead log into the main database file.
func (s *SQLite) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpointing history: %w", err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]types.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM history ORDER BY timestamp DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []types.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*types.HistoryRecord, error) {
	var (
		rec       types.HistoryRecord
		status    string
		ts        string
		path      sql.NullString
		files     sql.NullString
		totalSize sql.NullInt64
		strategy  sql.NullString
		name      sql.NullString
		repo      sql.NullString
		url       sql.NullString
		doi       sql.NullString
		srcTitle  sql.NullString
		srcURL    sql.NullString
	)
	if err := sc.Scan(&rec.Key, &status, &ts, &path, &files, &totalSize, &strategy,
		&name, &repo, &url, &doi, &srcTitle, &srcURL); err != nil {
		return nil, err
	}
	rec.Status = types.HistoryStatus(status)
	if t, err := time.Parse(timestampLayout, ts); err == nil {
		rec.Timestamp = t
	}
	rec.Path = path.String
	if files.String != "" {
		if err := json.Unmarshal([]byte(files.String), &rec.Files); err != nil {
			return nil, fmt.Errorf("parsing manifest for %s: %w", rec.Key, err)
		}
	}
	rec.TotalSize = totalSize.Int64
	rec.Strategy = strategy.String
	rec.Name = name.String
	rec.Repository = types.RepositoryTag(repo.String)
	rec.URL = url.String
	rec.DOI = doi.String
	rec.SourceTitle = srcTitle.String
	rec.SourceURL = srcURL.String
	return &rec, nil
}
