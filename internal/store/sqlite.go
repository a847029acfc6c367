package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/bookshelf/internal/identity"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		book_hash TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		authors TEXT NOT NULL DEFAULT '',
		year TEXT NOT NULL DEFAULT '',
		pub_place TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scans (
		book_hash TEXT NOT NULL REFERENCES books(book_hash) ON DELETE CASCADE,
		page_raw_number_str TEXT NOT NULL,
		position INTEGER NOT NULL,
		scan TEXT NOT NULL,
		created_at TEXT NOT NULL,
		processed_at TEXT NOT NULL,
		PRIMARY KEY (book_hash, page_raw_number_str)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_created ON books(created_at)`,
}

// SQLiteStore keeps one row per book and one row per scan.
// Scan order is the order in which tokens were first inserted.
type SQLiteStore struct {
	db     *sql.DB
	hasher *identity.Hasher
	now    func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string, hasher *identity.Hasher) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	slog.Debug("Opened sqlite book store", "path", path)
	return &SQLiteStore{db: db, hasher: hasher, now: time.Now}, nil
}

func (s *SQLiteStore) IsConnected(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE book_hash = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query book %s: %w", id, err)
	}
	return true, nil
}

func (s *SQLiteStore) GetByMetadata(ctx context.Context, meta models.Metadata) (*models.BookAggregate, error) {
	return s.GetByIdentity(ctx, s.hasher.Derive(meta))
}

func (s *SQLiteStore) GetByIdentity(ctx context.Context, id string) (*models.BookAggregate, error) {
	var metaJSON, created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT metadata, created_at, updated_at FROM books WHERE book_hash = ?`, id,
	).Scan(&metaJSON, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query book %s: %w", id, err)
	}

	agg := &models.BookAggregate{Identity: id}
	if err := json.Unmarshal([]byte(metaJSON), &agg.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
	}
	if agg.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if agg.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}

	if agg.Scans, err = s.scans(ctx, id); err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *SQLiteStore) scans(ctx context.Context, id string) ([]models.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scan, created_at, processed_at FROM scans WHERE book_hash = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query scans for %s: %w", id, err)
	}
	defer rows.Close()

	var scans []models.ScanRecord
	for rows.Next() {
		var scanJSON, created, processed string
		if err := rows.Scan(&scanJSON, &created, &processed); err != nil {
			return nil, fmt.Errorf("scan row for %s: %w", id, err)
		}
		var rec models.ScanRecord
		if err := json.Unmarshal([]byte(scanJSON), &rec); err != nil {
			return nil, fmt.Errorf("decode scan for %s: %w", id, err)
		}
		// the columns are authoritative for timestamps
		if rec.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if rec.ProcessedAt, err = parseTime(processed); err != nil {
			return nil, err
		}
		scans = append(scans, rec)
	}
	return scans, rows.Err()
}

// Upsert writes the book row and the scan row in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, id string, meta models.Metadata, scan models.ScanRecord) error {
	now := s.now().UTC()
	ts := formatTime(now)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", id, err)
	}

	scan.ProcessedAt = now
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	scanJSON, err := json.Marshal(scan)
	if err != nil {
		return fmt.Errorf("marshal scan %s for %s: %w", scan.RawToken, id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO books (book_hash, title, authors, year, pub_place, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_hash) DO UPDATE SET
		  title = excluded.title,
		  authors = excluded.authors,
		  year = excluded.year,
		  pub_place = excluded.pub_place,
		  metadata = excluded.metadata,
		  updated_at = excluded.updated_at
	`, id, meta.Title, meta.Authors, meta.Year, meta.Place, string(metaJSON), ts, ts); err != nil {
		return fmt.Errorf("exec book upsert for %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scans (book_hash, page_raw_number_str, position, scan, created_at, processed_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM scans WHERE book_hash = ?), ?, ?, ?)
		ON CONFLICT(book_hash, page_raw_number_str) DO UPDATE SET
		  scan = excluded.scan,
		  processed_at = excluded.processed_at
	`, id, scan.RawToken, id, string(scanJSON), formatTime(scan.CreatedAt), ts); err != nil {
		return fmt.Errorf("exec scan upsert %s for %s: %w", scan.RawToken, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.BookAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT book_hash FROM books ORDER BY created_at, book_hash`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan book id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	result := make([]*models.BookAggregate, 0, len(ids))
	for _, id := range ids {
		agg, err := s.GetByIdentity(ctx, id)
		if err != nil {
			return nil, err
		}
		if agg != nil {
			result = append(result, agg)
		}
	}
	return result, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// fixed width so that text order is time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
