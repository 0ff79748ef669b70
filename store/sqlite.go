package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bgm-tracker/tracker/util"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" opens a private in-memory database.
func Open(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps writes serialized and an in-memory database alive.
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open database and applies the schema.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS tokens (
		user_id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS subjects (
		website TEXT NOT NULL,
		bangumi_id TEXT NOT NULL,
		document TEXT NOT NULL,
		PRIMARY KEY (website, bangumi_id)
	);
	CREATE TABLE IF NOT EXISTS missing_bangumi (
		id TEXT PRIMARY KEY,
		bangumi_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		title TEXT NOT NULL,
		href TEXT NOT NULL,
		website TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`)
	return err
}

func (s *SQLite) UpsertToken(ctx context.Context, userID string, doc []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT document FROM tokens WHERE user_id = ?`, userID).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load token: %w", err)
	}

	merged, err := mergeDocuments([]byte(existing), doc)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO tokens (user_id, document, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		userID, string(merged), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) GetToken(ctx context.Context, userID string) ([]byte, error) {
	return s.queryDocument(ctx, `SELECT document FROM tokens WHERE user_id = ?`, userID)
}

func (s *SQLite) PutSubject(ctx context.Context, website, bangumiID string, doc []byte) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO subjects (website, bangumi_id, document) VALUES (?, ?, ?)
	ON CONFLICT(website, bangumi_id) DO UPDATE SET document = excluded.document`,
		website, bangumiID, string(doc))
	if err != nil {
		return fmt.Errorf("failed to put subject: %w", err)
	}
	return nil
}

func (s *SQLite) FindSubject(ctx context.Context, website, bangumiID string) ([]byte, error) {
	return s.queryDocument(ctx, `SELECT document FROM subjects WHERE website = ? AND bangumi_id = ?`, website, bangumiID)
}

func (s *SQLite) ListSubjects(ctx context.Context, website string) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bangumi_id, document FROM subjects WHERE website = ? ORDER BY bangumi_id`, website)
	if err != nil {
		return nil, err
	}
	defer util.Ignore(rows.Close)

	var subjects []Subject
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		subjects = append(subjects, Subject{Website: website, BangumiID: id, Document: []byte(doc)})
	}
	return subjects, rows.Err()
}

func (s *SQLite) InsertMissing(ctx context.Context, r MissingReport) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO missing_bangumi (id, bangumi_id, subject_id, title, href, website, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), r.BangumiID, r.SubjectID, r.Title, r.Href, r.Website, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (s *SQLite) ListMissing(ctx context.Context, limit int) ([]MissingReport, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT bangumi_id, subject_id, title, href, website
	FROM missing_bangumi
	ORDER BY rowid
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer util.Ignore(rows.Close)

	reports := make([]MissingReport, 0)
	for rows.Next() {
		var r MissingReport
		if err := rows.Scan(&r.BangumiID, &r.SubjectID, &r.Title, &r.Href, &r.Website); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) queryDocument(ctx context.Context, query string, args ...any) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

var _ Store = (*SQLite)(nil)
