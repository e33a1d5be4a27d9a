package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kamathanirudh/labstack/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS labs (
    lab_id TEXT PRIMARY KEY,
    lab_type TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    port INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    access_url TEXT,
    ttl_minutes INTEGER NOT NULL DEFAULT 30,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_labs_pending ON labs(status) WHERE status = 'pending';
`

// SQLite is a RecordStore backed by a local SQLite file, for single-node and
// development deployments.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the lab database under dataDir.
func NewSQLite(dataDir string) (*SQLite, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "labs.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, labID string) (*types.LabRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT lab_id, lab_type, resource_id, port, status, access_url, ttl_minutes, created_at
		FROM labs WHERE lab_id = ?
	`, labID)
	return scanSQLiteLab(row.Scan)
}

func scanSQLiteLab(scan func(dest ...any) error) (*types.LabRecord, error) {
	rec := &types.LabRecord{}
	var accessURL sql.NullString
	var createdAt string
	err := scan(&rec.LabID, &rec.LabType, &rec.ResourceID, &rec.Port,
		&rec.Status, &accessURL, &rec.TTLMinutes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan lab record: %w", err)
	}
	if accessURL.Valid {
		rec.AccessURL = &accessURL.String
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

func (s *SQLite) Put(ctx context.Context, rec *types.LabRecord) error {
	var accessURL any
	if rec.AccessURL != nil {
		accessURL = *rec.AccessURL
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labs (lab_id, lab_type, resource_id, port, status, access_url, ttl_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.LabID, rec.LabType, rec.ResourceID, rec.Port, rec.Status, accessURL,
		rec.TTLMinutes, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert lab record %s: %w", rec.LabID, err)
	}
	return nil
}

func (s *SQLite) MarkReady(ctx context.Context, labID, accessURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE labs SET status = ?, access_url = ? WHERE lab_id = ? AND status = ?
	`, types.LabStatusReady, accessURL, labID, types.LabStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark lab %s ready: %w", labID, err)
	}
	return nil
}

func (s *SQLite) MarkTerminated(ctx context.Context, labID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE labs SET status = ? WHERE lab_id = ?
	`, types.LabStatusTerminated, labID)
	if err != nil {
		return fmt.Errorf("failed to mark lab %s terminated: %w", labID, err)
	}
	return nil
}

func (s *SQLite) ListPending(ctx context.Context) ([]*types.LabRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lab_id, lab_type, resource_id, port, status, access_url, ttl_minutes, created_at
		FROM labs WHERE status = ?
	`, types.LabStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending labs: %w", err)
	}
	defer rows.Close()

	var result []*types.LabRecord
	for rows.Next() {
		rec, err := scanSQLiteLab(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
