package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kamathanirudh/labstack/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// labColumns is the list of columns returned by all lab record queries.
const labColumns = `lab_id, lab_type, resource_id, port, status, access_url, ttl_minutes, created_at`

// Postgres is a RecordStore backed by a PostgreSQL connection pool.
// The conditional pending -> ready transition maps to a single
// UPDATE ... WHERE status = 'pending'.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store with a connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate runs database migrations.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err = s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	migrations := []struct {
		version  int
		filename string
	}{
		{1, "migrations/001_labs.up.sql"},
	}

	for _, m := range migrations {
		if currentVersion >= m.version {
			continue
		}
		sql, err := migrationsFS.ReadFile(m.filename)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", m.filename, err)
		}
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply migration %03d: %w", m.version, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			return fmt.Errorf("failed to record migration %03d: %w", m.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %03d: %w", m.version, err)
		}
	}

	return nil
}

func scanLab(row pgx.Row) (*types.LabRecord, error) {
	rec := &types.LabRecord{}
	err := row.Scan(&rec.LabID, &rec.LabType, &rec.ResourceID, &rec.Port,
		&rec.Status, &rec.AccessURL, &rec.TTLMinutes, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan lab record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) Get(ctx context.Context, labID string) (*types.LabRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+labColumns+` FROM labs WHERE lab_id = $1`, labID)
	return scanLab(row)
}

func (s *Postgres) Put(ctx context.Context, rec *types.LabRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO labs (lab_id, lab_type, resource_id, port, status, access_url, ttl_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.LabID, rec.LabType, rec.ResourceID, rec.Port, rec.Status, rec.AccessURL, rec.TTLMinutes, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lab record %s: %w", rec.LabID, err)
	}
	return nil
}

func (s *Postgres) MarkReady(ctx context.Context, labID, accessURL string) error {
	// Zero rows affected means the record already left pending; the racing
	// writer computed the same URL, so there is nothing to do.
	_, err := s.pool.Exec(ctx, `
		UPDATE labs SET status = $2, access_url = $3
		WHERE lab_id = $1 AND status = $4
	`, labID, types.LabStatusReady, accessURL, types.LabStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark lab %s ready: %w", labID, err)
	}
	return nil
}

func (s *Postgres) MarkTerminated(ctx context.Context, labID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE labs SET status = $2 WHERE lab_id = $1
	`, labID, types.LabStatusTerminated)
	if err != nil {
		return fmt.Errorf("failed to mark lab %s terminated: %w", labID, err)
	}
	return nil
}

func (s *Postgres) ListPending(ctx context.Context) ([]*types.LabRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+labColumns+` FROM labs WHERE status = $1`, types.LabStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending labs: %w", err)
	}
	defer rows.Close()

	var result []*types.LabRecord
	for rows.Next() {
		rec, err := scanLab(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
