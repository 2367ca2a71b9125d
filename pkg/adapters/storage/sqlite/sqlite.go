package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aescanero/chloe/pkg/adapters/storage"
	"github.com/aescanero/chloe/pkg/domain"
	"go.uber.org/zap"

	// Registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// RunStore implements ports.RunStore on SQLite
type RunStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path and prepares the schema
func Open(ctx context.Context, path string, logger *zap.Logger) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writers; an in-memory database only exists per connection
	db.SetMaxOpenConns(1)

	store, err := NewRunStore(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewRunStore initializes the schema in db and returns a store using it
func NewRunStore(ctx context.Context, db *sql.DB, logger *zap.Logger) (*RunStore, error) {
	s := &RunStore{db: db, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *RunStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			linkedin_url TEXT NOT NULL,
			submitted_at INTEGER NOT NULL,
			record BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_submitted_at ON runs (submitted_at);`,
	)
	return err
}

// Save creates or replaces a run record
func (s *RunStore) Save(ctx context.Context, record *domain.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, linkedin_url, submitted_at, record)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status, record = excluded.record`,
		record.ID,
		string(record.Status),
		record.Request.LinkedInURL,
		record.SubmittedAt.UnixNano(),
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	s.logger.Debug("run saved",
		zap.String("run_id", record.ID),
		zap.String("status", string(record.Status)))
	return nil
}

// Get retrieves a run record
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM runs WHERE id = ?`, runID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &record, nil
}

// Delete removes a run record
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// List returns the stored run IDs, most recently submitted first
func (s *RunStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY submitted_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return ids, nil
}

// Close closes the database
func (s *RunStore) Close() error {
	return s.db.Close()
}
