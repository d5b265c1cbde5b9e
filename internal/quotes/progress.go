package quotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveProgress upserts the last processed chunk index for a source document,
// letting an interrupted extraction run resume where it stopped.
func (s *Store) SaveProgress(ctx context.Context, sourcePath string, lastChunk int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (source_path, last_chunk, updated_at) VALUES (?, ?, ?)
         ON CONFLICT (source_path) DO UPDATE SET last_chunk = excluded.last_chunk, updated_at = excluded.updated_at`,
		sourcePath, lastChunk, timestamp(),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// LoadProgress returns the last processed chunk index for a source document.
// The second return is false when no progress has been recorded.
func (s *Store) LoadProgress(ctx context.Context, sourcePath string) (int, bool, error) {
	var lastChunk int
	err := s.db.QueryRowContext(ctx,
		`SELECT last_chunk FROM progress WHERE source_path = ?`, sourcePath,
	).Scan(&lastChunk)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load progress: %w", err)
	}
	return lastChunk, true, nil
}

// ClearProgress removes the resume point for a source document.
func (s *Store) ClearProgress(ctx context.Context, sourcePath string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM progress WHERE source_path = ?`, sourcePath,
	); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
