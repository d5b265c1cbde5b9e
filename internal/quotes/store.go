package quotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gleaner/internal/config"
)

// Store manages quote persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the quote database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const quoteColumns = `q.id, q.provenance, q.quote_text, q.speaker, q.context, q.topic, q.extra_json, q.created_at,
    a.status, a.approved_by`

const quoteFrom = ` FROM quotes q LEFT JOIN approvals a ON a.quote_id = q.id`

func scanQuote(scanner interface{ Scan(dest ...any) error }) (*Quote, error) {
	var (
		id         int64
		provenance string
		text       string
		speaker    sql.NullString
		context    sql.NullString
		topic      sql.NullString
		extra      sql.NullString
		createdRaw sql.NullString
		status     sql.NullString
		approvedBy sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&provenance,
		&text,
		&speaker,
		&context,
		&topic,
		&extra,
		&createdRaw,
		&status,
		&approvedBy,
	); err != nil {
		return nil, err
	}

	quote := &Quote{
		ID:         id,
		Provenance: provenance,
		Text:       text,
		Speaker:    speaker.String,
		Context:    context.String,
		Topic:      topic.String,
		ExtraJSON:  extra.String,
		Status:     Status(status.String),
		ApprovedBy: approvedBy.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		quote.CreatedAt = created
	}
	return quote, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
