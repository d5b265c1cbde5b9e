package quotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// InsertQuotes stores a batch of extracted quotes. Duplicates (same
// provenance and text) are ignored so re-running extraction over the same
// book is idempotent. Every newly inserted quote receives a pending approval
// record in the same transaction. Returns the number of quotes inserted.
func (s *Store) InsertQuotes(ctx context.Context, batch []NewQuote) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp()
	var inserted int64
	for _, q := range batch {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO quotes (provenance, quote_text, speaker, context, topic, extra_json, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT (provenance, quote_text) DO NOTHING`,
			q.Provenance,
			q.Text,
			nullableString(q.Speaker),
			nullableString(q.Context),
			nullableString(q.Topic),
			nullableString(q.ExtraJSON),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert quote: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			continue
		}
		quoteID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO approvals (quote_id, status, created_at, updated_at) VALUES (?, ?, ?, ?)
             ON CONFLICT (quote_id) DO NOTHING`,
			quoteID, StatusPending, now, now,
		); err != nil {
			return 0, fmt.Errorf("insert approval: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}
	return inserted, nil
}

// CreateMissingApprovals gives every quote lacking an approval record a
// pending one. Safe to run repeatedly: the second run creates zero records.
func (s *Store) CreateMissingApprovals(ctx context.Context) (int64, error) {
	now := timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO approvals (quote_id, status, created_at, updated_at)
         SELECT q.id, ?, ?, ?
         FROM quotes q LEFT JOIN approvals a ON a.quote_id = q.id
         WHERE a.id IS NULL`,
		StatusPending, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("create missing approvals: %w", err)
	}
	return res.RowsAffected()
}

// PendingQuotes returns all quotes whose approval status is pending, ordered
// by identifier. Identifier order approximates document order and is the
// engine's only notion of proximity.
func (s *Store) PendingQuotes(ctx context.Context) ([]*Quote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quoteColumns+quoteFrom+` WHERE a.status = ? ORDER BY q.id`,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

// GetByID fetches a quote by identifier, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Quote, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+quoteColumns+quoteFrom+` WHERE q.id = ?`, id)
	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return quote, nil
}

// SetDecision records a terminal status for a single quote, guarded so an
// already-decided quote is never overwritten. Returns true when the row
// transitioned.
func (s *Store) SetDecision(ctx context.Context, quoteID int64, status Status, approvedBy string) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("set decision: status %q is not terminal", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE approvals SET status = ?, approved_by = ?, updated_at = ?
         WHERE quote_id = ? AND status = ?`,
		status, approvedBy, timestamp(), quoteID, StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("set decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns quote counts grouped by status plus group aggregates.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: make(map[Status]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM approvals GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("status stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM quote_groups`).Scan(&stats.Groups); err != nil {
		return stats, fmt.Errorf("group count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM group_members`).Scan(&stats.Grouped); err != nil {
		return stats, fmt.Errorf("grouped count: %w", err)
	}
	return stats, nil
}

// GroupMembers returns the member quote IDs of a group in identifier order.
func (s *Store) GroupMembers(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT quote_id FROM group_members WHERE group_id = ? ORDER BY quote_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
