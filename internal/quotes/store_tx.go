package quotes

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tx scopes a unit of work. The approval engine commits one grouping window
// per transaction so a failure partway through a window leaves no partial
// group records behind.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction, committing on nil return and rolling
// back otherwise. Busy commits are retried briefly before giving up.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	delay := 10 * time.Millisecond
	var commitErr error
	for attempt := 0; attempt < 5; attempt++ {
		commitErr = tx.Commit()
		if commitErr == nil || !isSQLiteBusy(commitErr) {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = tx.Rollback()
			return ctx.Err()
		}
		delay *= 2
	}
	if commitErr != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit tx: %w", commitErr)
	}
	return nil
}

// QuotesByIDs resolves identifiers to quotes within the transaction,
// preserving the requested order. Unresolvable identifiers are simply absent
// from the result; the caller decides how to treat them.
func (t *Tx) QuotesByIDs(ctx context.Context, ids []int64) ([]*Quote, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+quoteColumns+quoteFrom+` WHERE q.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*Quote, len(ids))
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		byID[quote.ID] = quote
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*Quote, 0, len(byID))
	for _, id := range ids {
		if quote, ok := byID[id]; ok {
			ordered = append(ordered, quote)
		}
	}
	return ordered, nil
}

// GroupedIDs returns, for the given identifiers, which are already linked to
// a group and to which one.
func (t *Tx) GroupedIDs(ctx context.Context, ids []int64) (map[int64]int64, error) {
	linked := make(map[int64]int64)
	if len(ids) == 0 {
		return linked, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT quote_id, group_id FROM group_members WHERE quote_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query group links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var quoteID, groupID int64
		if err := rows.Scan(&quoteID, &groupID); err != nil {
			return nil, err
		}
		linked[quoteID] = groupID
	}
	return linked, rows.Err()
}

// CreateGroup inserts a new group and returns its identifier.
func (t *Tx) CreateGroup(ctx context.Context, label, runID string) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO quote_groups (label, run_id, created_at) VALUES (?, ?, ?)`,
		label, nullableString(runID), timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// LinkToGroup records a quote's group membership. It is a no-op when the
// quote is already linked; group membership, once established, is immutable.
// Returns true when a new link was created.
func (t *Tx) LinkToGroup(ctx context.Context, quoteID, groupID int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO group_members (quote_id, group_id) VALUES (?, ?)
         ON CONFLICT (quote_id) DO NOTHING`,
		quoteID, groupID,
	)
	if err != nil {
		return false, fmt.Errorf("link quote to group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Approve marks a pending quote approved with the given approver tag.
// Returns true when the row transitioned; a quote that is no longer pending
// is left untouched.
func (t *Tx) Approve(ctx context.Context, quoteID int64, approvedBy string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE approvals SET status = ?, approved_by = ?, updated_at = ?
         WHERE quote_id = ? AND status = ?`,
		StatusApproved, approvedBy, timestamp(), quoteID, StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("approve quote: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
