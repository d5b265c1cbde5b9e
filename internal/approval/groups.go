package approval

import (
	"context"
	"fmt"
	"strings"

	"gleaner/internal/logging"
	"gleaner/internal/quotes"
)

// commitWindow validates and commits one window's candidate groups inside a
// single transaction. On rollback nothing from the window survives and no
// claims leak into the run-level set. Returns the number of groups created
// and quotes linked.
func (e *Engine) commitWindow(ctx context.Context, candidates [][]int64, claimed map[int64]struct{}) (int, int) {
	windowClaims := make(map[int64]struct{})
	var groupsCreated, membersLinked int

	err := e.store.WithTx(ctx, func(tx *quotes.Tx) error {
		for _, candidate := range candidates {
			members, err := e.validateCandidate(ctx, tx, candidate, claimed, windowClaims)
			if err != nil {
				return err
			}
			if members == nil {
				continue
			}

			groupID, err := tx.CreateGroup(ctx, groupLabel(members), e.runID)
			if err != nil {
				return err
			}
			for _, member := range members {
				linked, err := tx.LinkToGroup(ctx, member.ID, groupID)
				if err != nil {
					return err
				}
				if !linked {
					e.logger.Warn("quote already linked to a group, excluding",
						"quote_id", member.ID, "group_id", groupID)
					continue
				}
				if _, err := tx.Approve(ctx, member.ID, quotes.ApproverGrouped); err != nil {
					return err
				}
				windowClaims[member.ID] = struct{}{}
				membersLinked++
			}
			groupsCreated++
			e.logger.Info("group committed",
				"group_id", groupID,
				"run_id", e.runID,
				"members", memberIDs(members))
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("window rolled back, continuing with next window", logging.Error(err))
		return 0, 0
	}

	for id := range windowClaims {
		claimed[id] = struct{}{}
	}
	return groupsCreated, membersLinked
}

// validateCandidate applies the structural checks to one model-proposed
// group. A nil, nil return means the candidate was rejected; a non-nil error
// aborts the window's transaction.
func (e *Engine) validateCandidate(ctx context.Context, tx *quotes.Tx, candidate []int64, claimed, windowClaims map[int64]struct{}) ([]*quotes.Quote, error) {
	if len(candidate) < 2 {
		e.logger.Debug("rejecting undersized candidate", "ids", candidate)
		return nil, nil
	}

	// Quotes claimed by an earlier window of this run are off the table;
	// overlap means the model legitimately saw them twice. Repeated
	// identifiers inside one candidate collapse to one member here, so a
	// padded candidate like [7,7] cannot fake the two-member minimum.
	ids := candidate[:0:0]
	seen := make(map[int64]struct{}, len(candidate))
	for _, id := range candidate {
		if _, dup := seen[id]; dup {
			e.logger.Debug("dropping repeated quote in candidate", "quote_id", id)
			continue
		}
		seen[id] = struct{}{}
		if _, taken := claimed[id]; taken {
			e.logger.Debug("dropping quote claimed in earlier window", "quote_id", id)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, nil
	}

	resolved, err := tx.QuotesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*quotes.Quote, len(resolved))
	for _, q := range resolved {
		byID[q.ID] = q
	}
	members := make([]*quotes.Quote, 0, len(ids))
	for _, id := range ids {
		quote, ok := byID[id]
		if !ok {
			e.logger.Warn("proposed quote does not exist, dropping", "quote_id", id)
			continue
		}
		if quote.Status != quotes.StatusPending {
			e.logger.Warn("proposed quote is no longer pending, dropping",
				"quote_id", id, "status", string(quote.Status))
			continue
		}
		members = append(members, quote)
	}
	if len(members) < 2 {
		return nil, nil
	}

	if ok := e.checkDistance(members); !ok {
		return nil, nil
	}

	// Guard against memberships committed by an earlier candidate, whether
	// in this window or persisted before this run.
	linked, err := tx.GroupedIDs(ctx, memberIDs(members))
	if err != nil {
		return nil, err
	}
	unlinked := members[:0]
	for _, member := range members {
		if groupID, taken := linked[member.ID]; taken {
			e.logger.Warn("quote already belongs to a group, excluding",
				"quote_id", member.ID, "group_id", groupID)
			continue
		}
		if _, taken := windowClaims[member.ID]; taken {
			e.logger.Warn("quote already claimed in this window, excluding", "quote_id", member.ID)
			continue
		}
		unlinked = append(unlinked, member)
	}
	if len(unlinked) < 2 {
		return nil, nil
	}
	return unlinked, nil
}

// checkDistance enforces the positional spread limit. When any member lacks a
// page estimate the check is skipped: unknown position is not a violation.
func (e *Engine) checkDistance(members []*quotes.Quote) bool {
	minPage, maxPage := 0, 0
	for i, member := range members {
		page, ok := member.PageEstimate()
		if !ok {
			e.logger.Warn("positional estimate missing, skipping distance check",
				"quote_id", member.ID, "provenance", member.Provenance)
			return true
		}
		if i == 0 || page < minPage {
			minPage = page
		}
		if i == 0 || page > maxPage {
			maxPage = page
		}
	}
	if maxPage-minPage > e.cfg.DistanceThreshold {
		e.logger.Warn("rejecting candidate spanning too many pages",
			"ids", memberIDs(members),
			"span", maxPage-minPage,
			"threshold", e.cfg.DistanceThreshold)
		return false
	}
	return true
}

func groupLabel(members []*quotes.Quote) string {
	section := members[0].Provenance
	if idx := strings.Index(section, " [page"); idx > 0 {
		section = section[:idx]
	}
	return fmt.Sprintf("%s: quotes %d-%d", section, members[0].ID, members[len(members)-1].ID)
}

func memberIDs(members []*quotes.Quote) []int64 {
	ids := make([]int64, len(members))
	for i, member := range members {
		ids[i] = member.ID
	}
	return ids
}
