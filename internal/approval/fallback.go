package approval

import (
	"context"
	"strings"

	"gleaner/internal/logging"
	"gleaner/internal/quotes"
)

// fallback classifies every quote still pending after grouping, one oracle
// call and one commit per quote. The pending set is re-queried here rather
// than reusing the pre-grouping snapshot so freshly grouped quotes are never
// reconsidered. Failures and unrecognized decisions leave the quote pending;
// no single quote can abort the pass.
func (e *Engine) fallback(ctx context.Context) (approved, declined, leftPending int, err error) {
	remaining, err := e.store.PendingQuotes(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	e.logger.Info("starting individual fallback", "run_id", e.runID, "remaining", len(remaining))

	for _, item := range remaining {
		if err := ctx.Err(); err != nil {
			return approved, declined, leftPending, err
		}
		raw, err := e.oracle.Classify(ctx, item)
		if err != nil {
			e.logger.Warn("classification call failed, leaving pending",
				"quote_id", item.ID, logging.Error(err))
			leftPending++
			continue
		}
		status, ok := parseDecision(raw)
		if !ok {
			e.logger.Warn("unrecognized decision token, leaving pending",
				"quote_id", item.ID, "decision", raw)
			leftPending++
			continue
		}
		changed, err := e.store.SetDecision(ctx, item.ID, status, quotes.ApproverIndividual)
		if err != nil {
			e.logger.Warn("decision commit failed, leaving pending",
				"quote_id", item.ID, logging.Error(err))
			leftPending++
			continue
		}
		if !changed {
			e.logger.Warn("quote no longer pending, decision not applied", "quote_id", item.ID)
			continue
		}
		if status == quotes.StatusApproved {
			approved++
		} else {
			declined++
		}
	}
	return approved, declined, leftPending, nil
}

// parseDecision recognizes exactly the two decision tokens. Anything else,
// including near-misses like "MAYBE" or prose around a token, is not a
// decision.
func parseDecision(raw string) (quotes.Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APPROVED":
		return quotes.StatusApproved, true
	case "DECLINED":
		return quotes.StatusDeclined, true
	default:
		return "", false
	}
}
