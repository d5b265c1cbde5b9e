package approval

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"gleaner/internal/logging"
	"gleaner/internal/quotes"
)

// Config carries the engine's recognized options.
type Config struct {
	WindowSize        int
	Overlap           int
	DistanceThreshold int
}

// Summary reports what one engine run did.
type Summary struct {
	IntakeCreated int64
	Windows       int
	GroupsCreated int
	Grouped       int
	Approved      int
	Declined      int
	LeftPending   int
}

// Engine runs the approval-and-grouping pass over pending quotes. One Engine
// value represents one run; it is single-threaded and must be the only writer
// of approval records for the duration of Run.
type Engine struct {
	store  *quotes.Store
	oracle Oracle
	cfg    Config
	logger *slog.Logger
	runID  string
}

// NewEngine constructs an engine for a single run. Each run gets a fresh
// run identifier recorded on every group it commits.
func NewEngine(store *quotes.Store, oracle Oracle, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.WindowSize < 2 {
		cfg.WindowSize = 2
	}
	if cfg.DistanceThreshold <= 0 {
		cfg.DistanceThreshold = 2
	}
	return &Engine{
		store:  store,
		oracle: oracle,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "approval"),
		runID:  uuid.NewString(),
	}
}

// RunID returns the identifier recorded on groups committed by this run.
func (e *Engine) RunID() string {
	return e.runID
}

// Run executes intake, windowed grouping, and the individual fallback pass.
// Oracle failures skip the affected window or quote and the run continues;
// only store access failures abort the run.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	created, err := e.store.CreateMissingApprovals(ctx)
	if err != nil {
		return sum, err
	}
	sum.IntakeCreated = created

	pending, err := e.store.PendingQuotes(ctx)
	if err != nil {
		return sum, err
	}
	e.logger.Info("starting approval run",
		"run_id", e.runID,
		"pending", len(pending),
		"intake_created", created,
		"window_size", e.cfg.WindowSize,
		"overlap", e.cfg.Overlap)

	ids := make([]int64, len(pending))
	for i, q := range pending {
		ids[i] = q.ID
	}
	wins := windows(ids, e.cfg.WindowSize, e.cfg.Overlap)
	sum.Windows = len(wins)

	// Identifiers claimed by groups committed in earlier windows of this
	// run. Overlapping windows may propose the same quotes again; only the
	// first committed claim wins.
	claimed := make(map[int64]struct{})

	for _, win := range wins {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		items := pending[win.start:win.end]
		candidates, err := e.oracle.ProposeGroups(ctx, items)
		if err != nil {
			e.logger.Warn("window grouping call failed, skipping window",
				"first_id", items[0].ID,
				"last_id", items[len(items)-1].ID,
				logging.Error(err))
			continue
		}
		groups, members := e.commitWindow(ctx, candidates, claimed)
		sum.GroupsCreated += groups
		sum.Grouped += members
	}

	approved, declined, leftPending, err := e.fallback(ctx)
	if err != nil {
		return sum, err
	}
	sum.Approved = approved
	sum.Declined = declined
	sum.LeftPending = leftPending

	e.logger.Info("approval run complete",
		"run_id", e.runID,
		"windows", sum.Windows,
		"groups", sum.GroupsCreated,
		"grouped", sum.Grouped,
		"approved", sum.Approved,
		"declined", sum.Declined,
		"left_pending", sum.LeftPending)
	return sum, nil
}
