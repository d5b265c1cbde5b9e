package approval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gleaner/internal/quotes"
	"gleaner/internal/testsupport"
)

type fakeOracle struct {
	propose  func(ids []int64) ([][]int64, error)
	classify func(id int64) (string, error)

	proposeWindows [][]int64
	classified     []int64
}

func (f *fakeOracle) ProposeGroups(ctx context.Context, items []*quotes.Quote) ([][]int64, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	f.proposeWindows = append(f.proposeWindows, ids)
	if f.propose == nil {
		return nil, nil
	}
	return f.propose(ids)
}

func (f *fakeOracle) Classify(ctx context.Context, item *quotes.Quote) (string, error) {
	f.classified = append(f.classified, item.ID)
	if f.classify == nil {
		return "MAYBE", nil
	}
	return f.classify(item.ID)
}

func seedPending(t *testing.T, store *quotes.Store, count int) {
	t.Helper()
	batch := make([]quotes.NewQuote, 0, count)
	for i := 0; i < count; i++ {
		batch = append(batch, quotes.NewQuote{
			Provenance: "Chapter One [page 1]",
			Text:       fmt.Sprintf("Statement number %d", i+1),
		})
	}
	if inserted := testsupport.InsertQuotes(t, store, batch); inserted != int64(count) {
		t.Fatalf("expected %d inserts, got %d", count, inserted)
	}
}

func contains(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func TestRunGroupsAndApprovesMembers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 4)

	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return [][]int64{{1, 2}, {3, 4}}, nil
		},
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.GroupsCreated != 2 || sum.Grouped != 4 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(oracle.classified) != 0 {
		t.Fatalf("no quote should reach fallback, classified %v", oracle.classified)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ByStatus[quotes.StatusApproved] != 4 || stats.Groups != 2 || stats.Grouped != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	quote, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if quote.ApprovedBy != quotes.ApproverGrouped {
		t.Fatalf("expected approver %q, got %q", quotes.ApproverGrouped, quote.ApprovedBy)
	}
}

func TestRunDedupsGroupsAcrossOverlappingWindows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 9)

	// Windows [1..7] and [5..9] both see quotes 5,6,7 and both propose
	// grouping them; only the first window's claim may commit.
	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			if contains(ids, 5) && contains(ids, 6) && contains(ids, 7) {
				return [][]int64{{5, 6, 7}}, nil
			}
			return nil, nil
		},
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 7, Overlap: 3, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(oracle.proposeWindows) != 2 {
		t.Fatalf("expected 2 windows, got %v", oracle.proposeWindows)
	}
	if sum.GroupsCreated != 1 || sum.Grouped != 3 {
		t.Fatalf("expected exactly one group of 3, got %+v", sum)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Groups != 1 || stats.Grouped != 3 {
		t.Fatalf("duplicate group committed: %+v", stats)
	}
}

func TestRunSkipsIdentifierGaps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 7)

	// Decide the middle quotes so the pending sequence has a gap: [1,2,6,7].
	for _, id := range []int64{3, 4, 5} {
		if _, err := store.SetDecision(ctx, id, quotes.StatusDeclined, quotes.ApproverIndividual); err != nil {
			t.Fatalf("SetDecision(%d): %v", id, err)
		}
	}

	oracle := &fakeOracle{}
	engine := NewEngine(store, oracle, Config{WindowSize: 4, Overlap: 1, DistanceThreshold: 2}, nil)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(oracle.proposeWindows) != 2 {
		t.Fatalf("expected 2 windows, got %v", oracle.proposeWindows)
	}
	for _, win := range oracle.proposeWindows {
		if contains(win, 2) && contains(win, 6) {
			t.Fatalf("window %v spans the identifier gap", win)
		}
	}
	if got := oracle.proposeWindows[0]; !contains(got, 1) || !contains(got, 2) || len(got) != 2 {
		t.Fatalf("first window should be [1 2], got %v", got)
	}
	if got := oracle.proposeWindows[1]; !contains(got, 6) || !contains(got, 7) || len(got) != 2 {
		t.Fatalf("second window should be [6 7], got %v", got)
	}
}

func TestRunFallbackCoversExactlyTheUngrouped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 5)

	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return [][]int64{{1, 2, 3}}, nil
		},
		classify: func(id int64) (string, error) {
			if id == 4 {
				return "APPROVED", nil
			}
			return "DECLINED", nil
		},
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(oracle.classified) != 2 || !contains(oracle.classified, 4) || !contains(oracle.classified, 5) {
		t.Fatalf("fallback should cover exactly quotes 4 and 5, got %v", oracle.classified)
	}
	if sum.Approved != 1 || sum.Declined != 1 || sum.LeftPending != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	four, err := store.GetByID(ctx, 4)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if four.Status != quotes.StatusApproved || four.ApprovedBy != quotes.ApproverIndividual {
		t.Fatalf("quote 4: status=%q approver=%q", four.Status, four.ApprovedBy)
	}
	five, err := store.GetByID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if five.Status != quotes.StatusDeclined {
		t.Fatalf("quote 5: status=%q", five.Status)
	}
}

func TestRunLeavesUnrecognizedDecisionsPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 1)

	oracle := &fakeOracle{
		classify: func(id int64) (string, error) { return "MAYBE", nil },
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.LeftPending != 1 || sum.Approved != 0 || sum.Declined != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	quote, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if quote.Status != quotes.StatusPending {
		t.Fatalf("MAYBE must leave the quote pending, got %q", quote.Status)
	}
}

func TestRunRejectsGroupsSpanningTooManyPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertQuotes(t, store, []quotes.NewQuote{
		{Provenance: "Chapter One [page 1]", Text: "Near the start."},
		{Provenance: "Chapter Nine [page 9]", Text: "Near the end."},
	})

	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return [][]int64{{1, 2}}, nil
		},
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.GroupsCreated != 0 {
		t.Fatalf("distant quotes must not group: %+v", sum)
	}
	if len(oracle.classified) != 2 {
		t.Fatalf("rejected members should reach fallback, classified %v", oracle.classified)
	}
}

func TestRunSkipsDistanceCheckWhenPositionUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.InsertQuotes(t, store, []quotes.NewQuote{
		{Provenance: "Chapter One [page 1]", Text: "Position known."},
		{Provenance: "Appendix", Text: "Position unknown."},
	})

	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return [][]int64{{1, 2}}, nil
		},
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.GroupsCreated != 1 || sum.Grouped != 2 {
		t.Fatalf("missing position must not reject the candidate: %+v", sum)
	}
}

func TestRunValidatesCandidateShape(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 3)

	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return [][]int64{
				{1},       // undersized
				{1, 99},   // unresolvable member shrinks it below two
				{2, 3},    // valid
				{3, 2, 1}, // members 2,3 already claimed this window
			}, nil
		},
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.GroupsCreated != 1 || sum.Grouped != 2 {
		t.Fatalf("expected exactly one committed group, got %+v", sum)
	}

	members, err := store.GroupMembers(ctx, 1)
	if err != nil {
		t.Fatalf("GroupMembers: %v", err)
	}
	if len(members) != 2 || members[0] != 2 || members[1] != 3 {
		t.Fatalf("unexpected members: %v", members)
	}
}

func TestRunCollapsesRepeatedCandidateMembers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 2)

	// A repeated identifier must not count twice toward the two-member
	// minimum, and a repeat alongside a real partner joins only once.
	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return [][]int64{{1, 1}, {1, 2, 2}}, nil
		},
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.GroupsCreated != 1 || sum.Grouped != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Groups != 1 || stats.Grouped != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	members, err := store.GroupMembers(ctx, 1)
	if err != nil {
		t.Fatalf("GroupMembers: %v", err)
	}
	if len(members) != 2 || members[0] != 1 || members[1] != 2 {
		t.Fatalf("every committed group needs two distinct members, got %v", members)
	}
}

func TestRunNoQuoteJoinsTwoGroups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 3)

	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return [][]int64{{1, 2}, {2, 3}}, nil
		},
		classify: func(id int64) (string, error) { return "MAYBE", nil },
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.GroupsCreated != 1 || sum.Grouped != 2 {
		t.Fatalf("second candidate must lose the contested member: %+v", sum)
	}

	// Quote 3 lost its only partner and falls through to the fallback pass.
	if len(oracle.classified) != 1 || oracle.classified[0] != 3 {
		t.Fatalf("expected only quote 3 in fallback, got %v", oracle.classified)
	}
}

func TestRunContinuesAfterWindowOracleFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 4)

	oracle := &fakeOracle{
		propose: func(ids []int64) ([][]int64, error) {
			return nil, errors.New("model unavailable")
		},
		classify: func(id int64) (string, error) { return "APPROVED", nil },
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.GroupsCreated != 0 {
		t.Fatalf("failed window must commit nothing: %+v", sum)
	}
	if sum.Approved != 4 {
		t.Fatalf("fallback should still decide every quote: %+v", sum)
	}
}

func TestRunFallbackIsIndependentPerQuote(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 3)

	oracle := &fakeOracle{
		classify: func(id int64) (string, error) {
			if id == 2 {
				return "", errors.New("model unavailable")
			}
			return "APPROVED", nil
		},
	}
	// Window size 2 with no proposals: grouping leaves everything pending.
	engine := NewEngine(store, oracle, Config{WindowSize: 2, Overlap: 0, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Approved != 2 || sum.LeftPending != 1 {
		t.Fatalf("one failed quote must not abort the pass: %+v", sum)
	}

	two, err := store.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if two.Status != quotes.StatusPending {
		t.Fatalf("failed classification must leave quote pending, got %q", two.Status)
	}
}

func TestRunIntakeCoversOrphanedQuotes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedPending(t, store, 2)

	oracle := &fakeOracle{
		classify: func(id int64) (string, error) { return "APPROVED", nil },
	}
	engine := NewEngine(store, oracle, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// InsertQuotes creates approvals eagerly; intake finds nothing to add
	// but must stay safe to run.
	if sum.IntakeCreated != 0 {
		t.Fatalf("expected no intake records, got %d", sum.IntakeCreated)
	}

	again := NewEngine(store, &fakeOracle{}, Config{WindowSize: 20, Overlap: 10, DistanceThreshold: 2}, nil)
	if _, err := again.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}
}

func TestParseDecision(t *testing.T) {
	cases := []struct {
		raw    string
		status quotes.Status
		ok     bool
	}{
		{"APPROVED", quotes.StatusApproved, true},
		{" approved \n", quotes.StatusApproved, true},
		{"DECLINED", quotes.StatusDeclined, true},
		{"MAYBE", "", false},
		{"APPROVED because it is great", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		status, ok := parseDecision(tc.raw)
		if status != tc.status || ok != tc.ok {
			t.Errorf("parseDecision(%q) = (%q, %v), want (%q, %v)", tc.raw, status, ok, tc.status, tc.ok)
		}
	}
}
