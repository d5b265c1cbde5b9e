package quotes

import (
	"strings"
	"time"
)

// Status represents the approval lifecycle of a quote. Transitions are
// forward-only: pending may become approved or declined, never the reverse.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Approver tags recorded alongside a terminal status.
const (
	ApproverGrouped    = "llm-grouped"
	ApproverIndividual = "llm-individual"
)

var allStatuses = []Status{StatusPending, StatusApproved, StatusDeclined}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the approval lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusDeclined
}

// Quote is a candidate statement extracted from a source document, joined
// with its approval record.
type Quote struct {
	ID         int64
	Provenance string
	Text       string
	Speaker    string
	Context    string
	Topic      string
	ExtraJSON  string
	CreatedAt  time.Time

	Status     Status
	ApprovedBy string
}

// NewQuote carries the fields the extraction pass supplies for insertion.
type NewQuote struct {
	Provenance string
	Text       string
	Speaker    string
	Context    string
	Topic      string
	ExtraJSON  string
}

// Group is a cluster of at least two quotes judged narratively continuous.
type Group struct {
	ID        int64
	Label     string
	RunID     string
	CreatedAt time.Time
}

// Stats aggregates store counts for status output.
type Stats struct {
	ByStatus map[Status]int
	Groups   int
	Grouped  int
}
