// Package approval implements the approval-and-grouping engine: pending
// quotes are swept into overlapping identifier-ordered windows, the model
// proposes groups per window, proposals are validated and committed one
// window per transaction, grouped quotes become approved, and whatever stays
// pending gets an individual approve-or-decline pass. The engine is
// single-threaded and safe to re-run after a partial failure.
package approval
