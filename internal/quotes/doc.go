// Package quotes persists extracted quotes, their approval records, and
// narrative groups in SQLite. The store enforces the structural invariants
// the approval engine relies on: exactly one approval row per quote and at
// most one group membership per quote.
package quotes
