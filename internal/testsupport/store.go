package testsupport

import (
	"context"
	"testing"

	"gleaner/internal/config"
	"gleaner/internal/quotes"
)

// MustOpenStore opens a quotes.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *quotes.Store {
	t.Helper()

	store, err := quotes.Open(cfg)
	if err != nil {
		t.Fatalf("quotes.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// InsertQuotes stores a batch of quotes for tests, failing on error.
func InsertQuotes(t testing.TB, store *quotes.Store, batch []quotes.NewQuote) int64 {
	t.Helper()

	inserted, err := store.InsertQuotes(context.Background(), batch)
	if err != nil {
		t.Fatalf("store.InsertQuotes: %v", err)
	}
	return inserted
}
