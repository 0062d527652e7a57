package testsupport

import (
	"context"
	"testing"

	"cinetag/internal/config"
	"cinetag/internal/tagstore"
)

// MustOpenStore opens a tagstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tagstore.Store {
	t.Helper()

	store, err := tagstore.Open(cfg)
	if err != nil {
		t.Fatalf("tagstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustCreateTag registers a tag for tests and returns its canonical name.
func MustCreateTag(t testing.TB, store *tagstore.Store, name string) string {
	t.Helper()

	canonical, err := store.CreateTag(context.Background(), name)
	if err != nil {
		t.Fatalf("store.CreateTag: %v", err)
	}
	return canonical
}
