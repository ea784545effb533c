package testsupport

import (
	"context"
	"testing"

	"fauna/internal/config"
	"fauna/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewPhoto creates a pending work item for tests using the provided store.
func NewPhoto(t testing.TB, store *queue.Store, id, ownerRef, payloadRef string) *queue.Item {
	t.Helper()

	item, err := store.Create(context.Background(), &queue.Item{
		ID:         id,
		OwnerRef:   ownerRef,
		PayloadRef: payloadRef,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}
