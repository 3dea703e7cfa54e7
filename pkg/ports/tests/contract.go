package tests

import (
	"context"
	"testing"

	"github.com/aretw0/livemd/pkg/ports"
)

// DocumentLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.DocumentLoader.
func DocumentLoaderContractTest(t *testing.T, loader ports.DocumentLoader, setupData map[string]string) {
	t.Helper()
	ctx := context.Background()

	// 1. Test Load (Success)
	t.Run("Load_Success", func(t *testing.T) {
		for id, expectedContent := range setupData {
			doc, err := loader.Load(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error loading document %s: %v", id, err)
			}
			if doc.Content != expectedContent {
				t.Errorf("content mismatch for %s. got %q, want %q", id, doc.Content, expectedContent)
			}
			if doc.ID != id {
				t.Errorf("id mismatch: got %q, want %q", doc.ID, id)
			}
		}
	})

	// 2. Test Load (NotFound)
	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := loader.Load(ctx, "non-existent-document")
		if err == nil {
			t.Error("expected error for non-existent document, got nil")
		}
	})

	// 3. Test List
	t.Run("List", func(t *testing.T) {
		ids, err := loader.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing documents: %v", err)
		}
		found := make(map[string]bool, len(ids))
		for _, id := range ids {
			found[id] = true
		}
		for id := range setupData {
			if !found[id] {
				t.Errorf("List() is missing %q (got %v)", id, ids)
			}
		}
	})
}
