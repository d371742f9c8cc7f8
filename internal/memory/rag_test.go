package memory

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/storage"
	"github.com/yichenlu/sensereader/pkg/types"
)

func bookmarkAt(userID string, index int) types.Bookmark {
	return types.Bookmark{UserID: userID, SegmentIndex: index}
}

func TestRAG_UpsertQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []struct {
		id   string
		text string
	}{
		{"doc_a", "the quick brown fox jumps over the lazy dog"},
		{"doc_b", "slow green turtles crawl under the busy bridge"},
		{"doc_c", "quick silver foxes hunt at night"},
	}
	for _, d := range docs {
		if _, err := store.UpsertDoc(ctx, d.text, d.id, nil); err != nil {
			t.Fatalf("Upsert %s failed: %v", d.id, err)
		}
	}

	t.Run("Round-trip with own text", func(t *testing.T) {
		for _, d := range docs {
			results := store.QueryDocs(ctx, d.text, 1)
			if len(results) == 0 {
				t.Fatalf("Query for %s text returned nothing", d.id)
			}
			if results[0].Doc.DocID != d.id {
				t.Errorf("Query for %s text returned %s", d.id, results[0].Doc.DocID)
			}
			if results[0].Score != 1.0 {
				t.Errorf("Self-query score = %f, want 1.0", results[0].Score)
			}
		}
	})

	t.Run("Relevance ordering", func(t *testing.T) {
		results := store.QueryDocs(ctx, "quick fox", 3)
		if len(results) < 2 {
			t.Fatalf("Expected at least 2 results, got %d", len(results))
		}
		if results[0].Doc.DocID != "doc_a" && results[0].Doc.DocID != "doc_c" {
			t.Errorf("Top result = %s, want a fox doc", results[0].Doc.DocID)
		}
		for i := 1; i < len(results); i++ {
			if results[i].Score > results[i-1].Score {
				t.Error("Results not sorted by score")
			}
		}
	})

	t.Run("TopK clamped", func(t *testing.T) {
		results := store.QueryDocs(ctx, "the quick", 1000)
		if len(results) > MaxTopK {
			t.Errorf("TopK not clamped: %d", len(results))
		}
		results = store.QueryDocs(ctx, "the quick", 0)
		if len(results) == 0 {
			t.Error("TopK 0 should use the default, not return nothing")
		}
	})

	t.Run("No match is empty not error", func(t *testing.T) {
		results := store.QueryDocs(ctx, "zzz qqq xxx", 5)
		if len(results) != 0 {
			t.Errorf("Expected no results, got %d", len(results))
		}
	})
}

func TestRAG_Idempotence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertDoc(ctx, "same text", "fixed", nil)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := store.UpsertDoc(ctx, "same text updated", "fixed", nil)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	if first.DocID != second.DocID {
		t.Errorf("Doc ids differ: %s vs %s", first.DocID, second.DocID)
	}
	if len(store.ListDocs(ctx)) != 1 {
		t.Errorf("Upsert duplicated the doc")
	}
	if store.ListDocs(ctx)[0].Text != "same text updated" {
		t.Error("Upsert did not replace the text")
	}
}

func TestRAG_DeleteAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.UpsertDoc(ctx, "alpha content", "b_doc", nil)
	store.UpsertDoc(ctx, "beta content", "a_doc", nil)

	docs := store.ListDocs(ctx)
	if len(docs) != 2 || docs[0].DocID != "a_doc" {
		t.Errorf("List not ordered by id: %+v", docs)
	}

	if err := store.DeleteDoc(ctx, "a_doc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(store.ListDocs(ctx)) != 1 {
		t.Error("Delete did not remove the doc")
	}
	if err := store.DeleteDoc(ctx, "missing"); err != nil {
		t.Errorf("Deleting a missing doc should be a no-op, got %v", err)
	}
}

func TestRAG_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	adapter, err := storage.NewLocalAdapter(dir)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	store, err := NewStore(ctx, adapter, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if _, err := store.UpsertDoc(ctx, "persistent knowledge", "keep", nil); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	adapter.Close()

	// New process over the same directory.
	adapter2, err := storage.NewLocalAdapter(dir)
	if err != nil {
		t.Fatalf("Failed to reopen adapter: %v", err)
	}
	defer adapter2.Close()

	store2, err := NewStore(ctx, adapter2, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to recreate store: %v", err)
	}

	results := store2.QueryDocs(ctx, "persistent knowledge", 1)
	if len(results) != 1 || results[0].Doc.DocID != "keep" {
		t.Errorf("Corpus did not survive restart: %+v", results)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Hello, HELLO world!")
	if tokens["hello"] != 2 {
		t.Errorf("hello count = %d, want 2", tokens["hello"])
	}
	if tokens["world"] != 1 {
		t.Errorf("world count = %d, want 1", tokens["world"])
	}
	if _, ok := tokens["hello,"]; ok {
		t.Error("Punctuation should be stripped")
	}
}
