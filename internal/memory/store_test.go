package memory

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	adapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage adapter: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })

	store, err := NewStore(context.Background(), adapter, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestPreferences(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Missing user gets defaults", func(t *testing.T) {
		prefs := store.GetPreferences(ctx, "nobody")
		if prefs.VoiceSpeed != 1.0 {
			t.Errorf("voice_speed = %f, want 1.0", prefs.VoiceSpeed)
		}
		if prefs.Language != "zh-TW" {
			t.Errorf("language = %s, want zh-TW", prefs.Language)
		}
		if !prefs.HapticsEnabled || !prefs.ScentEnabled {
			t.Error("haptics and scent should default on")
		}
		if prefs.ReadingMode != "immersive" {
			t.Errorf("reading_mode = %s, want immersive", prefs.ReadingMode)
		}
	})

	t.Run("Patch merges last-write-wins", func(t *testing.T) {
		before := store.GetPreferences(ctx, "u1")

		updated, err := store.SetPreferences(ctx, "u1", map[string]any{
			"voice_speed": 1.5,
			"language":    "en",
		})
		if err != nil {
			t.Fatalf("SetPreferences failed: %v", err)
		}
		if updated.VoiceSpeed != 1.5 || updated.Language != "en" {
			t.Errorf("Patch not applied: %+v", updated)
		}
		// Untouched keys keep their prior value.
		if updated.ReadingMode != before.ReadingMode {
			t.Errorf("Untouched key changed: %s", updated.ReadingMode)
		}

		got := store.GetPreferences(ctx, "u1")
		if got.VoiceSpeed != 1.5 || got.Language != "en" {
			t.Errorf("Round-trip mismatch: %+v", got)
		}
	})

	t.Run("Unknown keys preserved verbatim", func(t *testing.T) {
		if _, err := store.SetPreferences(ctx, "u2", map[string]any{
			"future_flag": "enabled",
		}); err != nil {
			t.Fatalf("SetPreferences failed: %v", err)
		}

		got := store.GetPreferences(ctx, "u2")
		if got.Extra["future_flag"] != "enabled" {
			t.Errorf("Unknown key lost: %+v", got.Extra)
		}
	})

	t.Run("Empty user rejected", func(t *testing.T) {
		if _, err := store.SetPreferences(ctx, "", map[string]any{"voice_speed": 2.0}); err == nil {
			t.Error("Expected error for empty user id")
		}
	})
}

func TestBookmarks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if got := store.ListBookmarks(ctx, "u1"); len(got) != 0 {
		t.Fatalf("Expected empty list, got %d", len(got))
	}

	for i := 0; i < 3; i++ {
		if err := store.AddBookmark(ctx, bookmarkAt("u1", i)); err != nil {
			t.Fatalf("AddBookmark failed: %v", err)
		}
	}

	got := store.ListBookmarks(ctx, "u1")
	if len(got) != 3 {
		t.Fatalf("Expected 3 bookmarks, got %d", len(got))
	}
	for i, bm := range got {
		if bm.SegmentIndex != i {
			t.Errorf("Append order broken at %d: %+v", i, bm)
		}
	}
}
