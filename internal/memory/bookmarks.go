package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/yichenlu/sensereader/pkg/types"
)

// AddBookmark appends a bookmark to the user's list. Bookmarks are
// append-only; there is no update or delete.
func (s *Store) AddBookmark(ctx context.Context, bm types.Bookmark) error {
	if bm.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if bm.CreatedAt.IsZero() {
		bm.CreatedAt = time.Now()
	}

	existing := s.ListBookmarks(ctx, bm.UserID)
	existing = append(existing, bm)

	if err := s.putJSON(ctx, userKey(bookmarksPrefix, bm.UserID), existing); err != nil {
		return fmt.Errorf("failed to persist bookmarks: %w", err)
	}
	return nil
}

// ListBookmarks returns all bookmarks for a user in append order. A missing
// user yields an empty list.
func (s *Store) ListBookmarks(ctx context.Context, userID string) []types.Bookmark {
	var bookmarks []types.Bookmark
	if err := s.getJSON(ctx, userKey(bookmarksPrefix, userID), &bookmarks); err != nil {
		return []types.Bookmark{}
	}
	return bookmarks
}
