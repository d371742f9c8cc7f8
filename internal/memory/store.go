// Package memory provides the user-facing soft store: preferences,
// append-only bookmarks, and the lightweight RAG corpus. All documents
// persist as JSON through the storage adapter so the store survives a
// process restart on either the local or S3 backend.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/storage"
)

const (
	prefsPrefix     = "memory/prefs/"
	bookmarksPrefix = "memory/bookmarks/"
	ragPrefix       = "memory/rag/"
)

// Store is the façade over the three memory sub-services
type Store struct {
	storage storage.Adapter
	log     zerolog.Logger

	rag *ragIndex
}

// NewStore creates a memory store over the given storage adapter and warms
// the RAG index from persisted documents.
func NewStore(ctx context.Context, adapter storage.Adapter, log zerolog.Logger) (*Store, error) {
	s := &Store{
		storage: adapter,
		log:     log.With().Str("component", "memory").Logger(),
		rag:     newRAGIndex(),
	}
	if err := s.loadRAG(ctx); err != nil {
		return nil, fmt.Errorf("failed to load RAG corpus: %w", err)
	}
	return s, nil
}

// putJSON marshals v and stores it at p. Document-level atomicity comes from
// the storage adapter writing whole objects.
func (s *Store) putJSON(ctx context.Context, p string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", p, err)
	}
	return s.storage.Put(ctx, p, bytes.NewReader(data))
}

// getJSON loads p into v. Returns storage errors verbatim; callers decide
// whether absence is an error.
func (s *Store) getJSON(ctx context.Context, p string, v any) error {
	reader, err := s.storage.Get(ctx, p)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return nil
}

func userKey(prefix, userID string) string {
	return path.Join(prefix, userID+".json")
}
