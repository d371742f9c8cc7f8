package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/yichenlu/sensereader/pkg/types"
)

const (
	// DefaultTopK is used when a query does not specify one
	DefaultTopK = 5
	// MaxTopK bounds a single query
	MaxTopK = 100
)

// ragIndex is the in-memory view of the persisted corpus
type ragIndex struct {
	mu   sync.RWMutex
	docs map[string]*types.RAGDoc
}

func newRAGIndex() *ragIndex {
	return &ragIndex{docs: make(map[string]*types.RAGDoc)}
}

// loadRAG warms the index from persisted documents
func (s *Store) loadRAG(ctx context.Context) error {
	paths, err := s.storage.List(ctx, ragPrefix)
	if err != nil {
		return err
	}
	loaded := 0
	for _, p := range paths {
		var doc types.RAGDoc
		if err := s.getJSON(ctx, p, &doc); err != nil {
			s.log.Warn().Err(err).Str("path", p).Msg("skipping unreadable RAG doc")
			continue
		}
		if doc.DocID == "" {
			continue
		}
		s.rag.mu.Lock()
		s.rag.docs[doc.DocID] = &doc
		s.rag.mu.Unlock()
		loaded++
	}
	if loaded > 0 {
		s.log.Info().Int("docs", loaded).Msg("RAG corpus loaded")
	}
	return nil
}

// UpsertDoc stores a document. An empty docID derives a stable id from the
// text hash, making the operation idempotent on identical content.
func (s *Store) UpsertDoc(ctx context.Context, text, docID string, meta map[string]string) (*types.RAGDoc, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document text is required")
	}
	if docID == "" {
		sum := sha256.Sum256([]byte(text))
		docID = "doc_" + hex.EncodeToString(sum[:8])
	}

	doc := &types.RAGDoc{
		DocID:  docID,
		Text:   text,
		Tokens: Tokenize(text),
		Meta:   meta,
	}

	if err := s.putJSON(ctx, ragPrefix+docID+".json", doc); err != nil {
		return nil, fmt.Errorf("failed to persist doc: %w", err)
	}

	s.rag.mu.Lock()
	s.rag.docs[docID] = doc
	s.rag.mu.Unlock()

	return doc, nil
}

// QueryDocs returns the topK most relevant documents for q, scored by
// Jaccard similarity over token multisets. Ties break by shorter doc_id,
// then lexically. An empty corpus yields an empty result.
func (s *Store) QueryDocs(ctx context.Context, q string, topK int) []types.ScoredDoc {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	queryTokens := Tokenize(q)

	s.rag.mu.RLock()
	scored := make([]types.ScoredDoc, 0, len(s.rag.docs))
	for _, doc := range s.rag.docs {
		score := jaccard(queryTokens, doc.Tokens)
		if score <= 0 {
			continue
		}
		scored = append(scored, types.ScoredDoc{Doc: doc, Score: score})
	}
	s.rag.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		a, b := scored[i].Doc.DocID, scored[j].Doc.DocID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// ListDocs returns every document, ordered by doc id
func (s *Store) ListDocs(ctx context.Context) []*types.RAGDoc {
	s.rag.mu.RLock()
	docs := make([]*types.RAGDoc, 0, len(s.rag.docs))
	for _, doc := range s.rag.docs {
		docs = append(docs, doc)
	}
	s.rag.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].DocID < docs[j].DocID })
	return docs
}

// DeleteDoc removes a document. Deleting a missing doc is a no-op.
func (s *Store) DeleteDoc(ctx context.Context, docID string) error {
	s.rag.mu.Lock()
	delete(s.rag.docs, docID)
	s.rag.mu.Unlock()

	if err := s.storage.Delete(ctx, ragPrefix+docID+".json"); err != nil {
		return fmt.Errorf("failed to delete doc: %w", err)
	}
	return nil
}

// Tokenize lowercases text and splits it on Unicode whitespace, stripping
// leading and trailing punctuation from each token. The result is a multiset
// (token -> count); tokenization is deterministic and round-trip-safe.
func Tokenize(text string) map[string]int {
	tokens := make(map[string]int)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if token == "" {
			continue
		}
		tokens[token]++
	}
	return tokens
}

// jaccard computes multiset Jaccard similarity: sum of per-token minima over
// sum of per-token maxima.
func jaccard(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	union := 0
	for token, na := range a {
		nb := b[token]
		if na < nb {
			intersection += na
		} else {
			intersection += nb
		}
		if na > nb {
			union += na
		} else {
			union += nb
		}
	}
	for token, nb := range b {
		if _, seen := a[token]; !seen {
			union += nb
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
