// Package syncsvc lets clients mirror the server's whitelisted content set
// by content hash: a deterministic manifest with ETag for conditional
// fetches, plus a WebSocket push channel for change notification.
package syncsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/metrics"
	"github.com/yichenlu/sensereader/internal/storage"
	"github.com/yichenlu/sensereader/pkg/types"
)

// ManifestBuilder computes and caches the content manifest. The cache is a
// single entry guarded by a mutex; concurrent callers of a recompute
// coalesce on the same build.
type ManifestBuilder struct {
	storage   storage.Adapter
	whitelist map[string]string // category -> path prefix
	cacheTTL  time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	cached   *types.Manifest
	cachedAt time.Time
}

// NewManifestBuilder creates a manifest builder over the storage adapter
func NewManifestBuilder(adapter storage.Adapter, whitelist map[string]string, cacheTTL time.Duration, log zerolog.Logger) *ManifestBuilder {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	return &ManifestBuilder{
		storage:   adapter,
		whitelist: whitelist,
		cacheTTL:  cacheTTL,
		log:       log.With().Str("component", "sync-manifest").Logger(),
	}
}

// Manifest returns the current manifest, recomputing when the cache is
// older than the TTL or was invalidated. File-change signals only ever
// invalidate; the rescan on read is what guarantees freshness.
func (b *ManifestBuilder) Manifest(ctx context.Context) (*types.Manifest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cached != nil && time.Since(b.cachedAt) < b.cacheTTL {
		return b.cached, nil
	}

	manifest, err := b.build(ctx)
	if err != nil {
		return nil, err
	}
	b.cached = manifest
	b.cachedAt = time.Now()
	metrics.ManifestRebuilds.Inc()
	return manifest, nil
}

// Invalidate drops the cached manifest so the next read rescans
func (b *ManifestBuilder) Invalidate() {
	b.mu.Lock()
	b.cached = nil
	b.mu.Unlock()
}

// Allowed reports whether path falls inside the whitelist, and under which
// category. Paths are relative with POSIX separators; traversal sequences
// are rejected outright.
func (b *ManifestBuilder) Allowed(path string) (string, bool) {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") || strings.Contains(path, "\\") {
		return "", false
	}
	for category, prefix := range b.whitelist {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return category, true
		}
	}
	return "", false
}

func (b *ManifestBuilder) build(ctx context.Context) (*types.Manifest, error) {
	entries := make([]types.ManifestEntry, 0)

	for category, prefix := range b.whitelist {
		paths, err := b.storage.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, p := range paths {
			// List matches raw string prefixes; keep only paths Allowed accepts.
			if _, ok := b.Allowed(p); !ok {
				continue
			}
			entry, err := b.hashFile(ctx, p, category)
			if err != nil {
				b.log.Warn().Err(err).Str("path", p).Msg("skipping unhashable file")
				continue
			}
			entries = append(entries, *entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	etag, err := computeETag(entries)
	if err != nil {
		return nil, err
	}

	return &types.Manifest{
		ETag:      etag,
		FileCount: len(entries),
		Files:     entries,
	}, nil
}

func (b *ManifestBuilder) hashFile(ctx context.Context, path, category string) (*types.ManifestEntry, error) {
	meta, err := b.storage.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	sum, err := b.storage.SHA256(ctx, path)
	if err != nil {
		return nil, err
	}

	return &types.ManifestEntry{
		Path:      path,
		SHA256:    sum,
		MtimeUnix: meta.LastModified.Unix(),
		SizeBytes: meta.Size,
		Category:  category,
	}, nil
}

// computeETag derives the manifest etag from the sorted (path, sha256)
// pairs only. Mtime, size and ordering never leak into it.
func computeETag(entries []types.ManifestEntry) (string, error) {
	type pair struct {
		Path   string `json:"path"`
		SHA256 string `json:"sha256"`
	}
	pairs := make([]pair, len(entries))
	for i, e := range entries {
		pairs[i] = pair{Path: e.Path, SHA256: e.SHA256}
	}
	canonical, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize manifest: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
