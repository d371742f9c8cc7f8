package syncsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/storage"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// Service is the sync surface: manifest with conditional fetch, whitelisted
// file serving, and the push channel.
type Service struct {
	builder     *ManifestBuilder
	hub         *Hub
	storage     storage.Adapter
	fileTimeout time.Duration
	log         zerolog.Logger

	mu       sync.Mutex
	lastETag string

	stop     chan struct{}
	stopOnce sync.Once
}

// NewService creates the sync service and starts the change poller. The
// poller recomputes the manifest on the cache cadence and publishes an
// update frame whenever the etag moves; it never trusts file events alone.
func NewService(adapter storage.Adapter, cfg types.SyncConfig, log zerolog.Logger) *Service {
	builder := NewManifestBuilder(adapter, cfg.Whitelist, time.Duration(cfg.CacheTTLSeconds)*time.Second, log)
	s := &Service{
		builder:     builder,
		hub:         NewHub(cfg.OutboxSize, log),
		storage:     adapter,
		fileTimeout: time.Duration(cfg.FileTimeoutSeconds) * time.Second,
		log:         log.With().Str("component", "sync").Logger(),
		stop:        make(chan struct{}),
	}
	go s.poll(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	return s
}

// Hub exposes the push channel for the gateway
func (s *Service) Hub() *Hub { return s.hub }

// Invalidate drops the manifest cache, e.g. after a local content write
func (s *Service) Invalidate() { s.builder.Invalidate() }

// GetManifest returns the manifest, or notModified=true when the client's
// If-None-Match already names the current etag.
func (s *Service) GetManifest(ctx context.Context, ifNoneMatch string) (*types.Manifest, bool, error) {
	manifest, err := s.builder.Manifest(ctx)
	if err != nil {
		return nil, false, errs.Wrap(errs.UpstreamUnavailable, "manifest computation failed", err)
	}

	s.trackETag(manifest.ETag)

	if ifNoneMatch != "" && ifNoneMatch == manifest.ETag {
		return manifest, true, nil
	}
	return manifest, false, nil
}

// FilePayload is the single body shape for synced files. Content is the
// file's bytes decoded as UTF-8; binary files are outside the whitelist's
// contract.
type FilePayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	SHA256  string `json:"sha256"`
}

// GetFile serves one whitelisted file. Paths outside the whitelist yield
// not_found without revealing whether they exist.
func (s *Service) GetFile(ctx context.Context, path string) (*FilePayload, error) {
	if _, ok := s.builder.Allowed(path); !ok {
		return nil, errs.Newf(errs.NotFound, "no such file: %s", path)
	}

	readCtx, cancel := context.WithTimeout(ctx, s.fileTimeout)
	defer cancel()

	reader, err := s.storage.Get(readCtx, path)
	if err != nil {
		return nil, errs.Newf(errs.NotFound, "no such file: %s", path)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamUnavailable, fmt.Sprintf("failed to read %s", path), err)
	}

	sum := sha256.Sum256(data)
	return &FilePayload{
		Path:    path,
		Content: string(data),
		SHA256:  hex.EncodeToString(sum[:]),
	}, nil
}

// trackETag publishes an update when the etag changes
func (s *Service) trackETag(etag string) {
	s.mu.Lock()
	changed := s.lastETag != "" && s.lastETag != etag
	s.lastETag = etag
	s.mu.Unlock()

	if changed {
		s.hub.Publish(etag)
	}
}

// poll recomputes the manifest on a fixed cadence so subscribers learn about
// content changes even when no client is fetching.
func (s *Service) poll(period time.Duration) {
	if period <= 0 {
		period = 5 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), period)
			manifest, err := s.builder.Manifest(ctx)
			cancel()
			if err != nil {
				s.log.Warn().Err(err).Msg("manifest poll failed")
				continue
			}
			s.trackETag(manifest.ETag)
		}
	}
}

// Close stops the poller
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}
