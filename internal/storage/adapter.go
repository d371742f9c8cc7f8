// Package storage is the content backend shared by the memory store (JSON
// documents) and the sync service (manifest + file bodies). Both backends
// guarantee document-level atomicity on Put, classify missing objects with
// the not_found error kind, and can hash content for manifest computation.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/yichenlu/sensereader/pkg/types"
)

// hashChunkSize is the fixed read size for content hashing; manifest
// computation stays memory-flat regardless of file size.
const hashChunkSize = 32 * 1024

// Adapter defines the interface for storage backends
type Adapter interface {
	// Put stores data at the given path, atomically at document level
	Put(ctx context.Context, path string, data io.Reader) error

	// Get retrieves data from the given path; absent paths yield a
	// not_found error
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes data at the given path; deleting an absent path is
	// a no-op
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths under the given prefix, relative to the adapter
	// root, with POSIX separators, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Stat returns metadata for the file at the given path
	Stat(ctx context.Context, path string) (*Metadata, error)

	// SHA256 returns the lowercase hex content hash of the file at the
	// given path, computed in fixed-size chunks
	SHA256(ctx context.Context, path string) (string, error)

	// Close cleans up any resources
	Close() error
}

// Metadata represents file metadata
type Metadata struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// NewAdapter creates the storage backend selected by configuration
func NewAdapter(cfg types.StorageConfig) (Adapter, error) {
	switch cfg.Adapter {
	case "local":
		return NewLocalAdapter(cfg.Local.BasePath)
	case "s3":
		return NewS3Adapter(S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Adapter)
	}
}
