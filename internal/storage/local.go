package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yichenlu/sensereader/pkg/errs"
)

// tempPrefix marks in-flight writes so listings never surface them
const tempPrefix = ".put-"

// LocalAdapter implements the Adapter interface over a directory tree.
// Writes land in a temp file and rename into place, so readers never see a
// half-written document and a crash mid-Put leaves the old content intact.
type LocalAdapter struct {
	basePath string
}

// NewLocalAdapter creates a local filesystem adapter rooted at basePath
func NewLocalAdapter(basePath string) (*LocalAdapter, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalAdapter{basePath: abs}, nil
}

// resolve maps a storage path onto the filesystem. Traversal segments are
// rejected before cleaning (Clean would silently neutralize them); the sync
// whitelist relies on this backstop holding even if a traversal sequence
// slips past the HTTP layer.
func (l *LocalAdapter) resolve(p string) (string, error) {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return "", errs.Newf(errs.InvalidArgument, "path escapes storage root: %s", p)
		}
	}
	full := filepath.Join(l.basePath, filepath.FromSlash(path.Clean("/"+p)))
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(filepath.Separator)) {
		return "", errs.Newf(errs.InvalidArgument, "path escapes storage root: %s", p)
	}
	return full, nil
}

// Put stores data at the given path via temp-file-and-rename
func (l *LocalAdapter) Put(ctx context.Context, p string, data io.Reader) error {
	full, err := l.resolve(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush data: %w", err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit file: %w", err)
	}
	return nil
}

// Get retrieves data from the given path
func (l *LocalAdapter) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Newf(errs.NotFound, "file not found: %s", p)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes data at the given path
func (l *LocalAdapter) Delete(ctx context.Context, p string) error {
	full, err := l.resolve(p)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if data exists at the given path
func (l *LocalAdapter) Exists(ctx context.Context, p string) (bool, error) {
	full, err := l.resolve(p)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

// List returns sorted root-relative POSIX paths under the given prefix.
// In-flight temp files are excluded.
func (l *LocalAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	paths := make([]string, 0)

	err := filepath.WalkDir(l.basePath, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, fp)
		if err != nil {
			return err
		}
		if rp := filepath.ToSlash(rel); strings.HasPrefix(rp, prefix) {
			paths = append(paths, rp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Stat returns metadata for the file at the given path
func (l *LocalAdapter) Stat(ctx context.Context, p string) (*Metadata, error) {
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Newf(errs.NotFound, "file not found: %s", p)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &Metadata{
		Path:         p,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

// SHA256 hashes the file content in fixed-size chunks
func (l *LocalAdapter) SHA256(ctx context.Context, p string) (string, error) {
	reader, err := l.Get(ctx, p)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, reader, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Close cleans up any resources
func (l *LocalAdapter) Close() error {
	return nil
}
