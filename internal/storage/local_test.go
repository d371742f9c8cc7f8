package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	"github.com/yichenlu/sensereader/pkg/errs"
)

func TestLocalAdapter(t *testing.T) {
	adapter, err := NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	defer adapter.Close()
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		content := []byte("hello storage")
		if err := adapter.Put(ctx, "content/a.txt", bytes.NewReader(content)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		reader, err := adapter.Get(ctx, "content/a.txt")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		defer reader.Close()

		got, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("Got %q, want %q", got, content)
		}
	})

	t.Run("Put replaces atomically", func(t *testing.T) {
		if err := adapter.Put(ctx, "content/a.txt", bytes.NewReader([]byte("replaced"))); err != nil {
			t.Fatalf("Second put failed: %v", err)
		}
		reader, _ := adapter.Get(ctx, "content/a.txt")
		got, _ := io.ReadAll(reader)
		reader.Close()
		if string(got) != "replaced" {
			t.Errorf("Got %q, want replaced", got)
		}
	})

	t.Run("Missing file is not_found", func(t *testing.T) {
		_, err := adapter.Get(ctx, "content/missing.txt")
		if !errs.IsKind(err, errs.NotFound) {
			t.Errorf("Get kind = %s, want not_found", errs.KindOf(err))
		}
		_, err = adapter.Stat(ctx, "content/missing.txt")
		if !errs.IsKind(err, errs.NotFound) {
			t.Errorf("Stat kind = %s, want not_found", errs.KindOf(err))
		}
	})

	t.Run("Root escape rejected", func(t *testing.T) {
		for _, op := range []func() error{
			func() error { return adapter.Put(ctx, "../outside.txt", bytes.NewReader([]byte("x"))) },
			func() error { _, err := adapter.Get(ctx, "content/../../outside.txt"); return err },
			func() error { _, err := adapter.Stat(ctx, "../../etc/passwd"); return err },
		} {
			if err := op(); !errs.IsKind(err, errs.InvalidArgument) {
				t.Errorf("Escape kind = %s, want invalid_argument", errs.KindOf(err))
			}
		}
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := adapter.Exists(ctx, "content/a.txt")
		if err != nil || !exists {
			t.Errorf("Exists = %v, %v; want true, nil", exists, err)
		}
		exists, err = adapter.Exists(ctx, "content/missing.txt")
		if err != nil || exists {
			t.Errorf("Exists = %v, %v; want false, nil", exists, err)
		}
	})

	t.Run("Stat", func(t *testing.T) {
		meta, err := adapter.Stat(ctx, "content/a.txt")
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if meta.Size != int64(len("replaced")) {
			t.Errorf("Size = %d", meta.Size)
		}
		if meta.LastModified.IsZero() {
			t.Error("LastModified should be set")
		}
	})

	t.Run("SHA256 matches content", func(t *testing.T) {
		sum, err := adapter.SHA256(ctx, "content/a.txt")
		if err != nil {
			t.Fatalf("SHA256 failed: %v", err)
		}
		want := sha256.Sum256([]byte("replaced"))
		if sum != hex.EncodeToString(want[:]) {
			t.Errorf("SHA256 = %s, want %s", sum, hex.EncodeToString(want[:]))
		}
		if _, err := adapter.SHA256(ctx, "content/missing.txt"); !errs.IsKind(err, errs.NotFound) {
			t.Errorf("Hashing a missing file should be not_found, got %v", err)
		}
	})

	t.Run("List returns sorted relative POSIX paths", func(t *testing.T) {
		adapter.Put(ctx, "content/sub/b.txt", bytes.NewReader([]byte("b")))

		paths, err := adapter.List(ctx, "content/")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(paths) != 2 {
			t.Fatalf("Expected 2 paths, got %d: %v", len(paths), paths)
		}
		if paths[0] != "content/a.txt" || paths[1] != "content/sub/b.txt" {
			t.Errorf("Unexpected listing: %v", paths)
		}
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		if err := adapter.Delete(ctx, "content/a.txt"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := adapter.Delete(ctx, "content/a.txt"); err != nil {
			t.Errorf("Second delete should be a no-op: %v", err)
		}
	})
}
