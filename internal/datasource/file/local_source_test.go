package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocal_Open(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feed.csv")
	if err := os.WriteFile(path, []byte("regiao;uf\nSudeste;SP\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rc, err := NewLocal(path).Open(t.Context())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "regiao;uf\nSudeste;SP\n" {
		t.Fatalf("data = %q", data)
	}
}

func TestLocal_OpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewLocal(filepath.Join(t.TempDir(), "absent.csv")).Open(t.Context())
	if err == nil {
		t.Fatal("Open succeeded on a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestLocal_OpenCanceledContext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feed.csv")
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := NewLocal(path).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
