package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bmp")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("payload"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read final file: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("content mismatch: %q", got)
	}
	if _, err := os.Stat(path + PendingSuffix); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pending file should not remain: %v", err)
	}
}

func TestWriteAtomicOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bmp")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestWriteAtomicCleansUpOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bmp")

	wantErr := errors.New("encode failed")
	err := WriteAtomic(path, func(io.Writer) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped encode error, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("final file should not exist after failed write")
	}
	if _, statErr := os.Stat(path + PendingSuffix); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("pending file should be removed after failed write")
	}
}

func TestWriteAtomicNeverExposesPendingName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bmp")
	if err := WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("x"))
		return err
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), PendingSuffix) {
			t.Fatalf("pending artifact leaked: %s", entry.Name())
		}
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heartbeat_capture.json")

	if err := WriteJSONAtomic(path, map[string]any{"state": "monitoring"}); err != nil {
		t.Fatalf("WriteJSONAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"state":"monitoring"`) {
		t.Fatalf("unexpected json payload: %s", data)
	}
}
