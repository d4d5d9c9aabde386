// Package fileutil provides atomic file writing helpers.
package fileutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// PendingSuffix marks in-flight writes. A file is only visible under its final
// name once the full payload has been flushed and renamed into place.
const PendingSuffix = ".pending"

// WriteAtomic writes the payload produced by write to path via a temporary
// .pending sibling and renames it into place. If the rename fails because the
// destination exists and the platform's rename does not overwrite, the
// destination is removed and the rename retried once.
func WriteAtomic(path string, write func(io.Writer) error) error {
	tmp := path + PendingSuffix

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write payload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(path)
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename into place: %w", err)
		}
	}
	return nil
}

// WriteJSONAtomic marshals v compactly and writes it atomically to path.
func WriteJSONAtomic(path string, v any) error {
	return WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		return enc.Encode(v)
	})
}
