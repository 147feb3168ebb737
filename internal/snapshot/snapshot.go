// Package snapshot writes the metrics collector's state to a JSON file
// on every request completion, atomically so a concurrent reader (an
// operator's `cat`, or any other process reading the file) never
// observes a half-written file.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Writer rewrites a single JSON file via write-to-temp-then-rename,
// which is atomic on POSIX filesystems within the same directory.
type Writer struct {
	path string
}

// NewWriter targets path (typically "metrics.json").
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write marshals v and atomically replaces the target file's contents.
func (w *Writer) Write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshaling: %w", err)
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".metrics-*.json.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: renaming into place: %w", err)
	}
	return nil
}
