package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/relembraq/relembraq/engine/summary"
)

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, creating the directory when needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("render: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("render: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("render: close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("render: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("render: commit %s: %w", path, err)
	}
	return nil
}

// WriteWith renders into memory with fn and writes the result atomically.
func WriteWith(path string, fn func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// EncodeSummaries renders records as a 4-space indented JSON array without
// HTML escaping, followed by a newline. No records encode as [].
func EncodeSummaries(records []summary.Record) ([]byte, error) {
	if records == nil {
		records = []summary.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("render: encode summaries: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSummaries persists the summary artifact at path.
func WriteSummaries(path string, records []summary.Record) error {
	data, err := EncodeSummaries(records)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}
