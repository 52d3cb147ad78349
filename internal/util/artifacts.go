package util

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Finalized analysis artifacts are written via a temp file and rename, so a
// worker dying mid-write never leaves a truncated analysis.json behind for
// the TTS stage to pick up.

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// SafeJoin keeps a chapter-derived name from escaping the output root.
func SafeJoin(root, name string) string {
	return filepath.Join(root, filepath.Base(name))
}

func writeAtomic(path, pattern string, fill func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSONAtomic renders the chapter analysis document, indented for the
// humans who end up diffing re-analysis runs.
func WriteJSONAtomic(path string, v any) error {
	return writeAtomic(path, "analysis-*.json", func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// WriteJSONLinesAtomic writes one dialog line per row, the shape the voice
// renderer consumes.
func WriteJSONLinesAtomic(path string, rows []any) error {
	return writeAtomic(path, "lines-*.jsonl", func(f *os.File) error {
		w := bufio.NewWriter(f)
		for _, row := range rows {
			b, err := json.Marshal(row)
			if err != nil {
				return err
			}
			b = append(b, '\n')
			if _, err := w.Write(b); err != nil {
				return err
			}
		}
		return w.Flush()
	})
}

func WriteTextAtomic(path string, content string) error {
	return writeAtomic(path, "text-*.txt", func(f *os.File) error {
		_, err := f.WriteString(content)
		return err
	})
}
