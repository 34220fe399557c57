package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akozyrev/libsync/models"
)

// DumpWriter writes the RunSummary to a JSON artifact once per run.
type DumpWriter struct {
	path string
}

// NewDumpWriter prepares a writer for the given path, creating parent
// directories as needed.
func NewDumpWriter(path string) (*DumpWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return &DumpWriter{path: path}, nil
}

// Path returns the artifact path.
func (w *DumpWriter) Path() string {
	return w.path
}

// Write serializes the summary as indented UTF-8 JSON. HTML escaping is
// disabled so Cyrillic titles and URLs stay readable in the artifact.
func (w *DumpWriter) Write(summary *models.RunSummary) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(summary); err != nil {
		f.Close()
		return fmt.Errorf("encode dump: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close dump file: %w", err)
	}
	return nil
}

// Validate ensures the artifact exists and is non-empty.
func (w *DumpWriter) Validate() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("stat dump file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("dump file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
