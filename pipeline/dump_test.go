package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akozyrev/libsync/models"
)

func TestDumpWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "books-dump.json")
	writer, err := NewDumpWriter(path)
	if err != nil {
		t.Fatalf("NewDumpWriter: %v", err)
	}

	summary := &models.RunSummary{
		Books: []*models.BookRecord{
			{URL: "https://lib.example.org/books/detail.php?ID=1&lang=ru", Title: "Война и мир"},
		},
		Count:   120,
		Errors:  1,
		Success: 1,
	}

	if err := writer.Write(summary); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	// Non-ASCII and HTML-significant characters stay literal.
	if !strings.Contains(string(data), "Война и мир") {
		t.Errorf("dump escaped non-ASCII text:\n%s", data)
	}
	if !strings.Contains(string(data), "ID=1&lang=ru") {
		t.Errorf("dump escaped the ampersand:\n%s", data)
	}
	if !strings.Contains(string(data), "\n  \"books\"") {
		t.Errorf("dump is not indented:\n%s", data)
	}

	var parsed models.RunSummary
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal dump: %v", err)
	}
	if parsed.Count != 120 || parsed.Errors != 1 || parsed.Success != 1 {
		t.Errorf("parsed counters = %+v", parsed)
	}
	if len(parsed.Books) != 1 || parsed.Books[0].Title != "Война и мир" {
		t.Errorf("parsed books = %+v", parsed.Books)
	}
}

func TestDumpWriterValidateMissingFile(t *testing.T) {
	writer, err := NewDumpWriter(filepath.Join(t.TempDir(), "never-written.json"))
	if err != nil {
		t.Fatalf("NewDumpWriter: %v", err)
	}
	if err := writer.Validate(); err == nil {
		t.Fatalf("expected error for missing artifact")
	}
}
