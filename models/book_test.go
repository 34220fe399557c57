package models

import (
	"encoding/json"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "already normalized",
			input:    "война и мир",
			expected: "война и мир",
		},
		{
			name:     "mixed case",
			input:    "Война и Мир",
			expected: "война и мир",
		},
		{
			name:     "surrounding and internal whitespace",
			input:    "  война   и мир  ",
			expected: "война и мир",
		},
		{
			name:     "tabs and newlines",
			input:    "война\tи\nмир",
			expected: "война и мир",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTitle(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewBookRecordDefaults(t *testing.T) {
	rec := NewBookRecord("https://lib.example.org/books/detail.php?ID=1")
	if rec.URL != "https://lib.example.org/books/detail.php?ID=1" {
		t.Fatalf("URL = %q", rec.URL)
	}
	for name, value := range map[string]string{
		"image":       rec.Image,
		"title":       rec.Title,
		"author":      rec.Author,
		"description": rec.Description,
		"department":  rec.Department,
		"pages_count": rec.PagesCount,
		"year":        rec.Year,
		"publisher":   rec.Publisher,
		"city":        rec.City,
		"isbn":        rec.ISBN,
		"views":       rec.Views,
		"file":        rec.File,
	} {
		if value != "" {
			t.Errorf("field %s = %q, want empty default", name, value)
		}
	}
}

func TestRunSummaryRoundTrip(t *testing.T) {
	summary := RunSummary{
		Books: []*BookRecord{
			{URL: "/b/1", Title: "Война и мир"},
			{URL: "/b/2", Title: "Анна Каренина"},
		},
		Count:   120,
		Errors:  3,
		Success: 2,
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed RunSummary
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if parsed.Count != summary.Count {
		t.Errorf("count = %d, want %d", parsed.Count, summary.Count)
	}
	if parsed.Errors != summary.Errors {
		t.Errorf("errors = %d, want %d", parsed.Errors, summary.Errors)
	}
	if parsed.Success != summary.Success {
		t.Errorf("success = %d, want %d", parsed.Success, summary.Success)
	}
	if len(parsed.Books) != len(summary.Books) {
		t.Errorf("books length = %d, want %d", len(parsed.Books), len(summary.Books))
	}
}
