// Package models defines data structures for the catalog sync.
package models

import "strings"

// BookRecord is the full set of fields extracted from a book detail page.
// URL and Title act as dedup keys; everything else is carried as an opaque
// string even when it looks numeric, matching what the catalog serves.
type BookRecord struct {
	URL         string `json:"url"`
	Image       string `json:"image"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Department  string `json:"department"`
	PagesCount  string `json:"pages_count"`
	Year        string `json:"year"`
	Publisher   string `json:"publisher"`
	City        string `json:"city"`
	ISBN        string `json:"isbn"`
	Views       string `json:"views"`
	File        string `json:"file"`
}

// NewBookRecord returns a record with every optional field defaulted to the
// empty string. All records go through this factory so a missing extraction
// target always yields the documented default.
func NewBookRecord(url string) *BookRecord {
	return &BookRecord{URL: url}
}

// SummaryRecord is the listing-page subset of BookRecord, including the
// detail URL used for the second fetch.
type SummaryRecord struct {
	URL         string `json:"url"`
	Image       string `json:"image"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// RunSummary is serialized once at the end of a run. Count is the total the
// site advertises, not the number of records actually collected.
type RunSummary struct {
	Books   []*BookRecord `json:"books"`
	Count   int           `json:"count"`
	Errors  int           `json:"errors"`
	Success int           `json:"success"`
}

// NormalizeTitle lowercases a title and collapses internal whitespace. Two
// titles equal under this normalization are treated as the same book.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
