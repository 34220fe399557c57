// Package memory provides a map-backed store. Dump-only runs use it so
// within-run dedup still applies without a database; tests use it everywhere.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/store"
)

var _ store.Backend = (*memoryBackend)(nil)

type memoryBackend struct {
	mu      sync.Mutex
	byURL   map[string]*models.BookRecord
	byTitle map[string]*models.BookRecord
	byNorm  map[string]*models.BookRecord
	order   []*models.BookRecord
}

// New returns an empty in-memory store.Backend.
func New() store.Backend {
	return &memoryBackend{
		byURL:   make(map[string]*models.BookRecord),
		byTitle: make(map[string]*models.BookRecord),
		byNorm:  make(map[string]*models.BookRecord),
	}
}

func (b *memoryBackend) InsertBook(_ context.Context, record *models.BookRecord) error {
	if record.URL == "" {
		return fmt.Errorf("%w: url is required", store.ErrInvalidRecord)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byURL[record.URL]; ok {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, record.URL)
	}
	if record.Title != "" {
		if _, ok := b.byTitle[record.Title]; ok {
			return fmt.Errorf("%w: %s", store.ErrDuplicate, record.URL)
		}
	}

	clone := *record
	b.byURL[clone.URL] = &clone
	if clone.Title != "" {
		b.byTitle[clone.Title] = &clone
		b.byNorm[models.NormalizeTitle(clone.Title)] = &clone
	}
	b.order = append(b.order, &clone)
	return nil
}

func (b *memoryBackend) HasURL(_ context.Context, url string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.byURL[url]
	return ok, nil
}

func (b *memoryBackend) HasTitle(_ context.Context, title string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.byTitle[title]
	return ok, nil
}

func (b *memoryBackend) HasNormalizedTitle(_ context.Context, norm string) (bool, error) {
	if norm == "" {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.byNorm[norm]
	return ok, nil
}

func (b *memoryBackend) SearchBooks(_ context.Context, query string, limit int) ([]*models.BookRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	needle := strings.ToLower(query)

	b.mu.Lock()
	defer b.mu.Unlock()

	var results []*models.BookRecord
	for _, record := range b.order {
		if len(results) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(record.Title), needle) ||
			strings.Contains(strings.ToLower(record.Author), needle) ||
			strings.Contains(strings.ToLower(record.Description), needle) {
			clone := *record
			results = append(results, &clone)
		}
	}
	return results, nil
}

func (b *memoryBackend) GetBookByURL(_ context.Context, url string) (*models.BookRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	record, ok := b.byURL[url]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (b *memoryBackend) CountBooks(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order), nil
}

func (b *memoryBackend) Close() error {
	return nil
}
