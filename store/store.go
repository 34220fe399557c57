// Package store defines the document-store interface the deduplicating sink
// writes through. The persistent collection is insert-only: no update or
// delete path exists.
package store

import (
	"context"
	"errors"

	"github.com/akozyrev/libsync/models"
)

// ErrDuplicate wraps a uniqueness-constraint violation raised by the store
// itself.
var ErrDuplicate = errors.New("duplicate record")

// ErrInvalidRecord wraps a record the store refuses to persist, e.g. one
// with an empty URL.
var ErrInvalidRecord = errors.New("invalid record")

// Backend is implemented by the sqlite, postgres and in-memory stores.
// InsertBook enforces the uniqueness of url and of non-empty titles.
// HasNormalizedTitle is the index-backed replacement for scanning every
// stored title per insert; it must make the same match decisions as
// comparing models.NormalizeTitle of all stored titles.
type Backend interface {
	InsertBook(ctx context.Context, record *models.BookRecord) error
	HasURL(ctx context.Context, url string) (bool, error)
	HasTitle(ctx context.Context, title string) (bool, error)
	HasNormalizedTitle(ctx context.Context, norm string) (bool, error)

	// SearchBooks is a read API over title/author/description, exposed for
	// consumers of the collection; the ingestion path never calls it.
	SearchBooks(ctx context.Context, query string, limit int) ([]*models.BookRecord, error)
	GetBookByURL(ctx context.Context, url string) (*models.BookRecord, error)
	CountBooks(ctx context.Context) (int, error)

	Close() error
}
