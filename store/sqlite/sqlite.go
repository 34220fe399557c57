// Package sqlite provides the default store backend, a single-file SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/store"
	_ "modernc.org/sqlite"
)

var _ store.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

// title uniqueness only applies to non-empty titles, the way a sparse
// unique index behaves in a document store.
const schema = `
CREATE TABLE IF NOT EXISTS books (
	url TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	title_norm TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	pages_count TEXT NOT NULL DEFAULT '',
	year TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	isbn TEXT NOT NULL DEFAULT '',
	views TEXT NOT NULL DEFAULT '',
	file TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_books_url ON books(url);
CREATE UNIQUE INDEX IF NOT EXISTS idx_books_title ON books(title) WHERE title <> '';
CREATE INDEX IF NOT EXISTS idx_books_title_norm ON books(title_norm);
CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
CREATE INDEX IF NOT EXISTS idx_books_department ON books(department);
CREATE INDEX IF NOT EXISTS idx_books_year ON books(year);
`

const bookColumns = `url, image, title, author, description, department, pages_count, year, publisher, city, isbn, views, file`

// New opens (creating if needed) a SQLite-backed store.Backend.
func New(dsn string) (store.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) InsertBook(ctx context.Context, record *models.BookRecord) error {
	if record.URL == "" {
		return fmt.Errorf("%w: url is required", store.ErrInvalidRecord)
	}

	query := `
	INSERT INTO books (` + bookColumns + `, title_norm)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		record.URL,
		record.Image,
		record.Title,
		record.Author,
		record.Description,
		record.Department,
		record.PagesCount,
		record.Year,
		record.Publisher,
		record.City,
		record.ISBN,
		record.Views,
		record.File,
		models.NormalizeTitle(record.Title),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", store.ErrDuplicate, record.URL)
		}
		return fmt.Errorf("insert book: %w", err)
	}

	return nil
}

func (b *sqliteBackend) exists(ctx context.Context, query string, arg string) (bool, error) {
	var found bool
	if err := b.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return found, nil
}

func (b *sqliteBackend) HasURL(ctx context.Context, url string) (bool, error) {
	return b.exists(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE url = ?)`, url)
}

func (b *sqliteBackend) HasTitle(ctx context.Context, title string) (bool, error) {
	return b.exists(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE title = ?)`, title)
}

func (b *sqliteBackend) HasNormalizedTitle(ctx context.Context, norm string) (bool, error) {
	return b.exists(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE title_norm = ? AND title_norm <> '')`, norm)
}

func (b *sqliteBackend) SearchBooks(ctx context.Context, query string, limit int) ([]*models.BookRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(query) + "%"

	// lower() in SQLite only folds ASCII; substring search over Cyrillic
	// text is effectively case-sensitive on this backend.
	rows, err := b.db.QueryContext(ctx, `
	SELECT `+bookColumns+` FROM books
	WHERE lower(title) LIKE ? OR lower(author) LIKE ? OR lower(description) LIKE ?
	LIMIT ?`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

func (b *sqliteBackend) GetBookByURL(ctx context.Context, url string) (*models.BookRecord, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE url = ?`, url)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	defer rows.Close()

	records, err := scanBooks(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (b *sqliteBackend) CountBooks(ctx context.Context) (int, error) {
	var count int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

func scanBooks(rows *sql.Rows) ([]*models.BookRecord, error) {
	var records []*models.BookRecord
	for rows.Next() {
		var r models.BookRecord
		err := rows.Scan(
			&r.URL, &r.Image, &r.Title, &r.Author, &r.Description, &r.Department,
			&r.PagesCount, &r.Year, &r.Publisher, &r.City, &r.ISBN, &r.Views, &r.File,
		)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return records, nil
}
