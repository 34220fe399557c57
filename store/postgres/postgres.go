// Package postgres provides a PostgreSQL store backend for deployments that
// share the collection between services.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ store.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const uniqueViolation = "23505"

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

// New connects to PostgreSQL and ensures the books table exists.
func New(ctx context.Context, dsn string) (store.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) InsertBook(ctx context.Context, record *models.BookRecord) error {
	if record.URL == "" {
		return fmt.Errorf("%w: url is required", store.ErrInvalidRecord)
	}

	query := `
	INSERT INTO books (` + bookColumns + `, title_norm)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := b.pool.Exec(ctx, query,
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
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", store.ErrDuplicate, record.URL)
		}
		return fmt.Errorf("insert book: %w", err)
	}

	return nil
}

func (b *postgresBackend) exists(ctx context.Context, query string, arg string) (bool, error) {
	var found bool
	if err := b.pool.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return found, nil
}

func (b *postgresBackend) HasURL(ctx context.Context, url string) (bool, error) {
	return b.exists(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE url = $1)`, url)
}

func (b *postgresBackend) HasTitle(ctx context.Context, title string) (bool, error) {
	return b.exists(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE title = $1)`, title)
}

func (b *postgresBackend) HasNormalizedTitle(ctx context.Context, norm string) (bool, error) {
	return b.exists(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE title_norm = $1 AND title_norm <> '')`, norm)
}

func (b *postgresBackend) SearchBooks(ctx context.Context, query string, limit int) ([]*models.BookRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"

	rows, err := b.pool.Query(ctx, `
	SELECT `+bookColumns+` FROM books
	WHERE title ILIKE $1 OR author ILIKE $1 OR description ILIKE $1
	LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

func (b *postgresBackend) GetBookByURL(ctx context.Context, url string) (*models.BookRecord, error) {
	rows, err := b.pool.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE url = $1`, url)
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

func (b *postgresBackend) CountBooks(ctx context.Context) (int, error) {
	var count int
	if err := b.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}

func scanBooks(rows pgx.Rows) ([]*models.BookRecord, error) {
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
