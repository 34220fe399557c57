package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/store"
)

func TestPostgresBackend(t *testing.T) {
	// Needs a live server; set LIBSYNC_TEST_PG_DSN to run.
	dsn := os.Getenv("LIBSYNC_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("skipping Postgres backend test: LIBSYNC_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("create postgres backend: %v", err)
	}
	defer b.Close()

	// Unique URL per run so reruns against the same database don't collide.
	url := fmt.Sprintf("https://lib.example.org/books/detail.php?ID=%d", time.Now().UnixNano())
	title := fmt.Sprintf("Тестовая книга %d", time.Now().UnixNano())

	record := models.NewBookRecord(url)
	record.Title = title
	record.Author = "Н. В. Гоголь"
	record.Description = "интеграционный тест"

	if err := b.InsertBook(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	exists, err := b.HasURL(ctx, url)
	if err != nil || !exists {
		t.Fatalf("HasURL = (%v, %v), want (true, nil)", exists, err)
	}
	exists, err = b.HasNormalizedTitle(ctx, models.NormalizeTitle(title))
	if err != nil || !exists {
		t.Fatalf("HasNormalizedTitle = (%v, %v), want (true, nil)", exists, err)
	}

	if err := b.InsertBook(ctx, record); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("second insert: got %v, want ErrDuplicate", err)
	}

	results, err := b.SearchBooks(ctx, "интеграционный тест", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("search returned no results")
	}

	got, err := b.GetBookByURL(ctx, url)
	if err != nil || got == nil || got.Title != title {
		t.Fatalf("GetBookByURL = (%+v, %v)", got, err)
	}
}
