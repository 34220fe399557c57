package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/store"
)

func sample(url, title string) *models.BookRecord {
	record := models.NewBookRecord(url)
	record.Title = title
	record.Author = "А. С. Пушкин"
	return record
}

func TestInsertAndDuplicates(t *testing.T) {
	b := New()
	ctx := context.Background()

	if err := b.InsertBook(ctx, sample("/b/1", "Евгений Онегин")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := b.InsertBook(ctx, sample("/b/1", "Другое")); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate url: got %v, want ErrDuplicate", err)
	}
	if err := b.InsertBook(ctx, sample("/b/2", "Евгений Онегин")); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate title: got %v, want ErrDuplicate", err)
	}
	if err := b.InsertBook(ctx, sample("", "Без адреса")); !errors.Is(err, store.ErrInvalidRecord) {
		t.Errorf("empty url: got %v, want ErrInvalidRecord", err)
	}

	count, err := b.CountBooks(ctx)
	if err != nil || count != 1 {
		t.Fatalf("count = (%d, %v), want (1, nil)", count, err)
	}
}

func TestNormalizedTitleLookup(t *testing.T) {
	b := New()
	ctx := context.Background()

	if err := b.InsertBook(ctx, sample("/b/1", "Война и мир")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	exists, err := b.HasNormalizedTitle(ctx, models.NormalizeTitle("  война   и мир  "))
	if err != nil || !exists {
		t.Fatalf("normalized lookup = (%v, %v), want (true, nil)", exists, err)
	}
	exists, err = b.HasNormalizedTitle(ctx, "")
	if err != nil || exists {
		t.Fatalf("empty normalized title must never match")
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	b := New()
	ctx := context.Background()

	record := sample("/b/1", "Капитанская дочка")
	record.Description = "Историческая повесть"
	if err := b.InsertBook(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	results, err := b.SearchBooks(ctx, "ПУШКИН", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	results, err = b.SearchBooks(ctx, "нет такого", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}

func TestGetBookByURLReturnsCopy(t *testing.T) {
	b := New()
	ctx := context.Background()

	if err := b.InsertBook(ctx, sample("/b/1", "Евгений Онегин")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := b.GetBookByURL(ctx, "/b/1")
	if err != nil || got == nil {
		t.Fatalf("get = (%v, %v)", got, err)
	}
	got.Title = "изменено"

	again, _ := b.GetBookByURL(ctx, "/b/1")
	if again.Title != "Евгений Онегин" {
		t.Fatalf("stored record was mutated through the returned copy")
	}

	missing, err := b.GetBookByURL(ctx, "/b/404")
	if err != nil || missing != nil {
		t.Fatalf("missing url should return (nil, nil), got (%v, %v)", missing, err)
	}
}
