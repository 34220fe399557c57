package catalog

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/parser"
)

// Walker drives the client across the catalog's pagination and hands pages
// to the extractor.
type Walker struct {
	client *Client
}

func NewWalker(client *Client) *Walker {
	return &Walker{client: client}
}

func (w *Walker) listing(ctx context.Context, rawURL string) (*goquery.Document, error) {
	html, err := w.client.FetchText(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := parser.Document(html)
	if err != nil {
		return nil, &ParseError{URL: rawURL, What: "malformed html", Err: err}
	}
	return doc, nil
}

// TotalBooks fetches the root listing and returns the advertised book count.
// Failure here is fatal for the run.
func (w *Walker) TotalBooks(ctx context.Context) (int, error) {
	doc, err := w.listing(ctx, w.client.BaseURL())
	if err != nil {
		return 0, err
	}
	count, err := parser.TotalBooks(doc)
	if err != nil {
		return 0, &ParseError{URL: w.client.BaseURL(), What: "book count", Err: err}
	}
	return count, nil
}

// TotalPages fetches the root listing and returns the last page number from
// the pagination block. Failure here is fatal for the run.
func (w *Walker) TotalPages(ctx context.Context) (int, error) {
	doc, err := w.listing(ctx, w.client.BaseURL())
	if err != nil {
		return 0, err
	}
	pages, err := parser.TotalPages(doc)
	if err != nil {
		return 0, &ParseError{URL: w.client.BaseURL(), What: "page count", Err: err}
	}
	return pages, nil
}

// BooksOnPage fetches one listing page and returns its summary records. An
// empty result is not an error.
func (w *Walker) BooksOnPage(ctx context.Context, page int) ([]*models.SummaryRecord, error) {
	pageURL := fmt.Sprintf("%s?PAGEN_1=%d", w.client.BaseURL(), page)
	doc, err := w.listing(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parser.Summaries(doc, w.client.Origin()), nil
}

// BookDetail fetches a detail page and extracts the full field set. A page
// without the bookdetail container still yields a record carrying the URL.
func (w *Walker) BookDetail(ctx context.Context, rawURL string) (*models.BookRecord, error) {
	doc, err := w.listing(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return parser.Detail(doc, rawURL, w.client.Origin()), nil
}
