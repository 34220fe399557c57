package catalog

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const (
	testBase   = "https://lib.example.org/books/"
	testOrigin = "https://lib.example.org"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(testBase, "libsync-test", 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	t.Cleanup(client.Close)
	return client
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("http://", "ua", time.Second); err == nil {
		t.Fatalf("expected error for url without host")
	}
}

func TestFetchText(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(200, "<html>да</html>"))

	body, err := client.FetchText(context.Background(), testBase)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if body != "<html>да</html>" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchTextNon2xx(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(503, "unavailable"))

	_, err := client.FetchText(context.Background(), testBase)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", netErr.StatusCode)
	}
}

func TestFetchTextConnectionFailure(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBase,
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := client.FetchText(context.Background(), testBase)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.Unwrap() == nil {
		t.Errorf("transport failure should carry the underlying error")
	}
}

func TestClientCloseThenReuse(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(200, "ok"))

	if _, err := client.FetchText(context.Background(), testBase); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	client.Close()

	// A fresh session is created lazily; re-attach the mock transport.
	httpmock.ActivateNonDefault(client.HTTPClient())
	httpmock.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(200, "ok again"))

	body, err := client.FetchText(context.Background(), testBase)
	if err != nil {
		t.Fatalf("fetch after close: %v", err)
	}
	if body != "ok again" {
		t.Errorf("body = %q", body)
	}
}

const rootHTML = `
<html><body>
<div class="intro"><p>Всего 42 книги</p></div>
<div class="nav-pages">
  <a href="?PAGEN_1=1">1</a><a href="?PAGEN_1=2">2</a><a href="?PAGEN_1=3">3</a>
  <a href="?PAGEN_1=4">4</a><a href="?PAGEN_1=2">&gt;</a><a href="?PAGEN_1=7">&gt;&gt;</a>
</div>
</body></html>`

func TestWalkerCounts(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(200, rootHTML))

	walker := NewWalker(client)
	ctx := context.Background()

	books, err := walker.TotalBooks(ctx)
	if err != nil {
		t.Fatalf("TotalBooks: %v", err)
	}
	if books != 42 {
		t.Errorf("books = %d, want 42", books)
	}

	pages, err := walker.TotalPages(ctx)
	if err != nil {
		t.Fatalf("TotalPages: %v", err)
	}
	if pages != 7 {
		t.Errorf("pages = %d, want 7", pages)
	}
}

func TestWalkerTotalPagesMissingPagination(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBase,
		httpmock.NewStringResponder(200, "<html><body>пусто</body></html>"))

	_, err := NewWalker(client).TotalPages(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestWalkerBooksOnPage(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBase+"?PAGEN_1=2",
		httpmock.NewStringResponder(200, `
<html><body>
<div class="book"><h3><a href="/books/detail.php?ID=9">Идиот</a></h3></div>
</body></html>`))

	records, err := NewWalker(client).BooksOnPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("BooksOnPage: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].URL != testOrigin+"/books/detail.php?ID=9" {
		t.Errorf("url = %q", records[0].URL)
	}
}

func TestWalkerBookDetailDegradesGracefully(t *testing.T) {
	client := newTestClient(t)
	detailURL := testOrigin + "/books/detail.php?ID=9"
	httpmock.RegisterResponder("GET", detailURL,
		httpmock.NewStringResponder(200, "<html><body>нет контейнера</body></html>"))

	record, err := NewWalker(client).BookDetail(context.Background(), detailURL)
	if err != nil {
		t.Fatalf("BookDetail: %v", err)
	}
	if record.URL != detailURL {
		t.Errorf("url = %q", record.URL)
	}
	if record.Title != "" {
		t.Errorf("title = %q, want empty", record.Title)
	}
}
