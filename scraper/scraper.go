// Package scraper sequences a full catalog sync run: counting, page
// iteration, detail fetches, dedup-inserts and the final dump.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akozyrev/libsync/catalog"
	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/pipeline"
	"github.com/jedib0t/go-pretty/v6/progress"
)

// Scraper owns the run's counters and drives the walker and sink. It holds
// no connection state of its own; the catalog client is opened and closed by
// the caller.
type Scraper struct {
	walker  *catalog.Walker
	sink    *pipeline.Sink
	dump    *pipeline.DumpWriter
	Metrics *Metrics

	pw progress.Writer
}

// New builds a scraper over an opened walker, sink and dump writer.
func New(walker *catalog.Walker, sink *pipeline.Sink, dump *pipeline.DumpWriter) *Scraper {
	return &Scraper{
		walker:  walker,
		sink:    sink,
		dump:    dump,
		Metrics: NewMetrics(),
	}
}

// SetProgress attaches a progress writer; the run then renders a tracker
// sized by the advertised book count. Rendering lifecycle belongs to the
// caller.
func (s *Scraper) SetProgress(pw progress.Writer) {
	s.pw = pw
}

// Result aggregates one run. Summary carries the serialized counters; the
// rest is reporting detail.
type Result struct {
	Summary *models.RunSummary
	Skipped int
	Pages   int
	Elapsed time.Duration
}

// Run executes the sync. Only count-phase failures and the final dump write
// can produce an error; page- and book-level failures are logged, counted
// and stepped over.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	totalBooks, err := s.totalBooks(ctx)
	if err != nil {
		slog.Error("cannot determine book count", slog.Any("error", err))
		return nil, fmt.Errorf("book count: %w", err)
	}
	totalPages, err := s.totalPages(ctx)
	if err != nil {
		slog.Error("cannot determine page count", slog.Any("error", err))
		return nil, fmt.Errorf("page count: %w", err)
	}

	slog.Info("starting sync",
		slog.Int("pages", totalPages),
		slog.Int("books", totalBooks),
	)

	summary := &models.RunSummary{
		Books: []*models.BookRecord{},
		Count: totalBooks,
	}
	result := &Result{Summary: summary}

	var tracker *progress.Tracker
	if s.pw != nil {
		tracker = &progress.Tracker{
			Message: "processing books",
			Total:   int64(totalBooks),
			Units:   progress.UnitsDefault,
		}
		s.pw.AppendTracker(tracker)
	}

pages:
	for page := 1; page <= totalPages; page++ {
		if ctx.Err() != nil {
			slog.Warn("run interrupted", slog.Int("page", page))
			break
		}

		books, err := s.booksOnPage(ctx, page)
		if err != nil {
			slog.Error("page failed", slog.Int("page", page), slog.Any("error", err))
			s.Metrics.IncPage("error")
			continue
		}
		result.Pages++

		if len(books) == 0 {
			slog.Warn("page has no books", slog.Int("page", page))
			s.Metrics.IncPage("empty")
			continue
		}
		s.Metrics.IncPage("ok")
		slog.Info("page fetched", slog.Int("page", page), slog.Int("books", len(books)))

		for _, book := range books {
			if ctx.Err() != nil {
				slog.Warn("run interrupted", slog.Int("page", page))
				break pages
			}

			if book.URL == "" {
				summary.Errors++
				s.Metrics.IncBook("failed")
				slog.Error("book without url", slog.String("title", book.Title))
				advance(tracker)
				continue
			}

			record, err := s.bookDetail(ctx, book.URL)
			if err != nil {
				summary.Errors++
				s.Metrics.IncBook("failed")
				slog.Error("detail failed", slog.String("url", book.URL), slog.Any("error", err))
				advance(tracker)
				continue
			}

			res := s.sink.InsertIfNew(ctx, record)
			switch res.Status {
			case pipeline.StatusInserted:
				summary.Success++
				summary.Books = append(summary.Books, record)
				s.Metrics.IncBook("inserted")
				slog.Debug("book stored", slog.String("title", record.Title), slog.String("url", record.URL))
			case pipeline.StatusSkipped:
				result.Skipped++
				s.Metrics.IncBook("skipped")
				slog.Debug("book skipped", slog.String("title", record.Title), slog.String("reason", res.Reason))
			case pipeline.StatusFailed:
				summary.Errors++
				s.Metrics.IncBook("failed")
				slog.Error("store insert failed", slog.String("title", record.Title), slog.Any("error", res.Err))
			}
			advance(tracker)
		}
	}

	if tracker != nil {
		tracker.MarkAsDone()
	}
	result.Elapsed = time.Since(start)

	// The artifact is written even when the run was interrupted or heavy
	// with errors.
	if err := s.dump.Write(summary); err != nil {
		slog.Error("write dump failed", slog.String("path", s.dump.Path()), slog.Any("error", err))
		return result, fmt.Errorf("write dump: %w", err)
	}

	slog.Info("sync finished",
		slog.Int("success", summary.Success),
		slog.Int("errors", summary.Errors),
		slog.Int("skipped", result.Skipped),
		slog.String("dump", s.dump.Path()),
		slog.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (s *Scraper) totalBooks(ctx context.Context) (int, error) {
	defer s.observe("counts", time.Now())
	return s.walker.TotalBooks(ctx)
}

func (s *Scraper) totalPages(ctx context.Context) (int, error) {
	defer s.observe("counts", time.Now())
	return s.walker.TotalPages(ctx)
}

func (s *Scraper) booksOnPage(ctx context.Context, page int) ([]*models.SummaryRecord, error) {
	defer s.observe("page", time.Now())
	return s.walker.BooksOnPage(ctx, page)
}

func (s *Scraper) bookDetail(ctx context.Context, url string) (*models.BookRecord, error) {
	defer s.observe("detail", time.Now())
	return s.walker.BookDetail(ctx, url)
}

func (s *Scraper) observe(phase string, start time.Time) {
	s.Metrics.IncRequest(phase)
	s.Metrics.ObserveDuration(time.Since(start))
}

func advance(tracker *progress.Tracker) {
	if tracker != nil {
		tracker.Increment(1)
	}
}
