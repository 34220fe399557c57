// Package parser extracts book records from catalog HTML. Extraction is
// best-effort: a missing element or label leaves the field at its empty
// default and never produces an error. Only the pagination lookups can fail,
// since without them a run cannot be sized at all.
package parser

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/akozyrev/libsync/models"
)

// The catalog renders the last-page link at this fixed position inside the
// nav-pages block.
const pageAnchorIndex = 5

// Field labels as the site prints them. The pages-count label is misspelled
// on the site itself.
const (
	departmentLabel = "Кафедра:"
	viewsLabel      = "Количество просмотров:"
)

var (
	firstIntPattern   = regexp.MustCompile(`(\d+)`)
	pagesCountPattern = regexp.MustCompile(`Колчество страниц:\s*(\d+)`)
	yearPattern       = regexp.MustCompile(`Год издания:\s*(\d+)`)
	publisherPattern  = regexp.MustCompile(`Издательство:\s*([^\n]+)`)
	cityPattern       = regexp.MustCompile(`Город издания:\s*([^\n]+)`)
	isbnPattern       = regexp.MustCompile(`ISBN:\s*([^\n]+)`)
	viewsPattern      = regexp.MustCompile(`Количество просмотров:\s*(\d+)`)
)

// Document parses raw HTML into a goquery document.
func Document(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// TotalBooks reads the advertised book count from the first paragraph of the
// intro block.
func TotalBooks(doc *goquery.Document) (int, error) {
	intro := doc.Find("div.intro").First()
	if intro.Length() == 0 {
		return 0, errors.New("intro block not found")
	}
	paragraph := intro.Find("p").First()
	if paragraph.Length() == 0 {
		return 0, errors.New("intro paragraph not found")
	}
	match := firstIntPattern.FindStringSubmatch(paragraph.Text())
	if match == nil {
		return 0, errors.New("no book count in intro paragraph")
	}
	count, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("parse book count: %w", err)
	}
	return count, nil
}

// TotalPages reads the last page number from the PAGEN_1 parameter of the
// pagination anchor at pageAnchorIndex.
func TotalPages(doc *goquery.Document) (int, error) {
	nav := doc.Find("div.nav-pages").First()
	if nav.Length() == 0 {
		return 0, errors.New("pagination block not found")
	}
	anchors := nav.Find("a")
	if anchors.Length() <= pageAnchorIndex {
		return 0, fmt.Errorf("pagination has %d anchors, need at least %d", anchors.Length(), pageAnchorIndex+1)
	}
	href, ok := anchors.Eq(pageAnchorIndex).Attr("href")
	if !ok {
		return 0, errors.New("pagination anchor has no href")
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return 0, fmt.Errorf("parse pagination href: %w", err)
	}
	pagen := parsed.Query().Get("PAGEN_1")
	if pagen == "" {
		return 0, errors.New("pagination href has no PAGEN_1 parameter")
	}
	pages, err := strconv.Atoi(pagen)
	if err != nil {
		return 0, fmt.Errorf("parse PAGEN_1 value: %w", err)
	}
	return pages, nil
}

// Summaries extracts one SummaryRecord per book block on a listing page.
// Relative hrefs are made absolute against the site origin. A block without
// a title-link anchor yields a record with an empty URL; rejecting it is the
// caller's decision.
func Summaries(doc *goquery.Document, origin string) []*models.SummaryRecord {
	var records []*models.SummaryRecord

	doc.Find("div.book").Each(func(_ int, block *goquery.Selection) {
		record := &models.SummaryRecord{}

		link := block.Find("h3").First().Find("a").First()
		if link.Length() > 0 {
			href, _ := link.Attr("href")
			record.URL = origin + href
			record.Title = strings.TrimSpace(link.Text())
		}

		if img := block.Find("img").First(); img.Length() > 0 {
			src, _ := img.Attr("src")
			record.Image = origin + src
		}
		if author := block.Find("b").First(); author.Length() > 0 {
			record.Author = strings.TrimSpace(author.Text())
		}
		if desc := block.Find("div.text").First(); desc.Length() > 0 {
			record.Description = strings.TrimSpace(desc.Text())
		}

		records = append(records, record)
	})

	return records
}

// Detail extracts the full field set from a book detail page. A page without
// a bookdetail container still yields a valid record carrying only the URL.
func Detail(doc *goquery.Document, pageURL, origin string) *models.BookRecord {
	record := models.NewBookRecord(pageURL)

	info := doc.Find("div.bookdetail").First()
	if info.Length() == 0 {
		return record
	}

	if img := info.Find("img").First(); img.Length() > 0 {
		src, _ := img.Attr("src")
		record.Image = origin + src
		record.Title, _ = img.Attr("title")
	}

	if author := info.Find("b").First(); author.Length() > 0 {
		record.Author = author.Text()
	}
	if desc := info.Find("div.text").First(); desc.Length() > 0 {
		record.Description = desc.Text()
	}

	department := info.Find("b").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), departmentLabel)
	}).First()
	if department.Length() > 0 {
		record.Department = strings.TrimSpace(strings.ReplaceAll(department.Text(), departmentLabel, ""))
	}

	if props := info.Find("div.props").First(); props.Length() > 0 {
		extractProps(record, props.Text())
	}

	if file := info.Find("a").First(); file.Length() > 0 {
		href, _ := file.Attr("href")
		record.File = origin + href
	}

	return record
}

// extractProps pulls the labeled values out of the props block's
// concatenated text.
func extractProps(record *models.BookRecord, text string) {
	if m := pagesCountPattern.FindStringSubmatch(text); m != nil {
		record.PagesCount = m[1]
	}
	if m := yearPattern.FindStringSubmatch(text); m != nil {
		record.Year = m[1]
	}
	if m := publisherPattern.FindStringSubmatch(text); m != nil {
		record.Publisher = strings.TrimSpace(m[1])
	}
	if m := cityPattern.FindStringSubmatch(text); m != nil {
		record.City = strings.TrimSpace(m[1])
	}
	// The ISBN capture is only trusted when the views label is absent from
	// the block; on some pages the two labels run together and the ISBN line
	// swallows the views line.
	if m := isbnPattern.FindStringSubmatch(text); m != nil {
		if !strings.Contains(text, viewsLabel) {
			record.ISBN = strings.TrimSpace(m[1])
		}
	}
	if m := viewsPattern.FindStringSubmatch(text); m != nil {
		record.Views = m[1]
	}
}
