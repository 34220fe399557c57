// Package pipeline guards writes into the store and produces the JSON dump
// artifact.
package pipeline

import (
	"context"
	"strings"

	"github.com/akozyrev/libsync/models"
	"github.com/akozyrev/libsync/store"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Skip reasons reported by InsertIfNew.
const (
	ReasonMissingKeys    = "missing key fields"
	ReasonDuplicateURL   = "duplicate url"
	ReasonDuplicateTitle = "duplicate title"
	ReasonDuplicateNorm  = "duplicate normalized title"
)

// Status classifies the outcome of an InsertIfNew call.
type Status int

const (
	StatusInserted Status = iota
	StatusSkipped
	StatusFailed
)

// InsertResult carries the outcome of one dedup-insert attempt. Reason is
// set for skips, Err for failures.
type InsertResult struct {
	Status Status
	Reason string
	Err    error
}

const dedupCacheSize = 4096

// Sink checks each record against the store's dedup keys before inserting.
// Keys already seen this run are remembered in an LRU cache so re-occurring
// urls and titles skip the store round-trip.
type Sink struct {
	backend store.Backend
	known   *lru.Cache[string, struct{}]
}

// NewSink wraps a store backend.
func NewSink(backend store.Backend) (*Sink, error) {
	known, err := lru.New[string, struct{}](dedupCacheSize)
	if err != nil {
		return nil, err
	}
	return &Sink{backend: backend, known: known}, nil
}

// InsertIfNew applies the dedup decision order: missing keys, exact url,
// exact title, normalized title, then insert. A store-level failure during
// any step yields StatusFailed and never aborts the caller's run.
func (s *Sink) InsertIfNew(ctx context.Context, record *models.BookRecord) InsertResult {
	url := strings.TrimSpace(record.URL)
	title := strings.TrimSpace(record.Title)

	if url == "" && title == "" {
		return InsertResult{Status: StatusSkipped, Reason: ReasonMissingKeys}
	}

	if url != "" {
		known, err := s.has(ctx, "url:"+url, func() (bool, error) {
			return s.backend.HasURL(ctx, url)
		})
		if err != nil {
			return InsertResult{Status: StatusFailed, Err: err}
		}
		if known {
			return InsertResult{Status: StatusSkipped, Reason: ReasonDuplicateURL}
		}
	}

	if title != "" {
		known, err := s.has(ctx, "title:"+title, func() (bool, error) {
			return s.backend.HasTitle(ctx, title)
		})
		if err != nil {
			return InsertResult{Status: StatusFailed, Err: err}
		}
		if known {
			return InsertResult{Status: StatusSkipped, Reason: ReasonDuplicateTitle}
		}

		norm := models.NormalizeTitle(title)
		known, err = s.has(ctx, "norm:"+norm, func() (bool, error) {
			return s.backend.HasNormalizedTitle(ctx, norm)
		})
		if err != nil {
			return InsertResult{Status: StatusFailed, Err: err}
		}
		if known {
			return InsertResult{Status: StatusSkipped, Reason: ReasonDuplicateNorm}
		}
	}

	if err := s.backend.InsertBook(ctx, record); err != nil {
		return InsertResult{Status: StatusFailed, Err: err}
	}

	s.remember(url, title)
	return InsertResult{Status: StatusInserted}
}

func (s *Sink) has(ctx context.Context, key string, lookup func() (bool, error)) (bool, error) {
	if _, ok := s.known.Get(key); ok {
		return true, nil
	}
	exists, err := lookup()
	if err != nil {
		return false, err
	}
	if exists {
		s.known.Add(key, struct{}{})
	}
	return exists, nil
}

func (s *Sink) remember(url, title string) {
	if url != "" {
		s.known.Add("url:"+url, struct{}{})
	}
	if title != "" {
		s.known.Add("title:"+title, struct{}{})
		s.known.Add("norm:"+models.NormalizeTitle(title), struct{}{})
	}
}
