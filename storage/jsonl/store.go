// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package jsonl implements storage.CorpusStore over line-delimited JSON files.
//
// Every query streams the relevant file line by line, so peak memory is
// bounded by the longest record rather than the corpus size. Files that do
// not exist are reported as storage.ErrSourceUnavailable.
package jsonl

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
)

// Store reads corpus records directly from JSONL files.
type Store struct {
	sources map[core.DocumentID]storage.Source
	order   []core.DocumentID
	logger  *slog.Logger
}

var (
	_ storage.CorpusStore   = (*Store)(nil)
	_ storage.AssetResolver = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore creates a store over the given sources.
// Sources keep their order; later duplicates of a document are ignored.
func NewStore(sources []storage.Source, opts ...Option) *Store {
	s := &Store{
		sources: make(map[core.DocumentID]storage.Source, len(sources)),
		order:   make([]core.DocumentID, 0, len(sources)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, src := range sources {
		if _, dup := s.sources[src.Doc]; dup {
			s.logger.Warn("ignoring duplicate corpus source", "doc", src.Doc)
			continue
		}
		s.sources[src.Doc] = src
		s.order = append(s.order, src.Doc)
	}
	return s
}

// Documents returns the configured documents in configuration order.
func (s *Store) Documents() []core.DocumentID {
	out := make([]core.DocumentID, len(s.order))
	copy(out, s.order)
	return out
}

// Close releases resources. Store holds no open files between calls.
func (s *Store) Close() error {
	return nil
}

func (s *Store) source(doc core.DocumentID) (storage.Source, error) {
	src, ok := s.sources[doc]
	if !ok {
		return storage.Source{}, storage.ErrUnknownDocument
	}
	return src, nil
}

// ScanExcerpts streams every valid curated excerpt of doc.
func (s *Store) ScanExcerpts(ctx context.Context, doc core.DocumentID, fn func(*core.Excerpt) error) error {
	src, err := s.source(doc)
	if err != nil {
		return err
	}
	skipped, err := ScanExcerptFile(ctx, src.ExcerptPath, doc, src.Prefix, fn)
	if skipped > 0 {
		s.logger.Debug("skipped malformed excerpt records", "doc", doc, "path", src.ExcerptPath, "count", skipped)
	}
	return err
}

// ScanPages streams every valid page-text record of doc.
func (s *Store) ScanPages(ctx context.Context, doc core.DocumentID, fn func(*core.PageRecord) error) error {
	src, err := s.source(doc)
	if err != nil {
		return err
	}
	skipped, err := ScanPageFile(ctx, src.TextPath, doc, fn)
	if skipped > 0 {
		s.logger.Debug("skipped malformed page records", "doc", doc, "path", src.TextPath, "count", skipped)
	}
	return err
}

// Excerpts returns up to limit curated excerpts for the exact locator.
func (s *Store) Excerpts(ctx context.Context, loc core.Locator, limit int) ([]core.Excerpt, error) {
	out := make([]core.Excerpt, 0)
	if limit <= 0 {
		return out, nil
	}
	err := s.ScanExcerpts(ctx, loc.Doc, func(e *core.Excerpt) error {
		if e.Page != loc.Page {
			return nil
		}
		out = append(out, *e)
		if len(out) >= limit {
			return storage.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Page returns the first page-text record with text for the exact locator,
// or the first textless one when no record has text.
func (s *Store) Page(ctx context.Context, loc core.Locator) (*core.PageRecord, error) {
	var found *core.PageRecord
	err := s.ScanPages(ctx, loc.Doc, func(p *core.PageRecord) error {
		if p.Page != loc.Page {
			return nil
		}
		if found == nil || found.Text == "" {
			found = p
		}
		if found.Text != "" {
			return storage.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

// ImagePath returns the image path stored with the page-text record.
func (s *Store) ImagePath(ctx context.Context, loc core.Locator) (string, error) {
	page, err := s.Page(ctx, loc)
	if err != nil {
		if errors.Is(err, storage.ErrSourceUnavailable) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	if page.ImagePath == "" {
		return "", storage.ErrNotFound
	}
	return page.ImagePath, nil
}
