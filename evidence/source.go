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

package evidence

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize      = 300
	DefaultMinChunkLength = 50
)

// ExcerptSource loads the excerpts of one page.
type ExcerptSource interface {
	Excerpts(ctx context.Context, loc core.Locator, limit int) ([]core.Excerpt, error)
}

var (
	_ ExcerptSource = (*StoreSource)(nil)
	_ ExcerptSource = (*ChunkSource)(nil)
	_ ExcerptSource = (*FallbackSource)(nil)
)

// StoreSource reads curated excerpts from a corpus store.
type StoreSource struct {
	store storage.CorpusStore
}

// NewStoreSource creates a StoreSource over store.
func NewStoreSource(store storage.CorpusStore) *StoreSource {
	return &StoreSource{store: store}
}

func (s *StoreSource) Excerpts(ctx context.Context, loc core.Locator, limit int) ([]core.Excerpt, error) {
	return s.store.Excerpts(ctx, loc, limit)
}

// ChunkSource synthesizes untitled excerpts by splitting page text into
// chunks. Chunks of MinChunkLength runes or fewer are dropped.
type ChunkSource struct {
	store     storage.CorpusStore
	splitter  textsplitter.TextSplitter
	minLength int
	prefixes  map[core.DocumentID]string
}

// ChunkOption configures a ChunkSource.
type ChunkOption func(*ChunkSource)

// WithChunking sets the target chunk size and the minimum kept length, in runes.
func WithChunking(size, minLength int) ChunkOption {
	return func(c *ChunkSource) {
		if size > 0 {
			c.splitter = newSplitter(size)
		}
		if minLength >= 0 {
			c.minLength = minLength
		}
	}
}

// WithPrefixes sets the excerpt ID prefix of each document.
// Documents without a prefix use "X".
func WithPrefixes(prefixes map[core.DocumentID]string) ChunkOption {
	return func(c *ChunkSource) {
		c.prefixes = prefixes
	}
}

// NewChunkSource creates a ChunkSource reading page text from store.
func NewChunkSource(store storage.CorpusStore, opts ...ChunkOption) *ChunkSource {
	c := &ChunkSource{
		store:     store,
		splitter:  newSplitter(DefaultChunkSize),
		minLength: DefaultMinChunkLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newSplitter(size int) textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
		textsplitter.WithSeparators([]string{"\n\n", "\n", "。", "．", ". ", "、", " ", ""}),
	)
}

// Excerpts returns up to limit chunks of the page text. IDs are numbered by
// the position of each kept chunk.
func (c *ChunkSource) Excerpts(ctx context.Context, loc core.Locator, limit int) ([]core.Excerpt, error) {
	record, err := c.store.Page(ctx, loc)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []core.Excerpt{}, nil
		}
		return nil, err
	}

	chunks, err := c.splitter.SplitText(record.Text)
	if err != nil {
		return nil, err
	}

	prefix := c.prefixes[loc.Doc]
	if prefix == "" {
		prefix = "X"
	}
	out := make([]core.Excerpt, 0, min(limit, len(chunks)))
	for _, chunk := range chunks {
		if len(out) >= limit {
			break
		}
		chunk = strings.TrimSpace(chunk)
		if utf8.RuneCountInString(chunk) <= c.minLength {
			continue
		}
		out = append(out, core.Excerpt{
			ID:    core.ExcerptID(prefix, loc.Page, len(out)+1),
			Doc:   loc.Doc,
			Page:  loc.Page,
			Quote: chunk,
		})
	}
	return out, nil
}

// FallbackSource reads from Primary and switches to Secondary when the
// primary has no source for the document at all.
type FallbackSource struct {
	Primary   ExcerptSource
	Secondary ExcerptSource
}

func (f *FallbackSource) Excerpts(ctx context.Context, loc core.Locator, limit int) ([]core.Excerpt, error) {
	excerpts, err := f.Primary.Excerpts(ctx, loc, limit)
	if err != nil && errors.Is(err, storage.ErrSourceUnavailable) && f.Secondary != nil {
		return f.Secondary.Excerpts(ctx, loc, limit)
	}
	return excerpts, err
}
