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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
)

const (
	DefaultMaxTextLength  = 2000
	DefaultMaxQuoteLength = 500
	DefaultImageEndpoint  = "/api/corpus/page-image"

	summaryTitles        = 3
	summaryTextRunes     = 100
	noInformationSummary = "No information available for this page."
)

// Assembler builds evidence packs.
type Assembler struct {
	store          storage.CorpusStore
	excerpts       ExcerptSource
	assets         storage.AssetResolver
	pool           *ants.Pool
	ownsPool       bool
	maxTextLength  int
	maxExcerpts    int
	maxQuoteLength int
	titlePrefixes  []string
	imageEndpoint  string
	logger         *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithPoolSize sets the worker pool size for pack loads.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(a *Assembler) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		a.releasePool()
		a.pool = pool
		a.ownsPool = true
		return nil
	}
}

// WithPool shares an existing worker pool. The caller keeps ownership.
func WithPool(pool *ants.Pool) Option {
	return func(a *Assembler) error {
		if pool == nil {
			return nil
		}
		a.releasePool()
		a.pool = pool
		a.ownsPool = false
		return nil
	}
}

// WithExcerptSource replaces the excerpt source chain.
func WithExcerptSource(source ExcerptSource) Option {
	return func(a *Assembler) error {
		if source != nil {
			a.excerpts = source
		}
		return nil
	}
}

// WithAssetResolver enables image URLs. Without a resolver packs carry none.
func WithAssetResolver(assets storage.AssetResolver) Option {
	return func(a *Assembler) error {
		a.assets = assets
		return nil
	}
}

// WithLimits sets the page text, excerpt count and quote bounds, in runes.
// The excerpt count is capped at core.MaxPackExcerpts.
func WithLimits(maxTextLength, maxExcerpts, maxQuoteLength int) Option {
	return func(a *Assembler) error {
		if maxTextLength <= 0 || maxExcerpts <= 0 || maxQuoteLength <= 0 {
			return ErrInvalidLimit
		}
		a.maxTextLength = maxTextLength
		a.maxExcerpts = min(maxExcerpts, core.MaxPackExcerpts)
		a.maxQuoteLength = maxQuoteLength
		return nil
	}
}

// WithTitlePrefixes sets the prefixes stripped from titles in summaries.
func WithTitlePrefixes(prefixes ...string) Option {
	return func(a *Assembler) error {
		a.titlePrefixes = prefixes
		return nil
	}
}

// WithImageEndpoint sets the endpoint serving absolute image paths.
func WithImageEndpoint(endpoint string) Option {
	return func(a *Assembler) error {
		if endpoint != "" {
			a.imageEndpoint = endpoint
		}
		return nil
	}
}

// NewAssembler creates an Assembler over store. Unless replaced, excerpts
// come from the store and fall back to chunks of the page text.
func NewAssembler(store storage.CorpusStore, opts ...Option) (*Assembler, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	a := &Assembler{
		store: store,
		excerpts: &FallbackSource{
			Primary:   NewStoreSource(store),
			Secondary: NewChunkSource(store),
		},
		maxTextLength:  DefaultMaxTextLength,
		maxExcerpts:    core.MaxPackExcerpts,
		maxQuoteLength: DefaultMaxQuoteLength,
		titlePrefixes:  []string{"核心語:", "核心語："},
		imageEndpoint:  DefaultImageEndpoint,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			a.Release()
			return nil, err
		}
	}
	if a.pool == nil {
		if err := WithPoolSize(runtime.NumCPU() / 2)(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Release releases the worker pool if the Assembler owns it.
func (a *Assembler) Release() {
	a.releasePool()
}

func (a *Assembler) releasePool() {
	if a.pool != nil && a.ownsPool {
		a.pool.Release()
	}
	a.pool = nil
}

// BuildPack assembles the evidence pack of one page. It returns nil, nil
// when the page has neither excerpts nor text.
func (a *Assembler) BuildPack(ctx context.Context, doc core.DocumentID, page int, isEstimated bool, explanation string) (*core.Pack, error) {
	loc := core.Locator{Doc: doc, Page: page}
	if err := core.ValidateLocator(loc); err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		laws     []core.Excerpt
		pageText string
	)
	wg.Add(2)
	a.run(func() {
		defer wg.Done()
		laws = a.loadExcerpts(ctx, loc)
	})
	a.run(func() {
		defer wg.Done()
		pageText = a.loadText(ctx, loc)
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(laws) == 0 && pageText == "" {
		return nil, nil
	}

	sum := sha256.Sum256([]byte(pageText))
	return &core.Pack{
		Locator:             loc,
		Laws:                laws,
		PageText:            pageText,
		Summary:             summarize(pageText, laws, a.titlePrefixes),
		ImageURL:            a.imageURL(ctx, loc),
		SHA256:              hex.EncodeToString(sum[:]),
		IsEstimated:         isEstimated,
		EstimateExplanation: explanation,
	}, nil
}

func (a *Assembler) run(task func()) {
	if err := a.pool.Submit(task); err != nil {
		a.logger.Warn("worker pool rejected task, loading inline", "err", err)
		task()
	}
}

func (a *Assembler) loadExcerpts(ctx context.Context, loc core.Locator) []core.Excerpt {
	excerpts, err := a.excerpts.Excerpts(ctx, loc, a.maxExcerpts)
	if err != nil {
		a.logLoadFailure(ctx, loc, "excerpts", err)
		return []core.Excerpt{}
	}
	if len(excerpts) > a.maxExcerpts {
		excerpts = excerpts[:a.maxExcerpts]
	}
	out := make([]core.Excerpt, len(excerpts))
	for i, e := range excerpts {
		e.Quote = truncateRunes(e.Quote, a.maxQuoteLength)
		out[i] = e
	}
	return out
}

func (a *Assembler) loadText(ctx context.Context, loc core.Locator) string {
	record, err := a.store.Page(ctx, loc)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logLoadFailure(ctx, loc, "page text", err)
		}
		return ""
	}
	return truncateRunes(record.Text, a.maxTextLength)
}

func (a *Assembler) logLoadFailure(ctx context.Context, loc core.Locator, what string, err error) {
	switch {
	case ctx.Err() != nil:
	case errors.Is(err, storage.ErrSourceUnavailable):
		a.logger.Debug("source unavailable", "locator", loc.String(), "load", what)
	default:
		a.logger.Warn("pack load failed", "locator", loc.String(), "load", what, "err", err)
	}
}

// imageURL resolves the page image. Absolute paths are served through the
// image endpoint; relative paths are returned as stored.
func (a *Assembler) imageURL(ctx context.Context, loc core.Locator) string {
	if a.assets == nil {
		return ""
	}
	path, err := a.assets.ImagePath(ctx, loc)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn("failed to resolve page image", "locator", loc.String(), "err", err)
		}
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		return path
	}
	return a.imageEndpoint +
		"?doc=" + strings.ReplaceAll(url.QueryEscape(string(loc.Doc)), "+", "%20") +
		"&pdfPage=" + strconv.Itoa(loc.Page)
}

// summarize names the first titled excerpts, or else quotes the start of the text.
func summarize(pageText string, laws []core.Excerpt, prefixes []string) string {
	titles := make([]string, 0, summaryTitles)
	for _, law := range laws {
		if len(titles) == summaryTitles {
			break
		}
		if title := stripTitlePrefix(law.Title, prefixes); title != "" {
			titles = append(titles, title)
		}
	}
	switch {
	case len(titles) > 0:
		return "Covers " + strings.Join(titles, ", ") + "."
	case pageText != "":
		return truncateRunes(pageText, summaryTextRunes) + "..."
	default:
		return noInformationSummary
	}
}

func stripTitlePrefix(title string, prefixes []string) string {
	title = strings.TrimSpace(title)
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(title, prefix) {
			return strings.TrimSpace(title[len(prefix):])
		}
	}
	return title
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
