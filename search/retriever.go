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

package search

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/query"
	"github.com/poiesic/evidex/ranking"
	"github.com/poiesic/evidex/storage"
)

const (
	sourceExcerpts = "excerpts"
	sourcePages    = "pages"
)

// Result is the ranked outcome of one retrieval.
type Result struct {
	Hits       []core.Hit `json:"hits"`
	Confidence float64    `json:"confidence"`
}

// Retriever ranks pages across every document of a corpus store.
type Retriever struct {
	store         storage.CorpusStore
	extractor     *query.Extractor
	excerptScorer ranking.Scorer
	pageScorer    ranking.Scorer
	pool          *ants.Pool
	ownsPool      bool
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithPoolSize sets the worker pool size for the curated pass.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Retriever) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.releasePool()
		r.pool = pool
		r.ownsPool = true
		return nil
	}
}

// WithPool shares an existing worker pool. The caller keeps ownership.
func WithPool(pool *ants.Pool) Option {
	return func(r *Retriever) error {
		if pool == nil {
			return nil
		}
		r.releasePool()
		r.pool = pool
		r.ownsPool = false
		return nil
	}
}

// WithExcerptScorer replaces the curated-excerpt scorer.
func WithExcerptScorer(scorer ranking.Scorer) Option {
	return func(r *Retriever) error {
		if scorer != nil {
			r.excerptScorer = scorer
		}
		return nil
	}
}

// WithPageScorer replaces the raw page-text scorer.
func WithPageScorer(scorer ranking.Scorer) Option {
	return func(r *Retriever) error {
		if scorer != nil {
			r.pageScorer = scorer
		}
		return nil
	}
}

// NewRetriever creates a Retriever scoring with policy.
func NewRetriever(
	store storage.CorpusStore,
	extractor *query.Extractor,
	policy *ranking.Policy,
	opts ...Option,
) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	excerptScorer, err := ranking.NewExcerptScorer(policy)
	if err != nil {
		return nil, err
	}
	pageScorer, err := ranking.NewPageScorer(policy)
	if err != nil {
		return nil, err
	}

	r := &Retriever{
		store:         store,
		extractor:     extractor,
		excerptScorer: excerptScorer,
		pageScorer:    pageScorer,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	if r.pool == nil {
		if err := WithPoolSize(runtime.NumCPU() / 2)(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Release releases the worker pool if the Retriever owns it.
// The Retriever should not be used after calling Release.
func (r *Retriever) Release() {
	r.releasePool()
}

func (r *Retriever) releasePool() {
	if r.pool != nil && r.ownsPool {
		r.pool.Release()
	}
	r.pool = nil
}

// Retrieve returns up to topK hits for text and a confidence in [0, 1].
func (r *Retriever) Retrieve(ctx context.Context, text string, topK int) (*Result, error) {
	return r.RetrieveWithMonitor(ctx, text, topK, nil)
}

// RetrieveWithMonitor is Retrieve with stage callbacks delivered to monitor.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, text string, topK int, monitor Monitor) (*Result, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	q := r.extractor.Extract(text)
	monitor.Start(q, topK)

	// 1. Curated pass
	set, err := r.curatedPass(ctx, q, monitor)
	if err != nil {
		return nil, err
	}
	monitor.AfterCuratedPass(set.sorted())

	// 2. Fallback pass
	if set.size() < topK {
		if err := r.fallbackPass(ctx, q, topK, set, monitor); err != nil {
			return nil, err
		}
	}

	// 3. Rank and truncate
	hits := set.sorted()
	if len(hits) > topK {
		hits = hits[:topK]
	}

	result := &Result{
		Hits:       hits,
		Confidence: confidence(hits),
	}
	monitor.Finish(result)
	return result, nil
}

// curatedPass scores every document's excerpts concurrently and merges the
// per-document results in document order.
func (r *Retriever) curatedPass(ctx context.Context, q query.Query, monitor Monitor) (*hitSet, error) {
	docs := r.store.Documents()
	partials := make([]*hitSet, len(docs))
	failures := make([]error, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			partials[i], failures[i] = r.scoreExcerpts(ctx, q, doc)
		}
		if err := r.pool.Submit(task); err != nil {
			r.logger.Warn("worker pool rejected task, scanning inline", "doc", doc, "err", err)
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := newHitSet()
	for i, doc := range docs {
		if failures[i] != nil {
			monitor.SourceDegraded(doc, sourceExcerpts, failures[i])
		}
		if partials[i] == nil {
			continue
		}
		for _, hit := range partials[i].hits {
			set.merge(hit)
		}
	}
	return set, nil
}

// scoreExcerpts scans the curated excerpts of one document. A source
// failure is returned alongside whatever was scored before it.
func (r *Retriever) scoreExcerpts(ctx context.Context, q query.Query, doc core.DocumentID) (*hitSet, error) {
	set := newHitSet()
	err := r.store.ScanExcerpts(ctx, doc, func(e *core.Excerpt) error {
		loc := e.Locator()
		if loc.Doc != doc || !loc.Valid() {
			return nil
		}
		score, snippets := r.excerptScorer.Score(q, ranking.Candidate{
			Locator: loc,
			Title:   e.Title,
			Text:    e.Quote,
		})
		if score <= 0 {
			return nil
		}
		set.merge(core.Hit{Locator: loc, Score: score, Snippets: snippets})
		return nil
	})
	if err != nil {
		r.logDegraded(ctx, doc, sourceExcerpts, err)
	}
	return set, err
}

// fallbackPass scans page text sequentially in document order and stops as
// soon as the set holds topK hits.
func (r *Retriever) fallbackPass(ctx context.Context, q query.Query, topK int, set *hitSet, monitor Monitor) error {
	for _, doc := range r.store.Documents() {
		if set.size() >= topK {
			return nil
		}
		err := r.store.ScanPages(ctx, doc, func(p *core.PageRecord) error {
			loc := p.Locator()
			if loc.Doc != doc || !loc.Valid() || set.has(loc) {
				return nil
			}
			score, snippets := r.pageScorer.Score(q, ranking.Candidate{Locator: loc, Text: p.Text})
			if score <= 0 {
				return nil
			}
			hit := core.Hit{Locator: loc, Score: score, Snippets: snippets}
			if set.insert(hit) {
				monitor.FallbackHit(hit)
			}
			if set.size() >= topK {
				return storage.ErrStopScan
			}
			return nil
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			r.logDegraded(ctx, doc, sourcePages, err)
			monitor.SourceDegraded(doc, sourcePages, err)
		}
	}
	return nil
}

func (r *Retriever) logDegraded(ctx context.Context, doc core.DocumentID, kind string, err error) {
	switch {
	case ctx.Err() != nil:
	case errors.Is(err, storage.ErrSourceUnavailable):
		r.logger.Debug("source unavailable", "doc", doc, "kind", kind)
	default:
		r.logger.Warn("source read failed", "doc", doc, "kind", kind, "err", err)
	}
}

// confidence is top1 / (top1 + top2 + 1), or 0 without a positive top hit.
func confidence(hits []core.Hit) float64 {
	if len(hits) == 0 || hits[0].Score <= 0 {
		return 0
	}
	top1 := hits[0].Score
	top2 := 0.0
	if len(hits) > 1 {
		top2 = max(hits[1].Score, 0)
	}
	return top1 / (top1 + top2 + 1)
}
