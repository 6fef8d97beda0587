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

// Package evidex wires the retrieval, evidence and location components into
// one Engine built from a config.Config.
package evidex

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/evidex/config"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/evidence"
	"github.com/poiesic/evidex/ingestion"
	"github.com/poiesic/evidex/locate"
	"github.com/poiesic/evidex/query"
	"github.com/poiesic/evidex/search"
	"github.com/poiesic/evidex/storage"
	"github.com/poiesic/evidex/storage/badger"
	"github.com/poiesic/evidex/storage/jsonl"
)

// Engine answers retrieval, pack and estimate requests over one corpus.
// It is safe for concurrent use until Close.
type Engine struct {
	cfg         *config.Config
	store       storage.CorpusStore
	backend     *badger.Backend
	corpus      *badger.CorpusRepository
	checkpoints *badger.CheckpointRepository
	pool        *ants.Pool
	retriever   *search.Retriever
	assembler   *evidence.Assembler
	estimator   *locate.Estimator
	logger      *slog.Logger

	closeOnce sync.Once
	closed    bool
	mu        sync.RWMutex
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger  *slog.Logger
	backend *badger.Backend
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithBackend serves the badger backend from an already open database
// instead of opening the configured snapshot directory. The engine takes
// ownership of the backend.
func WithBackend(backend *badger.Backend) Option {
	return func(o *engineOptions) {
		o.backend = backend
	}
}

// Open builds an Engine from cfg. A nil cfg means config.Default().
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{cfg: cfg, logger: logger}
	if err := e.openStore(options.backend); err != nil {
		return nil, err
	}
	if err := e.build(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) openStore(backend *badger.Backend) error {
	docs := documents(e.cfg)
	switch e.cfg.Corpus.Backend {
	case config.BackendBadger:
		if backend == nil {
			var err error
			backend, err = badger.OpenBackend(e.cfg.SnapshotDir(), false, badger.WithLogger(e.logger))
			if err != nil {
				return err
			}
		}
		e.backend = backend
		e.corpus = badger.NewCorpusRepository(backend, docs)
		e.checkpoints = badger.NewCheckpointRepository(backend)
		e.store = e.corpus
	default:
		e.store = jsonl.NewStore(Sources(e.cfg), jsonl.WithLogger(e.logger))
	}
	return nil
}

func (e *Engine) build() error {
	var err error
	e.pool, err = ants.NewPool(e.cfg.Workers.PoolSize)
	if err != nil {
		return err
	}

	extractor, err := query.NewExtractor(append(extractorOptions(e.cfg), query.WithLogger(e.logger))...)
	if err != nil {
		return err
	}
	policy, err := NewPolicy(e.cfg)
	if err != nil {
		return err
	}
	e.retriever, err = search.NewRetriever(e.store, extractor, policy,
		search.WithPool(e.pool),
		search.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}

	pack := e.cfg.Pack
	chunks := evidence.NewChunkSource(e.store,
		evidence.WithChunking(pack.ChunkSize, pack.MinChunkLength),
		evidence.WithPrefixes(prefixes(e.cfg)),
	)
	assemblerOpts := []evidence.Option{
		evidence.WithPool(e.pool),
		evidence.WithLogger(e.logger),
		evidence.WithExcerptSource(&evidence.FallbackSource{
			Primary:   evidence.NewStoreSource(e.store),
			Secondary: chunks,
		}),
		evidence.WithLimits(pack.MaxTextLength, pack.MaxExcerpts, pack.MaxQuoteLength),
		evidence.WithTitlePrefixes(pack.TitlePrefixes...),
		evidence.WithImageEndpoint(e.cfg.Corpus.ImageEndpoint),
	}
	if assets, ok := e.store.(storage.AssetResolver); ok {
		assemblerOpts = append(assemblerOpts, evidence.WithAssetResolver(assets))
	}
	e.assembler, err = evidence.NewAssembler(e.store, assemblerOpts...)
	if err != nil {
		return err
	}

	rules, err := estimatorRules(e.cfg)
	if err != nil {
		return err
	}
	e.estimator, err = locate.NewEstimator(documents(e.cfg), rules, locate.WithLogger(e.logger))
	return err
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Retrieve returns up to topK ranked hits for text.
func (e *Engine) Retrieve(ctx context.Context, text string, topK int) (*search.Result, error) {
	return e.RetrieveWithMonitor(ctx, text, topK, nil)
}

// RetrieveWithMonitor is Retrieve with stage callbacks delivered to monitor.
func (e *Engine) RetrieveWithMonitor(ctx context.Context, text string, topK int, monitor search.Monitor) (*search.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.retriever.RetrieveWithMonitor(ctx, text, topK, monitor)
}

// BuildPack assembles the evidence pack of one page. It returns nil, nil
// when the page has neither excerpts nor text.
func (e *Engine) BuildPack(ctx context.Context, doc core.DocumentID, page int, isEstimated bool, explanation string) (*core.Pack, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.assembler.BuildPack(ctx, doc, page, isEstimated, explanation)
}

// Estimate guesses the page text refers to.
func (e *Engine) Estimate(text string) *core.Estimate {
	return e.estimator.Estimate(text)
}

// PackFor estimates the page text refers to and builds its pack, marked as
// estimated. The estimate is returned even when the page yields no pack.
func (e *Engine) PackFor(ctx context.Context, text string) (*core.Pack, *core.Estimate, error) {
	estimate := e.Estimate(text)
	if estimate == nil {
		return nil, nil, nil
	}
	pack, err := e.BuildPack(ctx, estimate.Doc, estimate.Page, true, estimate.Explanation)
	return pack, estimate, err
}

// NewImporter creates an importer that loads the configured JSONL sources
// into the engine's snapshot. The engine must use the badger backend.
func (e *Engine) NewImporter(opts ...ingestion.Option) (*ingestion.Importer, error) {
	if e.corpus == nil {
		return nil, ErrSnapshotRequired
	}
	opts = append([]ingestion.Option{
		ingestion.WithPoolSize(e.cfg.Workers.PoolSize),
		ingestion.WithLogger(e.logger),
	}, opts...)
	return ingestion.NewImporter(e.corpus, e.checkpoints, Sources(e.cfg), opts...)
}

// Close releases worker pools and closes the store.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.closed = true

		if e.retriever != nil {
			e.retriever.Release()
		}
		if e.assembler != nil {
			e.assembler.Release()
		}
		if e.pool != nil {
			e.pool.Release()
		}
		if e.store != nil {
			if closeErr := e.store.Close(); closeErr != nil {
				e.logger.Error("error closing corpus store", "err", closeErr)
				err = errors.Join(err, closeErr)
			}
		}
		if e.backend != nil {
			if closeErr := e.backend.Close(); closeErr != nil {
				e.logger.Error("error closing backend storage", "err", closeErr)
				err = errors.Join(err, closeErr)
			}
		}
	})
	return err
}
