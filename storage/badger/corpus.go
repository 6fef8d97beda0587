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

package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
)

// CorpusRepository implements storage.CorpusStore over an imported snapshot.
//
// Pages are stored once per (document, page); excerpts are keyed by page and
// then by their position in the source file, so a scan yields excerpts in
// page order and source order within each page.
type CorpusRepository struct {
	backend *Backend
	docs    []core.DocumentID
}

var (
	_ storage.CorpusStore   = (*CorpusRepository)(nil)
	_ storage.AssetResolver = (*CorpusRepository)(nil)
)

// NewCorpusRepository creates a CorpusRepository serving docs in the given order.
func NewCorpusRepository(backend *Backend, docs []core.DocumentID) *CorpusRepository {
	return &CorpusRepository{
		backend: backend,
		docs:    slices.Clone(docs),
	}
}

// Documents returns the configured documents in configuration order.
func (r *CorpusRepository) Documents() []core.DocumentID {
	return slices.Clone(r.docs)
}

// Close is a no-op; the backend is owned by the caller.
func (r *CorpusRepository) Close() error {
	return nil
}

func (r *CorpusRepository) checkDoc(doc core.DocumentID) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if !slices.Contains(r.docs, doc) {
		return storage.ErrUnknownDocument
	}
	return nil
}

// ReplacePages replaces every stored page of doc with pages.
// The first record with text wins for each page; a textless record is
// kept only when no later record for that page has text.
func (r *CorpusRepository) ReplacePages(ctx context.Context, doc core.DocumentID, pages []*core.PageRecord) (int, error) {
	if err := r.checkDoc(doc); err != nil {
		return 0, err
	}
	chosen := make(map[int]*core.PageRecord, len(pages))
	order := make([]int, 0, len(pages))
	for _, page := range pages {
		if page.Doc != doc {
			return 0, core.ErrDocumentMismatch
		}
		current, ok := chosen[page.Page]
		if !ok {
			order = append(order, page.Page)
		}
		if !ok || (current.Text == "" && page.Text != "") {
			chosen[page.Page] = page
		}
	}
	if err := r.backend.DropPrefix(makeDocPrefix(pageRecordPrefix, doc)); err != nil {
		return 0, err
	}

	written := 0
	err := r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, n := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makePageKey(doc, n), storage.MarshalPageRecord(chosen[n])); err != nil {
				return err
			}
			written++
		}
		return wb.Set(makeSourceKey(sourceKindPages, doc), []byte{1})
	})
	return written, err
}

// ReplaceExcerpts replaces every stored excerpt of doc with excerpts.
// Excerpt IDs are stored as given.
func (r *CorpusRepository) ReplaceExcerpts(ctx context.Context, doc core.DocumentID, excerpts []*core.Excerpt) (int, error) {
	if err := r.checkDoc(doc); err != nil {
		return 0, err
	}
	if err := r.backend.DropPrefix(makeDocPrefix(excerptRecordPrefix, doc)); err != nil {
		return 0, err
	}

	err := r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for seq, excerpt := range excerpts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if excerpt.Doc != doc {
				return core.ErrDocumentMismatch
			}
			key := makeExcerptKey(doc, excerpt.Page, seq)
			if err := wb.Set(key, storage.MarshalExcerpt(excerpt)); err != nil {
				return err
			}
		}
		return wb.Set(makeSourceKey(sourceKindExcerpts, doc), []byte{1})
	})
	if err != nil {
		return 0, err
	}
	return len(excerpts), nil
}

// hasSource reports whether a source of the given kind was imported for doc.
func (r *CorpusRepository) hasSource(tx *badger.Txn, kind string, doc core.DocumentID) (bool, error) {
	_, err := tx.Get(makeSourceKey(kind, doc))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// scan iterates every value under prefix, stopping early on storage.ErrStopScan.
func (r *CorpusRepository) scan(ctx context.Context, kind string, doc core.DocumentID, prefix []byte, fn func(val []byte) error) error {
	if err := r.checkDoc(doc); err != nil {
		return err
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ok, err := r.hasSource(tx, kind, doc)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrSourceUnavailable
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := iter.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	}, false)
	if errors.Is(err, storage.ErrStopScan) {
		return nil
	}
	return err
}

// ScanExcerpts streams every stored excerpt of doc.
func (r *CorpusRepository) ScanExcerpts(ctx context.Context, doc core.DocumentID, fn func(*core.Excerpt) error) error {
	return r.scan(ctx, sourceKindExcerpts, doc, makeDocPrefix(excerptRecordPrefix, doc), func(val []byte) error {
		excerpt, err := storage.UnmarshalExcerpt(val)
		if err != nil {
			return err
		}
		return fn(excerpt)
	})
}

// ScanPages streams every stored page of doc in page order.
func (r *CorpusRepository) ScanPages(ctx context.Context, doc core.DocumentID, fn func(*core.PageRecord) error) error {
	return r.scan(ctx, sourceKindPages, doc, makeDocPrefix(pageRecordPrefix, doc), func(val []byte) error {
		page, err := storage.UnmarshalPageRecord(val)
		if err != nil {
			return err
		}
		return fn(page)
	})
}

// Excerpts returns up to limit stored excerpts for the exact locator.
func (r *CorpusRepository) Excerpts(ctx context.Context, loc core.Locator, limit int) ([]core.Excerpt, error) {
	out := make([]core.Excerpt, 0)
	if limit <= 0 {
		return out, nil
	}
	prefix := makePartialExcerptKey(loc.Doc, loc.Page)
	err := r.scan(ctx, sourceKindExcerpts, loc.Doc, prefix, func(val []byte) error {
		excerpt, err := storage.UnmarshalExcerpt(val)
		if err != nil {
			return err
		}
		out = append(out, *excerpt)
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

// Page returns the stored page record for the exact locator.
func (r *CorpusRepository) Page(ctx context.Context, loc core.Locator) (*core.PageRecord, error) {
	if err := r.checkDoc(loc.Doc); err != nil {
		return nil, err
	}
	var record *core.PageRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ok, err := r.hasSource(tx, sourceKindPages, loc.Doc)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrSourceUnavailable
		}
		item, err := tx.Get(makePageKey(loc.Doc, loc.Page))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalPageRecord(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ImagePath returns the image path stored with the page record.
func (r *CorpusRepository) ImagePath(ctx context.Context, loc core.Locator) (string, error) {
	page, err := r.Page(ctx, loc)
	if err != nil {
		if errors.Is(err, storage.ErrSourceUnavailable) || errors.Is(err, storage.ErrUnknownDocument) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	if page.ImagePath == "" {
		return "", storage.ErrNotFound
	}
	return page.ImagePath, nil
}
