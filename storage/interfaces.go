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

package storage

import (
	"context"

	"github.com/poiesic/evidex/core"
)

// Source describes where the records of one document are stored.
type Source struct {
	Doc core.DocumentID
	// Prefix is the excerpt ID prefix of the document, e.g. "KHS".
	Prefix string
	// TextPath locates the page-text records.
	TextPath string
	// ExcerptPath locates the curated-excerpt records.
	ExcerptPath string
}

// CorpusStore provides read access to page-text and curated-excerpt records.
// Implementations must be thread-safe and support concurrent access.
type CorpusStore interface {
	// Documents returns the configured documents in configuration order.
	Documents() []core.DocumentID

	// ScanExcerpts streams every valid curated excerpt of doc in storage order.
	// Excerpt IDs are already normalized to the document prefix.
	// Returns ErrSourceUnavailable if doc has no curated source.
	ScanExcerpts(ctx context.Context, doc core.DocumentID, fn func(*core.Excerpt) error) error

	// ScanPages streams every valid page-text record of doc in storage order.
	// Returns ErrSourceUnavailable if doc has no page-text source.
	ScanPages(ctx context.Context, doc core.DocumentID, fn func(*core.PageRecord) error) error

	// Excerpts returns up to limit curated excerpts for the exact locator.
	// Returns ErrSourceUnavailable if the document has no curated source.
	Excerpts(ctx context.Context, loc core.Locator, limit int) ([]core.Excerpt, error)

	// Page returns the page-text record for the exact locator.
	// Returns ErrNotFound if the page has no record and ErrSourceUnavailable
	// if the document has no page-text source.
	Page(ctx context.Context, loc core.Locator) (*core.PageRecord, error)

	// Close releases resources held by the store.
	Close() error
}

// AssetResolver looks up rendered page assets.
type AssetResolver interface {
	// ImagePath returns the stored image path of a page.
	// Returns ErrNotFound if the page has no image.
	ImagePath(ctx context.Context, loc core.Locator) (string, error)
}

// CheckpointRepository persists snapshot import state.
type CheckpointRepository interface {
	// SaveCheckpoint stores the checkpoint under its name.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the named checkpoint.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// Checkpoints lists the checkpoints whose names start with prefix,
	// ordered by name.
	Checkpoints(ctx context.Context, prefix string) ([]*core.Checkpoint, error)
}
