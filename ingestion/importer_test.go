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

package ingestion

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
	"github.com/poiesic/evidex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

type fixture struct {
	dir         string
	corpus      *badger.CorpusRepository
	checkpoints *badger.CheckpointRepository
	sources     []storage.Source
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "a_text.jsonl"),
		`{"doc":"DocA","pdfPage":1,"text":"fire and water"}`,
		`{"doc":"DocA","pdfPage":2,"text":"breath"}`,
		`garbage`,
	)
	writeLines(t, filepath.Join(dir, "a_laws.jsonl"),
		`{"doc":"DocA","pdfPage":1,"title":"Fire","quote":"fire balance"}`,
		`{"doc":"DocA","pdfPage":1,"title":"Water","quote":"water balance"}`,
	)
	writeLines(t, filepath.Join(dir, "b_text.jsonl"),
		`{"doc":"DocB","pdfPage":7,"text":"seven"}`,
	)

	corpus, checkpoints, backend, err := badger.NewMemoryRepositories("DocA", "DocB")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return &fixture{
		dir:         dir,
		corpus:      corpus,
		checkpoints: checkpoints,
		sources: []storage.Source{
			{
				Doc:         "DocA",
				Prefix:      "A",
				TextPath:    filepath.Join(dir, "a_text.jsonl"),
				ExcerptPath: filepath.Join(dir, "a_laws.jsonl"),
			},
			{
				Doc:         "DocB",
				Prefix:      "B",
				TextPath:    filepath.Join(dir, "b_text.jsonl"),
				ExcerptPath: filepath.Join(dir, "b_laws.jsonl"),
			},
		},
	}
}

func (f *fixture) importer(t *testing.T, opts ...Option) *Importer {
	t.Helper()
	im, err := NewImporter(f.corpus, f.checkpoints, f.sources, opts...)
	require.NoError(t, err)
	t.Cleanup(im.Release)
	return im
}

func TestNewImporter(t *testing.T) {
	f := newFixture(t)

	t.Run("requires writer", func(t *testing.T) {
		_, err := NewImporter(nil, f.checkpoints, f.sources)
		require.ErrorIs(t, err, ErrWriterRequired)
	})

	t.Run("requires checkpoints", func(t *testing.T) {
		_, err := NewImporter(f.corpus, nil, f.sources)
		require.ErrorIs(t, err, ErrCheckpointRepositoryRequired)
	})

	t.Run("requires sources", func(t *testing.T) {
		_, err := NewImporter(f.corpus, f.checkpoints, nil)
		require.ErrorIs(t, err, ErrNoSources)
	})
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("imports every source", func(t *testing.T) {
		f := newFixture(t)
		var progress bytes.Buffer
		im := f.importer(t, WithPoolSize(2), WithProgress(&progress))

		report, err := im.Import(ctx)
		require.NoError(t, err)
		require.Len(t, report.Sources, 4)

		pagesA := report.Sources[0]
		assert.Equal(t, core.DocumentID("DocA"), pagesA.Doc)
		assert.Equal(t, KindPages, pagesA.Kind)
		assert.Equal(t, 2, pagesA.Records)
		assert.Equal(t, 1, pagesA.Skipped)

		assert.Equal(t, KindExcerpts, report.Sources[1].Kind)
		assert.Equal(t, 2, report.Sources[1].Records)
		assert.Equal(t, 1, report.Sources[2].Records)
		assert.True(t, report.Sources[3].Missing)
		assert.Equal(t, 5, report.Imported())

		page, err := f.corpus.Page(ctx, core.Locator{Doc: "DocA", Page: 2})
		require.NoError(t, err)
		assert.Equal(t, "breath", page.Text)

		excerpts, err := f.corpus.Excerpts(ctx, core.Locator{Doc: "DocA", Page: 1}, 10)
		require.NoError(t, err)
		require.Len(t, excerpts, 2)
		assert.Equal(t, "A-P0001-T001", excerpts[0].ID)
		assert.Equal(t, "A-P0001-T002", excerpts[1].ID)

		_, err = f.corpus.Excerpts(ctx, core.Locator{Doc: "DocB", Page: 7}, 10)
		require.ErrorIs(t, err, storage.ErrSourceUnavailable)

		checkpoint, err := f.checkpoints.LoadCheckpoint(ctx, CheckpointName("DocA", KindPages))
		require.NoError(t, err)
		require.NotNil(t, checkpoint)
		assert.Equal(t, 2, checkpoint.Records)
		assert.NotZero(t, checkpoint.Fingerprint)

		assert.Contains(t, progress.String(), "4/4 sources")
	})

	t.Run("skips unchanged sources", func(t *testing.T) {
		f := newFixture(t)
		im := f.importer(t)

		_, err := im.Import(ctx)
		require.NoError(t, err)

		report, err := im.Import(ctx)
		require.NoError(t, err)
		assert.True(t, report.Sources[0].Unchanged)
		assert.Equal(t, 2, report.Sources[0].Records)
		assert.True(t, report.Sources[1].Unchanged)
		assert.Zero(t, report.Imported())
	})

	t.Run("reimports changed sources", func(t *testing.T) {
		f := newFixture(t)
		im := f.importer(t)

		_, err := im.Import(ctx)
		require.NoError(t, err)

		writeLines(t, filepath.Join(f.dir, "a_text.jsonl"),
			`{"doc":"DocA","pdfPage":3,"text":"only page now"}`,
		)
		report, err := im.Import(ctx)
		require.NoError(t, err)
		assert.False(t, report.Sources[0].Unchanged)
		assert.Equal(t, 1, report.Sources[0].Records)
		assert.True(t, report.Sources[1].Unchanged)

		_, err = f.corpus.Page(ctx, core.Locator{Doc: "DocA", Page: 1})
		require.ErrorIs(t, err, storage.ErrNotFound)
		page, err := f.corpus.Page(ctx, core.Locator{Doc: "DocA", Page: 3})
		require.NoError(t, err)
		assert.Equal(t, "only page now", page.Text)
	})

	t.Run("force reimports unchanged sources", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.importer(t).Import(ctx)
		require.NoError(t, err)

		report, err := f.importer(t, WithForce(true)).Import(ctx)
		require.NoError(t, err)
		assert.False(t, report.Sources[0].Unchanged)
		assert.Equal(t, 5, report.Imported())
	})

	t.Run("prefix change invalidates excerpt fingerprint", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.importer(t).Import(ctx)
		require.NoError(t, err)

		f.sources[0].Prefix = "AA"
		report, err := f.importer(t).Import(ctx)
		require.NoError(t, err)
		assert.True(t, report.Sources[0].Unchanged)
		assert.False(t, report.Sources[1].Unchanged)

		excerpts, err := f.corpus.Excerpts(ctx, core.Locator{Doc: "DocA", Page: 1}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, excerpts)
		assert.Equal(t, "AA-P0001-T001", excerpts[0].ID)
	})

	t.Run("unknown document fails", func(t *testing.T) {
		f := newFixture(t)
		f.sources = append(f.sources, storage.Source{
			Doc:      "DocC",
			Prefix:   "C",
			TextPath: filepath.Join(f.dir, "b_text.jsonl"),
		})
		report, err := f.importer(t).Import(ctx)
		require.Error(t, err)
		require.NotNil(t, report)
		assert.Equal(t, 2, report.Sources[0].Records)
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.importer(t).Import(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestImporterStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	im := f.importer(t)

	status, err := im.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 4)
	for _, s := range status {
		assert.False(t, s.Imported, "%s %s", s.Doc, s.Kind)
	}

	_, err = im.Import(ctx)
	require.NoError(t, err)

	status, err = im.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 4)

	assert.Equal(t, core.DocumentID("DocA"), status[0].Doc)
	assert.Equal(t, KindPages, status[0].Kind)
	assert.True(t, status[0].Imported)
	assert.Equal(t, 2, status[0].Records)
	assert.Len(t, status[0].Fingerprint, 16)
	require.NotNil(t, status[0].ImportedAt)

	assert.Equal(t, KindExcerpts, status[1].Kind)
	assert.Equal(t, 2, status[1].Records)
	assert.True(t, status[2].Imported)
	// b_laws.jsonl is missing, so no checkpoint is recorded
	assert.False(t, status[3].Imported)
	assert.Nil(t, status[3].ImportedAt)
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4)

	tracker.SourceDone(10)
	assert.Empty(t, buf.String(), "updates before Start are ignored")

	tracker.Start()
	tracker.SourceDone(10)
	tracker.SourceDone(5)
	assert.Contains(t, buf.String(), "2/4 sources (50.0%) - 15 records")

	tracker.Finish()
	out := buf.String()
	assert.Contains(t, out, "4/4 sources (100.0%)")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}
