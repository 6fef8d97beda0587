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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
	"github.com/poiesic/evidex/storage/jsonl"
)

// Source kinds.
const (
	KindPages    = "pages"
	KindExcerpts = "excerpts"
)

// CorpusWriter replaces the stored records of one document.
type CorpusWriter interface {
	ReplacePages(ctx context.Context, doc core.DocumentID, pages []*core.PageRecord) (int, error)
	ReplaceExcerpts(ctx context.Context, doc core.DocumentID, excerpts []*core.Excerpt) (int, error)
}

// SourceResult describes the outcome of importing one source file.
type SourceResult struct {
	Doc     core.DocumentID `json:"doc"`
	Kind    string          `json:"kind"`
	Path    string          `json:"path"`
	Records int             `json:"records"`
	Skipped int             `json:"skipped"`
	// Unchanged is set when the file matched its last checkpoint.
	Unchanged bool `json:"unchanged"`
	// Missing is set when the file does not exist. Stored records are kept.
	Missing bool `json:"missing"`
}

// Report lists source results in configuration order, pages before excerpts.
type Report struct {
	Sources []SourceResult `json:"sources"`
}

// Imported returns the number of records written by this import.
func (r *Report) Imported() int {
	n := 0
	for _, s := range r.Sources {
		if !s.Unchanged && !s.Missing {
			n += s.Records
		}
	}
	return n
}

// Importer loads JSONL sources into a snapshot store.
type Importer struct {
	writer      CorpusWriter
	checkpoints storage.CheckpointRepository
	sources     []storage.Source
	pool        *ants.Pool
	progress    io.Writer
	force       bool
	logger      *slog.Logger
	// writeMu serializes store writes; badger blocks writes while dropping a prefix.
	writeMu sync.Mutex
}

// Option configures an Importer.
type Option func(*Importer) error

// WithPoolSize sets the number of files parsed concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(im *Importer) error {
		if size < 1 {
			size = 1
		}
		if im.pool != nil {
			im.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		im.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		im.logger = logger
		return nil
	}
}

// WithProgress reports progress to w, typically os.Stderr.
func WithProgress(w io.Writer) Option {
	return func(im *Importer) error {
		im.progress = w
		return nil
	}
}

// WithForce re-imports sources even when their fingerprint is unchanged.
func WithForce(force bool) Option {
	return func(im *Importer) error {
		im.force = force
		return nil
	}
}

// NewImporter creates an importer for sources.
func NewImporter(
	writer CorpusWriter,
	checkpoints storage.CheckpointRepository,
	sources []storage.Source,
	opts ...Option,
) (*Importer, error) {
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	pool, err := ants.NewPool(max(1, runtime.NumCPU()/2))
	if err != nil {
		return nil, err
	}

	im := &Importer{
		writer:      writer,
		checkpoints: checkpoints,
		sources:     sources,
		pool:        pool,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(im); optErr != nil {
			im.Release()
			return nil, optErr
		}
	}
	return im, nil
}

// Release releases the worker pool.
func (im *Importer) Release() {
	if im.pool != nil {
		im.pool.Release()
	}
}

// checkpointPrefix starts the name of every import checkpoint.
const checkpointPrefix = "import:"

// CheckpointName returns the checkpoint name of one source.
func CheckpointName(doc core.DocumentID, kind string) string {
	return checkpointPrefix + string(doc) + ":" + kind
}

// SourceStatus is the last recorded import of one configured source.
type SourceStatus struct {
	Doc         core.DocumentID `json:"doc"`
	Kind        string          `json:"kind"`
	Imported    bool            `json:"imported"`
	Records     int             `json:"records,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	ImportedAt  *time.Time      `json:"importedAt,omitempty"`
}

// Status reports the stored checkpoint of every configured source,
// pages before excerpts in configuration order.
func (im *Importer) Status(ctx context.Context) ([]SourceStatus, error) {
	checkpoints, err := im.checkpoints.Checkpoints(ctx, checkpointPrefix)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*core.Checkpoint, len(checkpoints))
	for _, cp := range checkpoints {
		byName[cp.Name] = cp
	}

	out := make([]SourceStatus, 0, 2*len(im.sources))
	for _, src := range im.sources {
		for _, kind := range []string{KindPages, KindExcerpts} {
			status := SourceStatus{Doc: src.Doc, Kind: kind}
			if cp, ok := byName[CheckpointName(src.Doc, kind)]; ok {
				importedAt := cp.UpdatedAt
				status.Imported = true
				status.Records = cp.Records
				status.Fingerprint = fmt.Sprintf("%016x", uint64(cp.Fingerprint))
				status.ImportedAt = &importedAt
			}
			out = append(out, status)
		}
	}
	return out, nil
}

type task struct {
	src  storage.Source
	kind string
}

// Import imports every source. Errors from individual sources are joined;
// sources that succeeded stay imported.
func (im *Importer) Import(ctx context.Context) (*Report, error) {
	tasks := make([]task, 0, len(im.sources)*2)
	for _, src := range im.sources {
		tasks = append(tasks, task{src, KindPages}, task{src, KindExcerpts})
	}

	tracker := NewProgressTracker(im.progress, len(tasks))
	tracker.Start()

	results := make([]SourceResult, len(tasks))
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		submitErr := im.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = im.importSource(ctx, t)
			tracker.SourceDone(results[i].Records)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()
	tracker.Finish()

	report := &Report{Sources: results}
	if err := errors.Join(errs...); err != nil {
		return report, err
	}
	im.logger.Info("import complete",
		"sources", len(tasks), "records", report.Imported(), "elapsed", tracker.Elapsed())
	return report, nil
}

func (im *Importer) importSource(ctx context.Context, t task) (SourceResult, error) {
	result := SourceResult{Doc: t.src.Doc, Kind: t.kind, Path: t.src.TextPath}
	salt := ""
	if t.kind == KindExcerpts {
		result.Path = t.src.ExcerptPath
		salt = t.src.Prefix
	}

	fingerprint, err := fingerprintFile(result.Path, salt)
	if errors.Is(err, storage.ErrSourceUnavailable) {
		im.logger.Warn("source missing; keeping stored records",
			"doc", t.src.Doc, "kind", t.kind, "path", result.Path)
		result.Missing = true
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("fingerprint %s: %w", result.Path, err)
	}

	name := CheckpointName(t.src.Doc, t.kind)
	if !im.force {
		checkpoint, err := im.checkpoints.LoadCheckpoint(ctx, name)
		if err != nil {
			return result, err
		}
		if checkpoint != nil && checkpoint.Fingerprint == fingerprint {
			im.logger.Debug("source unchanged", "doc", t.src.Doc, "kind", t.kind)
			result.Unchanged = true
			result.Records = checkpoint.Records
			return result, nil
		}
	}

	written, skipped, err := im.load(ctx, t)
	result.Records, result.Skipped = written, skipped
	if err != nil {
		return result, fmt.Errorf("import %s %s: %w", t.src.Doc, t.kind, err)
	}
	if skipped > 0 {
		im.logger.Debug("skipped malformed records", "doc", t.src.Doc, "kind", t.kind, "count", skipped)
	}

	im.writeMu.Lock()
	defer im.writeMu.Unlock()
	err = im.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Name:        name,
		Fingerprint: fingerprint,
		Records:     written,
	})
	return result, err
}

// load parses one source and replaces its stored records.
func (im *Importer) load(ctx context.Context, t task) (written, skipped int, err error) {
	switch t.kind {
	case KindPages:
		var pages []*core.PageRecord
		skipped, err = jsonl.ScanPageFile(ctx, t.src.TextPath, t.src.Doc, func(p *core.PageRecord) error {
			pages = append(pages, p)
			return nil
		})
		if err != nil {
			return 0, skipped, err
		}
		im.writeMu.Lock()
		defer im.writeMu.Unlock()
		written, err = im.writer.ReplacePages(ctx, t.src.Doc, pages)
	default:
		var excerpts []*core.Excerpt
		skipped, err = jsonl.ScanExcerptFile(ctx, t.src.ExcerptPath, t.src.Doc, t.src.Prefix, func(e *core.Excerpt) error {
			excerpts = append(excerpts, e)
			return nil
		})
		if err != nil {
			return 0, skipped, err
		}
		im.writeMu.Lock()
		defer im.writeMu.Unlock()
		written, err = im.writer.ReplaceExcerpts(ctx, t.src.Doc, excerpts)
	}
	return written, skipped, err
}

// fingerprintFile hashes salt followed by the file contents.
func fingerprintFile(path, salt string) (core.ID, error) {
	if path == "" {
		return 0, storage.ErrSourceUnavailable
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, storage.ErrSourceUnavailable
		}
		return 0, err
	}
	defer f.Close()

	h, err := blake2b.New(8, nil)
	if err != nil {
		return 0, err
	}
	h.Write([]byte(salt))
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return core.IDFromSum(h.Sum(nil)), nil
}
