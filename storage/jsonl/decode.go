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

package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/storage"
)

const (
	initialLineBuffer = 64 * 1024
	// MaxLineSize bounds a single record; longer lines are skipped.
	MaxLineSize = 16 * 1024 * 1024
)

// ErrMalformedRecord indicates a line that is not a valid record for its source.
var ErrMalformedRecord = errors.New("malformed record")

type pageLine struct {
	Doc        string          `json:"doc"`
	PDFPage    json.RawMessage `json:"pdfPage"`
	Page       json.RawMessage `json:"page"`
	PageNumber json.RawMessage `json:"pageNumber"`
	P          json.RawMessage `json:"p"`
	Text       string          `json:"text"`
	ImagePath  string          `json:"imagePath"`
}

type excerptLine struct {
	Doc     string          `json:"doc"`
	PDFPage json.RawMessage `json:"pdfPage"`
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Quote   string          `json:"quote"`
}

// DecodePage parses one page-text line belonging to doc.
// The page number is read from pdfPage, falling back to the legacy
// page, pageNumber and p fields.
func DecodePage(line []byte, doc core.DocumentID) (*core.PageRecord, error) {
	var raw pageLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if core.DocumentID(raw.Doc) != doc {
		return nil, fmt.Errorf("%w: %w: %q", ErrMalformedRecord, core.ErrDocumentMismatch, raw.Doc)
	}
	page, err := firstPage(raw.PDFPage, raw.Page, raw.PageNumber, raw.P)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return &core.PageRecord{
		Doc:       doc,
		Page:      page,
		Text:      raw.Text,
		ImagePath: raw.ImagePath,
	}, nil
}

// DecodeExcerpt parses one curated-excerpt line belonging to doc.
// The ID is not normalized here; see core.NormalizeExcerptID.
func DecodeExcerpt(line []byte, doc core.DocumentID) (*core.Excerpt, error) {
	var raw excerptLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if core.DocumentID(raw.Doc) != doc {
		return nil, fmt.Errorf("%w: %w: %q", ErrMalformedRecord, core.ErrDocumentMismatch, raw.Doc)
	}
	page, err := firstPage(raw.PDFPage)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if raw.Title == "" && raw.Quote == "" {
		return nil, fmt.Errorf("%w: excerpt has neither title nor quote", ErrMalformedRecord)
	}
	return &core.Excerpt{
		ID:    raw.ID,
		Doc:   doc,
		Page:  page,
		Title: raw.Title,
		Quote: raw.Quote,
	}, nil
}

// firstPage returns the first present page field.
func firstPage(fields ...json.RawMessage) (int, error) {
	for _, field := range fields {
		value := strings.TrimSpace(string(field))
		if value == "" || value == "null" {
			continue
		}
		if strings.HasPrefix(value, `"`) {
			unquoted, err := strconv.Unquote(value)
			if err != nil {
				return 0, fmt.Errorf("%w: %s", core.ErrInvalidPage, value)
			}
			value = strings.TrimSpace(unquoted)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", core.ErrInvalidPage, value)
		}
		return core.PageFromFloat(f)
	}
	return 0, fmt.Errorf("%w: missing", core.ErrInvalidPage)
}

// ScanPageFile streams the valid page-text records of doc stored at path.
// Malformed and oversized lines are skipped and counted. A missing file is
// reported as storage.ErrSourceUnavailable.
func ScanPageFile(ctx context.Context, path string, doc core.DocumentID, fn func(*core.PageRecord) error) (skipped int, err error) {
	oversized, err := scanLines(ctx, path, func(line []byte) error {
		record, decodeErr := DecodePage(line, doc)
		if decodeErr != nil {
			skipped++
			return nil
		}
		return fn(record)
	})
	return skipped + oversized, err
}

// ScanExcerptFile streams the valid curated excerpts of doc stored at path.
// Excerpt IDs that do not carry prefix are resynthesized from the page and
// the excerpt's 1-based ordinal on that page.
func ScanExcerptFile(ctx context.Context, path string, doc core.DocumentID, prefix string, fn func(*core.Excerpt) error) (skipped int, err error) {
	ordinals := make(map[int]int)
	oversized, err := scanLines(ctx, path, func(line []byte) error {
		excerpt, decodeErr := DecodeExcerpt(line, doc)
		if decodeErr != nil {
			skipped++
			return nil
		}
		ordinals[excerpt.Page]++
		excerpt.ID = core.NormalizeExcerptID(prefix, excerpt.Page, ordinals[excerpt.Page], excerpt.ID)
		return fn(excerpt)
	})
	return skipped + oversized, err
}

// scanLines calls fn for every non-blank line of the file at path and
// returns the number of lines dropped for exceeding MaxLineSize.
// fn may return storage.ErrStopScan to end the scan without error.
func scanLines(ctx context.Context, path string, fn func(line []byte) error) (oversized int, err error) {
	if path == "" {
		return 0, storage.ErrSourceUnavailable
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, storage.ErrSourceUnavailable
		}
		return 0, err
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, initialLineBuffer)
	var (
		buf     []byte
		tooLong bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return oversized, err
		}
		chunk, readErr := reader.ReadSlice('\n')
		if readErr != nil && !errors.Is(readErr, bufio.ErrBufferFull) && !errors.Is(readErr, io.EOF) {
			return oversized, readErr
		}
		if !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > MaxLineSize {
				tooLong = true
				buf = buf[:0]
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}

		if tooLong {
			oversized++
		} else if line := bytes.TrimSpace(buf); len(line) > 0 {
			if err := fn(line); err != nil {
				if errors.Is(err, storage.ErrStopScan) {
					return oversized, nil
				}
				return oversized, err
			}
		}
		buf, tooLong = buf[:0], false

		if readErr != nil {
			return oversized, nil
		}
	}
}
