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

package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content fingerprint.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return IDFromSum(h.Sum(nil))
}

// IDFromSum converts the first 8 bytes of a hash sum into an ID.
func IDFromSum(sum []byte) ID {
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentID names one corpus, typically a source book.
type DocumentID string

// Locator addresses one page of one document.
type Locator struct {
	Doc  DocumentID `json:"doc"`
	Page int        `json:"pdfPage"`
}

// Valid reports whether the locator names a document and a positive page.
func (l Locator) Valid() bool {
	return l.Doc != "" && l.Page > 0
}

// Key returns the map key used to merge hits for the same page.
func (l Locator) Key() string {
	return string(l.Doc) + "#" + strconv.Itoa(l.Page)
}

func (l Locator) String() string {
	return string(l.Doc) + " p." + strconv.Itoa(l.Page)
}

// PageRecord holds the extracted text of one page.
// Text may be empty when upstream extraction failed.
type PageRecord struct {
	Doc       DocumentID
	Page      int
	Text      string
	ImagePath string // Rendered page image, absolute or relative (optional)
}

// Locator returns the page locator of the record.
func (p *PageRecord) Locator() Locator {
	return Locator{Doc: p.Doc, Page: p.Page}
}

// Excerpt is a short curated quotation attached to a page ("law candidate").
type Excerpt struct {
	ID    string     `json:"id"`
	Doc   DocumentID `json:"-"`
	Page  int        `json:"-"`
	Title string     `json:"title"`
	Quote string     `json:"quote"`
}

// Locator returns the page locator of the excerpt.
func (e *Excerpt) Locator() Locator {
	return Locator{Doc: e.Doc, Page: e.Page}
}

// MaxSnippets is the maximum number of supporting snippets carried by a Hit.
const MaxSnippets = 3

// Hit is a scored retrieval result for one page.
type Hit struct {
	Locator
	Score    float64  `json:"score"`
	Snippets []string `json:"quoteSnippets"`
}

// MaxPackExcerpts bounds the number of excerpts in an evidence pack.
const MaxPackExcerpts = 10

// Pack is the evidence bundle assembled for one resolved page.
type Pack struct {
	Locator
	Laws                []Excerpt `json:"laws"`
	PageText            string    `json:"pageText"`
	Summary             string    `json:"summary"`
	ImageURL            string    `json:"imageUrl,omitempty"`
	SHA256              string    `json:"sha256"`
	IsEstimated         bool      `json:"isEstimated"`
	EstimateExplanation string    `json:"estimateExplanation,omitempty"`
}

// Estimate is a heuristic guess of the page a free-text message refers to.
type Estimate struct {
	Locator
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Checkpoint records the state of the last snapshot import of one source.
type Checkpoint struct {
	Name        string
	Fingerprint ID
	Records     int
	UpdatedAt   time.Time
}
