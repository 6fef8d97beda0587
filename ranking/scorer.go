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

package ranking

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/query"
)

// Candidate is one unit of content to score. For curated excerpts Text is
// the quote; for raw pages Title is empty.
type Candidate struct {
	core.Locator
	Title string
	Text  string
}

// Scorer rates a candidate against a query. A score <= 0 means the
// candidate should not become a hit.
type Scorer interface {
	Score(q query.Query, c Candidate) (score float64, snippets []string)
}

var (
	_ Scorer = (*ExcerptScorer)(nil)
	_ Scorer = (*PageScorer)(nil)
)

// ExcerptScorer scores curated excerpts by title and quote matches.
type ExcerptScorer struct {
	policy *Policy
}

// NewExcerptScorer creates an ExcerptScorer using policy.
func NewExcerptScorer(policy *Policy) (*ExcerptScorer, error) {
	if policy == nil {
		return nil, ErrPolicyRequired
	}
	return &ExcerptScorer{policy: policy}, nil
}

// Score credits TitleMatch per title occurrence and QuoteMatch per quote
// occurrence of every keyword, plus QueryContained when the whole
// normalized query appears in the normalized quote.
func (s *ExcerptScorer) Score(q query.Query, c Candidate) (float64, []string) {
	title := lower(c.Title)
	quote := lower(c.Text)

	var (
		base    float64
		matched bool
		snips   snippets
	)
	for _, kw := range q.Keywords {
		if n := strings.Count(title, kw); n > 0 {
			base += s.policy.TitleMatch * float64(n)
			matched = true
		}
		n := strings.Count(quote, kw)
		if n == 0 {
			continue
		}
		base += s.policy.QuoteMatch * float64(n)
		matched = true
		if !snips.full() {
			if snippet, ok := snippetAround(c.Text, quote, kw); ok {
				snips.add(snippet)
			}
		}
	}
	if utf8.RuneCountInString(q.Normalized) > MinContainedQueryRunes &&
		strings.Contains(query.Normalize(c.Text), q.Normalized) {
		base += s.policy.QueryContained
		matched = true
	}

	return s.policy.finalize(q, c.Locator, base, matched), snips.items
}

// PageScorer scores raw page text by keyword frequency with a length penalty.
type PageScorer struct {
	policy *Policy
}

// NewPageScorer creates a PageScorer using policy.
func NewPageScorer(policy *Policy) (*PageScorer, error) {
	if policy == nil {
		return nil, ErrPolicyRequired
	}
	return &PageScorer{policy: policy}, nil
}

// Score credits RawTermWeight per keyword occurrence and subtracts one
// point per LengthPenaltyDivisor runes of text.
func (s *PageScorer) Score(q query.Query, c Candidate) (float64, []string) {
	text := lower(c.Text)

	var (
		base    float64
		matched bool
		snips   snippets
	)
	for _, kw := range q.Keywords {
		n := strings.Count(text, kw)
		if n == 0 {
			continue
		}
		base += s.policy.RawTermWeight * float64(n)
		matched = true
		if !snips.full() {
			if snippet, ok := snippetAround(c.Text, text, kw); ok {
				snips.add(snippet)
			}
		}
	}
	base -= float64(utf8.RuneCountInString(c.Text) / s.policy.LengthPenaltyDivisor)

	return s.policy.finalize(q, c.Locator, base, matched), snips.items
}
