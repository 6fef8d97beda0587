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

package query

import (
	"fmt"
	"log/slog"
	"strings"
)

// Topic names a subject cluster detected in a query.
type Topic string

// TopicDetector sets Topic when any of Terms occurs in a query.
type TopicDetector struct {
	Topic Topic
	Terms []string
}

// Query is the extracted form of one free-text query.
type Query struct {
	Raw        string
	Normalized string
	// Keywords is insertion ordered, duplicate free and never empty.
	// Each keyword is in Fold form.
	Keywords []string
	Flags    map[Topic]bool
}

// Has reports whether topic was detected.
func (q Query) Has(topic Topic) bool {
	return q.Flags[topic]
}

// Extractor expands queries into keywords and topic flags.
// An Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	clusters  [][]term
	coreTerms []term
	topics    []detector
	logger    *slog.Logger
}

// term pairs the Fold form emitted as a keyword with the Normalize form
// looked up in the normalized query.
type term struct {
	match      string
	normalized string
}

type detector struct {
	topic      Topic
	raw        []string
	normalized []string
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithClusters sets the synonym clusters. The first cluster seeds queries
// that match nothing.
func WithClusters(clusters ...[]string) Option {
	return func(e *Extractor) error {
		e.clusters = e.clusters[:0]
		for _, cluster := range clusters {
			terms := foldTerms(cluster)
			if len(terms) == 0 {
				continue
			}
			e.clusters = append(e.clusters, terms)
		}
		return nil
	}
}

// WithCoreTerms sets the terms added whenever they occur in a query.
func WithCoreTerms(terms ...string) Option {
	return func(e *Extractor) error {
		e.coreTerms = foldTerms(terms)
		return nil
	}
}

// WithTopics sets the topic detectors.
func WithTopics(detectors ...TopicDetector) Option {
	return func(e *Extractor) error {
		e.topics = e.topics[:0]
		for _, d := range detectors {
			if d.Topic == "" {
				return fmt.Errorf("%w: empty topic name", ErrInvalidTopic)
			}
			compiled := detector{topic: d.Topic}
			for _, t := range d.Terms {
				raw := StripInvisible(t)
				if strings.TrimSpace(raw) == "" {
					continue
				}
				compiled.raw = append(compiled.raw, raw)
			}
			compiled.normalized = normalizeTerms(d.Terms)
			if len(compiled.raw) == 0 {
				return fmt.Errorf("%w: topic %q has no terms", ErrInvalidTopic, d.Topic)
			}
			e.topics = append(e.topics, compiled)
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates an Extractor. At least one non-empty cluster is required.
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if len(e.clusters) == 0 {
		return nil, ErrNoClusters
	}
	return e, nil
}

// Extract normalizes raw and derives its keywords and topic flags.
func (e *Extractor) Extract(raw string) Query {
	normalized := Normalize(raw)
	keywords := newOrderedSet()

	if normalized != "" {
		for _, cluster := range e.clusters {
			if !containsTerm(normalized, cluster) {
				continue
			}
			keywords.addTerms(cluster)
		}
		for _, t := range e.coreTerms {
			if strings.Contains(normalized, t.normalized) {
				keywords.add(t.match)
			}
		}
	}
	if keywords.size() == 0 {
		keywords.addTerms(e.clusters[0])
	}

	q := Query{
		Raw:        raw,
		Normalized: normalized,
		Keywords:   keywords.items,
		Flags:      e.flags(raw, normalized),
	}
	e.logger.Debug("extracted query", "keywords", q.Keywords, "flags", q.Flags)
	return q
}

// flags checks the raw text with invisible characters removed and the
// normalized text independently; either match sets the topic.
func (e *Extractor) flags(raw, normalized string) map[Topic]bool {
	flags := make(map[Topic]bool, len(e.topics))
	visible := StripInvisible(raw)
	for _, d := range e.topics {
		flags[d.topic] = containsAny(visible, d.raw) ||
			(normalized != "" && containsAny(normalized, d.normalized))
	}
	return flags
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func containsTerm(normalized string, terms []term) bool {
	for _, t := range terms {
		if strings.Contains(normalized, t.normalized) {
			return true
		}
	}
	return false
}

// foldTerms drops blank terms and terms whose Fold form repeats.
func foldTerms(raw []string) []term {
	var terms []term
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		match, normalized := Fold(r), Normalize(r)
		if normalized == "" {
			continue
		}
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		terms = append(terms, term{match: match, normalized: normalized})
	}
	return terms
}

func normalizeTerms(terms []string) []string {
	set := newOrderedSet()
	for _, t := range terms {
		if n := Normalize(t); n != "" {
			set.add(n)
		}
	}
	return set.items
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
	}
}

func (s *orderedSet) addTerms(terms []term) {
	for _, t := range terms {
		s.add(t.match)
	}
}

func (s *orderedSet) size() int {
	return len(s.items)
}
