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

package config

import (
	"fmt"
	"regexp"

	"github.com/poiesic/evidex/core"
)

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.validateCorpus(); err != nil {
		return err
	}
	docs := make(map[string]bool, len(c.Corpus.Documents))
	for _, d := range c.Corpus.Documents {
		docs[d.ID] = true
	}
	topics := make(map[string]bool, len(c.Keywords.Topics))
	for _, t := range c.Keywords.Topics {
		if t.Name == "" {
			return fmt.Errorf("%w: keywords topic without a name", ErrInvalidConfig)
		}
		if topics[t.Name] {
			return fmt.Errorf("%w: duplicate topic %q", ErrInvalidConfig, t.Name)
		}
		if len(t.Terms) == 0 {
			return fmt.Errorf("%w: topic %q has no terms", ErrInvalidConfig, t.Name)
		}
		topics[t.Name] = true
	}
	if len(c.Keywords.Clusters) == 0 || len(c.Keywords.Clusters[0]) == 0 {
		return fmt.Errorf("%w: at least one non-empty keyword cluster is required", ErrInvalidConfig)
	}
	if err := c.validateRanking(docs, topics); err != nil {
		return err
	}
	if err := c.validatePack(); err != nil {
		return err
	}
	for i, r := range c.Estimator.Rules {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("%w: estimator rule %d: %v", ErrInvalidConfig, i, err)
		}
		if !docs[r.Doc] {
			return fmt.Errorf("%w: estimator rule %d: %q", ErrUnknownDocument, i, r.Doc)
		}
		for _, p := range r.PageHints {
			if p < 1 {
				return fmt.Errorf("%w: estimator rule %d: page hint %d", ErrInvalidConfig, i, p)
			}
		}
	}
	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("%w: workers.pool_size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateCorpus() error {
	switch c.Corpus.Backend {
	case BackendJSONL, BackendBadger:
	default:
		return fmt.Errorf("%w: unsupported backend %q", ErrInvalidConfig, c.Corpus.Backend)
	}
	if c.Corpus.Root == "" {
		return fmt.Errorf("%w: corpus.root is required", ErrInvalidConfig)
	}
	if len(c.Corpus.Documents) == 0 {
		return fmt.Errorf("%w: no documents configured", ErrInvalidConfig)
	}
	ids := make(map[string]bool)
	prefixes := make(map[string]bool)
	for _, d := range c.Corpus.Documents {
		switch {
		case d.ID == "":
			return fmt.Errorf("%w: document without an id", ErrInvalidConfig)
		case ids[d.ID]:
			return fmt.Errorf("%w: duplicate document %q", ErrInvalidConfig, d.ID)
		case d.Prefix == "":
			return fmt.Errorf("%w: document %q has no prefix", ErrInvalidConfig, d.ID)
		case prefixes[d.Prefix]:
			return fmt.Errorf("%w: duplicate prefix %q", ErrInvalidConfig, d.Prefix)
		case d.TextFile == "":
			return fmt.Errorf("%w: document %q has no text_file", ErrInvalidConfig, d.ID)
		case d.Weight < 0:
			return fmt.Errorf("%w: document %q has negative weight", ErrInvalidConfig, d.ID)
		}
		ids[d.ID] = true
		prefixes[d.Prefix] = true
	}
	return nil
}

func (c *Config) validateRanking(docs, topics map[string]bool) error {
	r := c.Ranking
	if r.TitleMatch < 0 || r.QuoteMatch < 0 || r.QueryContained < 0 || r.RawTermWeight < 0 {
		return fmt.Errorf("%w: ranking weights must not be negative", ErrInvalidConfig)
	}
	if r.LengthPenaltyDivisor < 1 {
		return fmt.Errorf("%w: ranking.length_penalty_divisor must be positive", ErrInvalidConfig)
	}
	checkRefs := func(kind string, i int, topic, doc string, conflicts []string) error {
		if !topics[topic] {
			return fmt.Errorf("%w: %s %d: %q", ErrUnknownTopic, kind, i, topic)
		}
		if !docs[doc] {
			return fmt.Errorf("%w: %s %d: %q", ErrUnknownDocument, kind, i, doc)
		}
		for _, t := range conflicts {
			if !topics[t] {
				return fmt.Errorf("%w: %s %d conflicts with %q", ErrUnknownTopic, kind, i, t)
			}
		}
		return nil
	}
	for i, b := range r.TopicBoosts {
		if err := checkRefs("topic boost", i, b.Topic, b.Doc, b.Conflicts); err != nil {
			return err
		}
	}
	for i, z := range r.DefinitionZones {
		if err := checkRefs("definition zone", i, z.Topic, z.Doc, z.Conflicts); err != nil {
			return err
		}
		if !z.Primary.valid() || !z.Secondary.valid() {
			return fmt.Errorf("%w: definition zone %d has an invalid page range", ErrInvalidConfig, i)
		}
	}
	return nil
}

func (c *Config) validatePack() error {
	p := c.Pack
	switch {
	case p.MaxTextLength < 1:
		return fmt.Errorf("%w: pack.max_text_length must be positive", ErrInvalidConfig)
	case p.MaxExcerpts < 1 || p.MaxExcerpts > core.MaxPackExcerpts:
		return fmt.Errorf("%w: pack.max_excerpts must be between 1 and %d", ErrInvalidConfig, core.MaxPackExcerpts)
	case p.MaxQuoteLength < 1:
		return fmt.Errorf("%w: pack.max_quote_length must be positive", ErrInvalidConfig)
	case p.ChunkSize < 1:
		return fmt.Errorf("%w: pack.chunk_size must be positive", ErrInvalidConfig)
	case p.MinChunkLength < 0 || p.MinChunkLength > p.ChunkSize:
		return fmt.Errorf("%w: pack.min_chunk_length must be between 0 and chunk_size", ErrInvalidConfig)
	}
	return nil
}

// An unset range (0-0) is valid and matches nothing.
func (r PageRangeConfig) valid() bool {
	if r.From == 0 && r.To == 0 {
		return true
	}
	return r.From >= 1 && r.To >= r.From
}
