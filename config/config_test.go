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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evidex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Corpus.Documents, 3)
	assert.Equal(t, "KHS", cfg.Corpus.Documents[0].Prefix)
	assert.Equal(t, []int{6, 13, 26, 50}, cfg.Estimator.Rules[0].PageHints)
	assert.GreaterOrEqual(t, cfg.Workers.PoolSize, 1)
}

func TestLoad(t *testing.T) {
	t.Run("no file yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		def := Default()
		assert.Equal(t, def.Corpus, cfg.Corpus)
		assert.Equal(t, def.Ranking, cfg.Ranking)
		assert.Equal(t, def.Pack, cfg.Pack)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
corpus:
  root: /data/corpus
  backend: badger
  documents:
    - id: DocA
      prefix: A
      text_file: a_text.jsonl
      excerpt_file: a_laws.jsonl
      weight: 2
    - id: DocB
      prefix: B
      text_file: /elsewhere/b_text.jsonl
ranking:
  title_match: 4
keywords:
  clusters:
    - [fire, flame]
  topics:
    - name: heat
      terms: [fire]
pack:
  max_text_length: 100
estimator:
  rules:
    - pattern: "fire|flame"
      doc: DocB
      page_hints: [3]
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, BackendBadger, cfg.Corpus.Backend)
		require.Len(t, cfg.Corpus.Documents, 2)
		assert.Equal(t, 2.0, cfg.Corpus.Documents[0].Weight)
		assert.Equal(t, 1.0, cfg.Corpus.Documents[1].Weight)
		assert.Equal(t, "/data/corpus/a_text.jsonl", cfg.TextPath(cfg.Corpus.Documents[0]))
		assert.Equal(t, "/data/corpus/a_laws.jsonl", cfg.ExcerptPath(cfg.Corpus.Documents[0]))
		assert.Equal(t, "/elsewhere/b_text.jsonl", cfg.TextPath(cfg.Corpus.Documents[1]))
		assert.Empty(t, cfg.ExcerptPath(cfg.Corpus.Documents[1]))
		assert.Equal(t, "/data/corpus/snapshot", cfg.SnapshotDir())

		assert.Equal(t, 4.0, cfg.Ranking.TitleMatch)
		assert.Equal(t, 3.0, cfg.Ranking.QuoteMatch)
		assert.Empty(t, cfg.Ranking.TopicBoosts)
		assert.Empty(t, cfg.Ranking.DefinitionZones)

		assert.Equal(t, [][]string{{"fire", "flame"}}, cfg.Keywords.Clusters)
		assert.Equal(t, Default().Keywords.CoreTerms, cfg.Keywords.CoreTerms)
		assert.Equal(t, 100, cfg.Pack.MaxTextLength)
		assert.Equal(t, 500, cfg.Pack.MaxQuoteLength)
		require.Len(t, cfg.Estimator.Rules, 1)
		assert.Equal(t, "DocB", cfg.Estimator.Rules[0].Doc)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, "pack:\n  max_text_length: 100\n")
		t.Setenv("EVIDEX_PACK_MAX_TEXT_LENGTH", "1500")
		t.Setenv("EVIDEX_CORPUS_ROOT", "/srv/corpus")
		t.Setenv("EVIDEX_WORKERS_POOL_SIZE", "3")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 1500, cfg.Pack.MaxTextLength)
		assert.Equal(t, "/srv/corpus", cfg.Corpus.Root)
		assert.Equal(t, 3, cfg.Workers.PoolSize)
		assert.Equal(t, "/srv/corpus/khs_text.jsonl", cfg.TextPath(cfg.Corpus.Documents[0]))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("oversized file", func(t *testing.T) {
		path := writeConfig(t, "# "+strings.Repeat("x", maxConfigFileSize)+"\n")
		_, err := Load(path)
		require.ErrorIs(t, err, ErrConfigTooLarge)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "corpus: [unterminated\n")
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"EVIDEX_CORPUS_ROOT", "corpus.root"},
		{"EVIDEX_PACK_MAX_TEXT_LENGTH", "pack.max_text_length"},
		{"EVIDEX_CORPUS_SNAPSHOT_PATH", "corpus.snapshot_path"},
		{"EVIDEX_WORKERS", "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown backend", func(c *Config) { c.Corpus.Backend = "sqlite" }, ErrInvalidConfig},
		{"no documents", func(c *Config) { c.Corpus.Documents = nil }, ErrInvalidConfig},
		{"duplicate document", func(c *Config) {
			c.Corpus.Documents[1].ID = c.Corpus.Documents[0].ID
		}, ErrInvalidConfig},
		{"duplicate prefix", func(c *Config) {
			c.Corpus.Documents[1].Prefix = c.Corpus.Documents[0].Prefix
		}, ErrInvalidConfig},
		{"negative weight", func(c *Config) { c.Corpus.Documents[0].Weight = -1 }, ErrInvalidConfig},
		{"zero divisor", func(c *Config) { c.Ranking.LengthPenaltyDivisor = 0 }, ErrInvalidConfig},
		{"boost on unknown doc", func(c *Config) { c.Ranking.TopicBoosts[0].Doc = "Nope" }, ErrUnknownDocument},
		{"boost on unknown topic", func(c *Config) { c.Ranking.TopicBoosts[0].Topic = "nope" }, ErrUnknownTopic},
		{"zone conflicts with unknown topic", func(c *Config) {
			c.Ranking.DefinitionZones[0].Conflicts = []string{"nope"}
		}, ErrUnknownTopic},
		{"inverted zone range", func(c *Config) {
			c.Ranking.DefinitionZones[0].Primary = PageRangeConfig{From: 9, To: 2}
		}, ErrInvalidConfig},
		{"empty clusters", func(c *Config) { c.Keywords.Clusters = nil }, ErrInvalidConfig},
		{"too many excerpts", func(c *Config) { c.Pack.MaxExcerpts = 11 }, ErrInvalidConfig},
		{"min chunk above size", func(c *Config) { c.Pack.MinChunkLength = c.Pack.ChunkSize + 1 }, ErrInvalidConfig},
		{"bad pattern", func(c *Config) { c.Estimator.Rules[0].Pattern = "(" }, ErrInvalidConfig},
		{"rule on unknown doc", func(c *Config) { c.Estimator.Rules[0].Doc = "Nope" }, ErrUnknownDocument},
		{"zero page hint", func(c *Config) { c.Estimator.Rules[0].PageHints = []int{0} }, ErrInvalidConfig},
		{"zero pool", func(c *Config) { c.Workers.PoolSize = 0 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
