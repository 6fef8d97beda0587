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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables that override file settings.
	EnvPrefix = "EVIDEX_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads configuration from a YAML file, then applies environment
// overrides, then fills unset values from Default.
//
// An empty path skips the file. Environment variables drop the EVIDEX_
// prefix and split on the first underscore into section and field:
//
//	EVIDEX_CORPUS_ROOT          -> corpus.root
//	EVIDEX_PACK_MAX_TEXT_LENGTH -> pack.max_text_length
//	EVIDEX_WORKERS_POOL_SIZE    -> workers.pool_size
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidConfig, path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigTooLarge, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// applyDefaults fills zero values from Default. Rules that name documents
// or topics are only defaulted when those were defaulted too.
func applyDefaults(cfg *Config) {
	def := Default()

	docsDefaulted := len(cfg.Corpus.Documents) == 0
	topicsDefaulted := len(cfg.Keywords.Topics) == 0

	if cfg.Corpus.Root == "" {
		cfg.Corpus.Root = def.Corpus.Root
	}
	if cfg.Corpus.Backend == "" {
		cfg.Corpus.Backend = def.Corpus.Backend
	}
	if cfg.Corpus.ImageEndpoint == "" {
		cfg.Corpus.ImageEndpoint = def.Corpus.ImageEndpoint
	}
	if docsDefaulted {
		cfg.Corpus.Documents = def.Corpus.Documents
	}
	for i := range cfg.Corpus.Documents {
		if cfg.Corpus.Documents[i].Weight == 0 {
			cfg.Corpus.Documents[i].Weight = 1
		}
	}

	r := &cfg.Ranking
	if r.TitleMatch == 0 {
		r.TitleMatch = def.Ranking.TitleMatch
	}
	if r.QuoteMatch == 0 {
		r.QuoteMatch = def.Ranking.QuoteMatch
	}
	if r.QueryContained == 0 {
		r.QueryContained = def.Ranking.QueryContained
	}
	if r.RawTermWeight == 0 {
		r.RawTermWeight = def.Ranking.RawTermWeight
	}
	if r.LengthPenaltyDivisor == 0 {
		r.LengthPenaltyDivisor = def.Ranking.LengthPenaltyDivisor
	}
	if docsDefaulted && topicsDefaulted && len(r.TopicBoosts) == 0 && len(r.DefinitionZones) == 0 {
		r.TopicBoosts = def.Ranking.TopicBoosts
		r.DefinitionZones = def.Ranking.DefinitionZones
	}

	if len(cfg.Keywords.Clusters) == 0 {
		cfg.Keywords.Clusters = def.Keywords.Clusters
	}
	if len(cfg.Keywords.CoreTerms) == 0 {
		cfg.Keywords.CoreTerms = def.Keywords.CoreTerms
	}
	if topicsDefaulted {
		cfg.Keywords.Topics = def.Keywords.Topics
	}

	p := &cfg.Pack
	if p.MaxTextLength == 0 {
		p.MaxTextLength = def.Pack.MaxTextLength
	}
	if p.MaxExcerpts == 0 {
		p.MaxExcerpts = def.Pack.MaxExcerpts
	}
	if p.MaxQuoteLength == 0 {
		p.MaxQuoteLength = def.Pack.MaxQuoteLength
	}
	if p.ChunkSize == 0 {
		p.ChunkSize = def.Pack.ChunkSize
	}
	if p.MinChunkLength == 0 {
		p.MinChunkLength = def.Pack.MinChunkLength
	}
	if len(p.TitlePrefixes) == 0 {
		p.TitlePrefixes = def.Pack.TitlePrefixes
	}

	if docsDefaulted && len(cfg.Estimator.Rules) == 0 {
		cfg.Estimator.Rules = def.Estimator.Rules
	}

	if cfg.Workers.PoolSize == 0 {
		cfg.Workers.PoolSize = def.Workers.PoolSize
	}
}

// TextPath returns the page-text file of a document resolved against the
// corpus root.
func (c *Config) TextPath(d DocumentConfig) string {
	return c.resolve(d.TextFile)
}

// ExcerptPath returns the excerpt file of a document, or "" if none is
// configured.
func (c *Config) ExcerptPath(d DocumentConfig) string {
	if d.ExcerptFile == "" {
		return ""
	}
	return c.resolve(d.ExcerptFile)
}

// SnapshotDir returns the badger snapshot directory.
func (c *Config) SnapshotDir() string {
	if c.Corpus.SnapshotPath == "" {
		return filepath.Join(c.Corpus.Root, "snapshot")
	}
	return c.resolve(c.Corpus.SnapshotPath)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Corpus.Root, p)
}
