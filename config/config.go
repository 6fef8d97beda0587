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

// Package config provides configuration loading for evidex.
package config

import "runtime"

// Backend names.
const (
	BackendJSONL  = "jsonl"
	BackendBadger = "badger"
)

// Config is the complete engine configuration.
type Config struct {
	Corpus    CorpusConfig    `koanf:"corpus"`
	Ranking   RankingConfig   `koanf:"ranking"`
	Keywords  KeywordsConfig  `koanf:"keywords"`
	Pack      PackConfig      `koanf:"pack"`
	Estimator EstimatorConfig `koanf:"estimator"`
	Workers   WorkersConfig   `koanf:"workers"`
}

// CorpusConfig locates the per-document record files.
type CorpusConfig struct {
	Root          string           `koanf:"root"`
	Backend       string           `koanf:"backend"`
	SnapshotPath  string           `koanf:"snapshot_path"` // badger directory, default <root>/snapshot
	ImageEndpoint string           `koanf:"image_endpoint"`
	Documents     []DocumentConfig `koanf:"documents"`
}

// DocumentConfig describes one document. Relative file paths are resolved
// against the corpus root.
type DocumentConfig struct {
	ID          string  `koanf:"id"`
	Prefix      string  `koanf:"prefix"`
	TextFile    string  `koanf:"text_file"`
	ExcerptFile string  `koanf:"excerpt_file"`
	Weight      float64 `koanf:"weight"` // 0 means 1
}

// RankingConfig holds the scoring policy. Topic boosts take priority over
// definition zones; each list is evaluated in order.
type RankingConfig struct {
	TitleMatch           float64                `koanf:"title_match"`
	QuoteMatch           float64                `koanf:"quote_match"`
	QueryContained       float64                `koanf:"query_contained"`
	RawTermWeight        float64                `koanf:"raw_term_weight"`
	LengthPenaltyDivisor int                    `koanf:"length_penalty_divisor"`
	TopicBoosts          []TopicBoostConfig     `koanf:"topic_boosts"`
	DefinitionZones      []DefinitionZoneConfig `koanf:"definition_zones"`
}

type TopicBoostConfig struct {
	Topic     string   `koanf:"topic"`
	Doc       string   `koanf:"doc"`
	Amount    float64  `koanf:"amount"`
	Conflicts []string `koanf:"conflicts"`
}

type PageRangeConfig struct {
	From int `koanf:"from"`
	To   int `koanf:"to"`
}

type DefinitionZoneConfig struct {
	Topic          string          `koanf:"topic"`
	Doc            string          `koanf:"doc"`
	Primary        PageRangeConfig `koanf:"primary"`
	PrimaryBonus   float64         `koanf:"primary_bonus"`
	Secondary      PageRangeConfig `koanf:"secondary"`
	SecondaryBonus float64         `koanf:"secondary_bonus"`
	Conflicts      []string        `koanf:"conflicts"`
}

// KeywordsConfig drives keyword extraction. The first cluster seeds
// queries that match nothing.
type KeywordsConfig struct {
	Clusters  [][]string    `koanf:"clusters"`
	CoreTerms []string      `koanf:"core_terms"`
	Topics    []TopicConfig `koanf:"topics"`
}

type TopicConfig struct {
	Name  string   `koanf:"name"`
	Terms []string `koanf:"terms"`
}

// PackConfig bounds evidence packs. Lengths are in runes.
type PackConfig struct {
	MaxTextLength  int      `koanf:"max_text_length"`
	MaxExcerpts    int      `koanf:"max_excerpts"`
	MaxQuoteLength int      `koanf:"max_quote_length"`
	ChunkSize      int      `koanf:"chunk_size"`
	MinChunkLength int      `koanf:"min_chunk_length"`
	TitlePrefixes  []string `koanf:"title_prefixes"`
}

type EstimatorConfig struct {
	Rules []RuleConfig `koanf:"rules"`
}

type RuleConfig struct {
	Pattern   string `koanf:"pattern"`
	Doc       string `koanf:"doc"`
	PageHints []int  `koanf:"page_hints"`
}

type WorkersConfig struct {
	PoolSize int `koanf:"pool_size"`
}

// Default returns the three-document deployment configuration.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Root:          "/opt/tenmon-corpus/db",
			Backend:       BackendJSONL,
			ImageEndpoint: "/api/corpus/page-image",
			Documents: []DocumentConfig{
				{ID: "言霊秘書.pdf", Prefix: "KHS", TextFile: "khs_text.jsonl", ExcerptFile: "khs_law_candidates.jsonl", Weight: 1},
				{ID: "カタカムナ言灵解.pdf", Prefix: "KTK", TextFile: "ktk_text.jsonl", ExcerptFile: "ktk_law_candidates.jsonl", Weight: 1},
				{ID: "いろは最終原稿.pdf", Prefix: "IROHA", TextFile: "iroha_text.jsonl", ExcerptFile: "iroha_law_candidates.jsonl", Weight: 1},
			},
		},
		Ranking: RankingConfig{
			TitleMatch:           8,
			QuoteMatch:           3,
			QueryContained:       15,
			RawTermWeight:        10,
			LengthPenaltyDivisor: 2000,
			TopicBoosts: []TopicBoostConfig{
				{Topic: "katakamuna", Doc: "カタカムナ言灵解.pdf", Amount: 5},
				{Topic: "iroha", Doc: "いろは最終原稿.pdf", Amount: 5},
				{Topic: "kotodama", Doc: "言霊秘書.pdf", Amount: 5},
			},
			DefinitionZones: []DefinitionZoneConfig{
				{
					Topic:          "kotodama",
					Doc:            "言霊秘書.pdf",
					Primary:        PageRangeConfig{From: 1, To: 20},
					PrimaryBonus:   8,
					Secondary:      PageRangeConfig{From: 21, To: 60},
					SecondaryBonus: 3,
					Conflicts:      []string{"katakamuna"},
				},
			},
		},
		Keywords: KeywordsConfig{
			Clusters: [][]string{
				{"言霊", "言靈", "言灵", "ことだま", "kotodama"},
			},
			CoreTerms: []string{
				"言灵", "言霊", "ことだま", "真言", "躰", "体", "用", "正中", "水火", "生成",
				"辞", "テニヲハ", "空仮中", "メシア", "カタカムナ", "天津金木", "布斗麻邇", "秘密荘厳心",
			},
			Topics: []TopicConfig{
				{Name: "kotodama", Terms: []string{"言霊", "言靈", "言灵", "ことだま", "コトダマ"}},
				{Name: "katakamuna", Terms: []string{"カタカムナ", "天津金木", "布斗麻邇", "フトマニ"}},
				{Name: "iroha", Terms: []string{"いろは", "テニヲハ", "てにをは"}},
			},
		},
		Pack: PackConfig{
			MaxTextLength:  2000,
			MaxExcerpts:    10,
			MaxQuoteLength: 500,
			ChunkSize:      300,
			MinChunkLength: 50,
			TitlePrefixes:  []string{"核心語:", "核心語："},
		},
		Estimator: EstimatorConfig{
			Rules: []RuleConfig{
				{Pattern: "(言[霊靈灵]|言霊|言靈|言灵|ことだま)", Doc: "言霊秘書.pdf", PageHints: []int{6, 13, 26, 50}},
				{Pattern: "(カタカムナ|天津金木|布斗麻邇|フトマニ)", Doc: "カタカムナ言灵解.pdf", PageHints: []int{1, 18, 26, 50}},
				{Pattern: "(いろは|辞|テニヲハ|てにをは)", Doc: "いろは最終原稿.pdf", PageHints: []int{1, 13, 26, 50}},
			},
		},
		Workers: WorkersConfig{
			PoolSize: defaultPoolSize(),
		},
	}
}

func defaultPoolSize() int {
	return max(1, runtime.NumCPU()/2)
}
