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
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(normalized string, keywords ...string) query.Query {
	return query.Query{Raw: normalized, Normalized: normalized, Keywords: keywords, Flags: map[query.Topic]bool{}}
}

func candidate(doc core.DocumentID, page int, title, text string) Candidate {
	return Candidate{Locator: core.Locator{Doc: doc, Page: page}, Title: title, Text: text}
}

func TestExcerptScorer_Score(t *testing.T) {
	scorer, err := NewExcerptScorer(DefaultPolicy())
	require.NoError(t, err)

	score, snippets := scorer.Score(
		q("firebalance", "fire", "balance"),
		candidate("DocA", 5, "Core Term: Fire", "fire balance ten times"),
	)
	want := DefaultTitleMatch + 2*DefaultQuoteMatch + DefaultQueryContained
	assert.InDelta(t, want, score, 1e-9)
	assert.Equal(t, []string{"fire balance ten times"}, snippets)
}

func TestExcerptScorer_TitleOccurrencesCount(t *testing.T) {
	scorer, err := NewExcerptScorer(DefaultPolicy())
	require.NoError(t, err)

	score, snippets := scorer.Score(q("fire", "fire"), candidate("DocA", 1, "Fire, fire, FIRE", ""))
	assert.InDelta(t, 3*DefaultTitleMatch, score, 1e-9)
	assert.Empty(t, snippets)
}

func TestExcerptScorer_ShortQueryNotContained(t *testing.T) {
	scorer, err := NewExcerptScorer(DefaultPolicy())
	require.NoError(t, err)

	score, _ := scorer.Score(q("水火", "水火"), candidate("DocA", 1, "", "水火の理"))
	assert.InDelta(t, DefaultQuoteMatch, score, 1e-9)
}

func TestExcerptScorer_NoMatch(t *testing.T) {
	scorer, err := NewExcerptScorer(DefaultPolicy())
	require.NoError(t, err)

	score, snippets := scorer.Score(q("water", "water"), candidate("DocA", 1, "Fire", "fire balance"))
	assert.Zero(t, score)
	assert.Empty(t, snippets)
}

func TestExcerptScorer_SnippetCap(t *testing.T) {
	scorer, err := NewExcerptScorer(DefaultPolicy())
	require.NoError(t, err)

	filler := strings.Repeat("-", 300)
	text := "alpha" + filler + "beta" + filler + "gamma" + filler + "delta"
	_, snippets := scorer.Score(q("x", "alpha", "beta", "gamma", "delta"), candidate("DocA", 1, "", text))
	require.Len(t, snippets, core.MaxSnippets)
	for _, s := range snippets {
		assert.LessOrEqual(t, utf8.RuneCountInString(s), MaxSnippetRunes)
	}
	assert.Contains(t, snippets[0], "alpha")
	assert.Contains(t, snippets[1], "beta")
	assert.Contains(t, snippets[2], "gamma")
}

func TestPageScorer_RawScore(t *testing.T) {
	scorer, err := NewPageScorer(DefaultPolicy())
	require.NoError(t, err)

	// five occurrences in 1000 runes
	text := strings.Repeat("fire"+strings.Repeat("x", 196), 5)
	require.Equal(t, 1000, utf8.RuneCountInString(text))

	score, snippets := scorer.Score(q("fire", "fire"), candidate("DocB", 2, "", text))
	assert.InDelta(t, 50.0, score, 1e-9)
	require.Len(t, snippets, 1)
	assert.True(t, strings.HasPrefix(snippets[0], "fire"))
}

func TestPageScorer_LengthPenalty(t *testing.T) {
	scorer, err := NewPageScorer(DefaultPolicy())
	require.NoError(t, err)

	text := "fire" + strings.Repeat("。", 4496)
	score, _ := scorer.Score(q("fire", "fire"), candidate("DocB", 2, "", text))
	assert.InDelta(t, 10.0-2.0, score, 1e-9)

	score, _ = scorer.Score(q("water", "water"), candidate("DocB", 2, "", text))
	assert.LessOrEqual(t, score, 0.0)
}

func TestPageScorer_CaseInsensitive(t *testing.T) {
	scorer, err := NewPageScorer(DefaultPolicy())
	require.NoError(t, err)

	score, snippets := scorer.Score(q("fire", "fire"), candidate("DocB", 1, "", "The FIRE burns"))
	assert.InDelta(t, 10.0, score, 1e-9)
	assert.Equal(t, []string{"The FIRE burns"}, snippets)
}

func TestSnippetAround_CentersOnMatch(t *testing.T) {
	text := strings.Repeat("あ", 500) + "言霊" + strings.Repeat("い", 500)
	snippet, ok := snippetAround(text, lower(text), "言霊")
	require.True(t, ok)
	runes := []rune(snippet)
	assert.Len(t, runes, MaxSnippetRunes)
	assert.Equal(t, "言霊", string(runes[99:101]))
}

func TestPolicy_DocumentWeight(t *testing.T) {
	policy := DefaultPolicy()
	policy.DocumentWeights["DocA"] = 2
	scorer, err := NewPageScorer(policy)
	require.NoError(t, err)

	score, _ := scorer.Score(q("fire", "fire"), candidate("DocA", 1, "", "fire"))
	assert.InDelta(t, 20.0, score, 1e-9)
	score, _ = scorer.Score(q("fire", "fire"), candidate("DocB", 1, "", "fire"))
	assert.InDelta(t, 10.0, score, 1e-9)
}

func TestPolicy_Boosts(t *testing.T) {
	policy := DefaultPolicy()
	policy.Boosts = []BoostRule{
		TopicBoost{Flag: "katakamuna", Doc: "KTK", Amount: 5},
		DefinitionZone{
			Flag:           "kotodama",
			Doc:            "KHS",
			Primary:        PageRange{From: 1, To: 20},
			PrimaryBonus:   8,
			Secondary:      PageRange{From: 21, To: 60},
			SecondaryBonus: 3,
			ConflictsWith:  []query.Topic{"katakamuna"},
		},
	}
	require.NoError(t, policy.Validate())
	scorer, err := NewPageScorer(policy)
	require.NoError(t, err)

	kotodama := q("言霊", "言霊")
	kotodama.Flags["kotodama"] = true
	both := q("言霊", "言霊")
	both.Flags["kotodama"] = true
	both.Flags["katakamuna"] = true

	tests := []struct {
		name  string
		query query.Query
		cand  Candidate
		want  float64
	}{
		{name: "primary zone", query: kotodama, cand: candidate("KHS", 5, "", "言霊"), want: 18},
		{name: "secondary zone", query: kotodama, cand: candidate("KHS", 30, "", "言霊"), want: 13},
		{name: "outside zone", query: kotodama, cand: candidate("KHS", 100, "", "言霊"), want: 10},
		{name: "other document", query: kotodama, cand: candidate("KTK", 5, "", "言霊"), want: 10},
		{name: "conflicting topic suppresses zone", query: both, cand: candidate("KHS", 5, "", "言霊"), want: 10},
		{name: "topic boost", query: both, cand: candidate("KTK", 5, "", "言霊"), want: 15},
		{name: "unmatched candidate not boosted", query: both, cand: candidate("KTK", 5, "", "none"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := scorer.Score(tt.query, tt.cand)
			assert.InDelta(t, tt.want, score, 1e-9)
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.TitleMatch = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPolicy)

	bad = DefaultPolicy()
	bad.DocumentWeights["DocA"] = math.NaN()
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPolicy)

	bad = DefaultPolicy()
	bad.LengthPenaltyDivisor = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPolicy)

	bad = DefaultPolicy()
	bad.Boosts = []BoostRule{DefinitionZone{Flag: "t", Doc: "D", Primary: PageRange{From: 10, To: 1}}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPolicy)

	bad = DefaultPolicy()
	bad.Boosts = []BoostRule{TopicBoost{Doc: "D"}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPolicy)

	_, err := NewExcerptScorer(nil)
	assert.ErrorIs(t, err, ErrPolicyRequired)
	_, err = NewPageScorer(nil)
	assert.ErrorIs(t, err, ErrPolicyRequired)
}
