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

package evidex

import (
	"fmt"

	"github.com/poiesic/evidex/config"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/locate"
	"github.com/poiesic/evidex/query"
	"github.com/poiesic/evidex/ranking"
	"github.com/poiesic/evidex/storage"
)

// Sources returns the storage sources of the configured documents.
func Sources(cfg *config.Config) []storage.Source {
	sources := make([]storage.Source, 0, len(cfg.Corpus.Documents))
	for _, d := range cfg.Corpus.Documents {
		sources = append(sources, storage.Source{
			Doc:         core.DocumentID(d.ID),
			Prefix:      d.Prefix,
			TextPath:    cfg.TextPath(d),
			ExcerptPath: cfg.ExcerptPath(d),
		})
	}
	return sources
}

func documents(cfg *config.Config) []core.DocumentID {
	docs := make([]core.DocumentID, 0, len(cfg.Corpus.Documents))
	for _, d := range cfg.Corpus.Documents {
		docs = append(docs, core.DocumentID(d.ID))
	}
	return docs
}

func prefixes(cfg *config.Config) map[core.DocumentID]string {
	out := make(map[core.DocumentID]string, len(cfg.Corpus.Documents))
	for _, d := range cfg.Corpus.Documents {
		out[core.DocumentID(d.ID)] = d.Prefix
	}
	return out
}

// NewPolicy converts the ranking configuration into a validated policy.
// Topic boosts precede definition zones.
func NewPolicy(cfg *config.Config) (*ranking.Policy, error) {
	r := cfg.Ranking
	policy := &ranking.Policy{
		TitleMatch:           r.TitleMatch,
		QuoteMatch:           r.QuoteMatch,
		QueryContained:       r.QueryContained,
		RawTermWeight:        r.RawTermWeight,
		LengthPenaltyDivisor: r.LengthPenaltyDivisor,
		DocumentWeights:      make(map[core.DocumentID]float64, len(cfg.Corpus.Documents)),
	}
	for _, d := range cfg.Corpus.Documents {
		policy.DocumentWeights[core.DocumentID(d.ID)] = d.Weight
	}
	for _, b := range r.TopicBoosts {
		policy.Boosts = append(policy.Boosts, ranking.TopicBoost{
			Flag:          query.Topic(b.Topic),
			Doc:           core.DocumentID(b.Doc),
			Amount:        b.Amount,
			ConflictsWith: topics(b.Conflicts),
		})
	}
	for _, z := range r.DefinitionZones {
		policy.Boosts = append(policy.Boosts, ranking.DefinitionZone{
			Flag:           query.Topic(z.Topic),
			Doc:            core.DocumentID(z.Doc),
			Primary:        ranking.PageRange{From: z.Primary.From, To: z.Primary.To},
			PrimaryBonus:   z.PrimaryBonus,
			Secondary:      ranking.PageRange{From: z.Secondary.From, To: z.Secondary.To},
			SecondaryBonus: z.SecondaryBonus,
			ConflictsWith:  topics(z.Conflicts),
		})
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

func topics(names []string) []query.Topic {
	out := make([]query.Topic, len(names))
	for i, n := range names {
		out[i] = query.Topic(n)
	}
	return out
}

func extractorOptions(cfg *config.Config) []query.Option {
	detectors := make([]query.TopicDetector, 0, len(cfg.Keywords.Topics))
	for _, t := range cfg.Keywords.Topics {
		detectors = append(detectors, query.TopicDetector{Topic: query.Topic(t.Name), Terms: t.Terms})
	}
	return []query.Option{
		query.WithClusters(cfg.Keywords.Clusters...),
		query.WithCoreTerms(cfg.Keywords.CoreTerms...),
		query.WithTopics(detectors...),
	}
}

func estimatorRules(cfg *config.Config) ([]locate.Rule, error) {
	rules := make([]locate.Rule, 0, len(cfg.Estimator.Rules))
	for i, r := range cfg.Estimator.Rules {
		rule, err := locate.CompileRule(r.Pattern, core.DocumentID(r.Doc), r.PageHints...)
		if err != nil {
			return nil, fmt.Errorf("estimator rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
