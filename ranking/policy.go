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
	"fmt"
	"math"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/query"
)

const (
	DefaultTitleMatch           = 8.0
	DefaultQuoteMatch           = 3.0
	DefaultQueryContained       = 15.0
	DefaultRawTermWeight        = 10.0
	DefaultLengthPenaltyDivisor = 2000

	// MinContainedQueryRunes is the query length a quote must exceed
	// before whole-query containment earns a bonus.
	MinContainedQueryRunes = 5
)

// Policy holds the ranking constants shared by every scorer.
// A Policy must not be modified once scorers use it.
type Policy struct {
	TitleMatch     float64
	QuoteMatch     float64
	QueryContained float64

	RawTermWeight        float64
	LengthPenaltyDivisor int

	// DocumentWeights multiplies base scores per document. Missing documents weigh 1.
	DocumentWeights map[core.DocumentID]float64

	// Boosts are evaluated in order.
	Boosts []BoostRule
}

// DefaultPolicy returns a policy with default weights and no boosts.
func DefaultPolicy() *Policy {
	return &Policy{
		TitleMatch:           DefaultTitleMatch,
		QuoteMatch:           DefaultQuoteMatch,
		QueryContained:       DefaultQueryContained,
		RawTermWeight:        DefaultRawTermWeight,
		LengthPenaltyDivisor: DefaultLengthPenaltyDivisor,
		DocumentWeights:      make(map[core.DocumentID]float64),
	}
}

// Validate checks that weights are finite and non-negative.
func (p *Policy) Validate() error {
	weights := map[string]float64{
		"title_match":     p.TitleMatch,
		"quote_match":     p.QuoteMatch,
		"query_contained": p.QueryContained,
		"raw_term_weight": p.RawTermWeight,
	}
	for doc, w := range p.DocumentWeights {
		weights["weight of "+string(doc)] = w
	}
	for name, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidPolicy, name, w)
		}
	}
	if p.LengthPenaltyDivisor <= 0 {
		return fmt.Errorf("%w: length penalty divisor must be positive", ErrInvalidPolicy)
	}
	for i, rule := range p.Boosts {
		if rule == nil {
			return fmt.Errorf("%w: boost %d is nil", ErrInvalidPolicy, i)
		}
		if err := rule.validate(); err != nil {
			return fmt.Errorf("%w: boost %d: %w", ErrInvalidPolicy, i, err)
		}
	}
	return nil
}

// Weight returns the importance weight of doc.
func (p *Policy) Weight(doc core.DocumentID) float64 {
	if w, ok := p.DocumentWeights[doc]; ok {
		return w
	}
	return 1
}

// finalize applies the document weight and boosts to a base score.
// Candidates without a keyword match are never boosted.
func (p *Policy) finalize(q query.Query, loc core.Locator, base float64, matched bool) float64 {
	score := base * p.Weight(loc.Doc)
	if !matched {
		return score
	}
	return score + p.boost(q, loc)
}

func (p *Policy) boost(q query.Query, loc core.Locator) float64 {
	if len(p.Boosts) == 0 {
		return 0
	}
	claimed := make(map[query.Topic]bool, len(p.Boosts))
	total := 0.0
	for _, rule := range p.Boosts {
		topic := rule.Topic()
		if !q.Has(topic) || anyClaimed(claimed, rule.Conflicts()) {
			continue
		}
		claimed[topic] = true
		if bonus, ok := rule.Bonus(loc); ok {
			total += bonus
		}
	}
	return total
}

func anyClaimed(claimed map[query.Topic]bool, topics []query.Topic) bool {
	for _, t := range topics {
		if claimed[t] {
			return true
		}
	}
	return false
}
