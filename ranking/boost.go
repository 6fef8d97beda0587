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
	"errors"
	"math"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/query"
)

// BoostRule adds a bonus to candidates of queries flagged with its topic.
type BoostRule interface {
	// Topic is the flag that activates the rule.
	Topic() query.Topic
	// Conflicts lists topics that suppress the rule once claimed by an
	// earlier rule.
	Conflicts() []query.Topic
	// Bonus returns the amount added to the candidate at loc, if any.
	Bonus(loc core.Locator) (float64, bool)

	validate() error
}

var (
	_ BoostRule = TopicBoost{}
	_ BoostRule = DefinitionZone{}
)

// TopicBoost favors one document for queries about a topic.
type TopicBoost struct {
	Flag          query.Topic
	Doc           core.DocumentID
	Amount        float64
	ConflictsWith []query.Topic
}

func (b TopicBoost) Topic() query.Topic       { return b.Flag }
func (b TopicBoost) Conflicts() []query.Topic { return b.ConflictsWith }

func (b TopicBoost) Bonus(loc core.Locator) (float64, bool) {
	if loc.Doc != b.Doc {
		return 0, false
	}
	return b.Amount, true
}

func (b TopicBoost) validate() error {
	if b.Flag == "" || b.Doc == "" {
		return errors.New("topic boost needs a topic and a document")
	}
	return checkAmount(b.Amount)
}

// PageRange is an inclusive page interval. The zero value contains nothing.
type PageRange struct {
	From int
	To   int
}

// Contains reports whether page lies inside the range.
func (r PageRange) Contains(page int) bool {
	return r.From > 0 && page >= r.From && page <= r.To
}

// DefinitionZone favors the pages of a document that define a topic.
// Pages in Primary earn PrimaryBonus; other pages in Secondary earn SecondaryBonus.
type DefinitionZone struct {
	Flag           query.Topic
	Doc            core.DocumentID
	Primary        PageRange
	PrimaryBonus   float64
	Secondary      PageRange
	SecondaryBonus float64
	ConflictsWith  []query.Topic
}

func (z DefinitionZone) Topic() query.Topic       { return z.Flag }
func (z DefinitionZone) Conflicts() []query.Topic { return z.ConflictsWith }

func (z DefinitionZone) Bonus(loc core.Locator) (float64, bool) {
	if loc.Doc != z.Doc {
		return 0, false
	}
	switch {
	case z.Primary.Contains(loc.Page):
		return z.PrimaryBonus, true
	case z.Secondary.Contains(loc.Page):
		return z.SecondaryBonus, true
	}
	return 0, false
}

func (z DefinitionZone) validate() error {
	if z.Flag == "" || z.Doc == "" {
		return errors.New("definition zone needs a topic and a document")
	}
	for _, r := range []PageRange{z.Primary, z.Secondary} {
		if r.From < 0 || r.To < r.From {
			return errors.New("definition zone range is inverted or negative")
		}
	}
	if err := checkAmount(z.PrimaryBonus); err != nil {
		return err
	}
	return checkAmount(z.SecondaryBonus)
}

func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.New("boost amount must be finite")
	}
	return nil
}
