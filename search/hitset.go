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

package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/evidex/core"
)

// hitSet holds at most one Hit per locator.
type hitSet struct {
	index map[string]int
	hits  []core.Hit
}

func newHitSet() *hitSet {
	return &hitSet{index: make(map[string]int)}
}

func (s *hitSet) size() int {
	return len(s.hits)
}

func (s *hitSet) has(loc core.Locator) bool {
	_, ok := s.index[loc.Key()]
	return ok
}

// merge folds hit into the set. On collision the higher score is kept and
// snippets are unioned, capped at core.MaxSnippets.
func (s *hitSet) merge(hit core.Hit) {
	key := hit.Locator.Key()
	i, ok := s.index[key]
	if !ok {
		s.index[key] = len(s.hits)
		s.hits = append(s.hits, core.Hit{
			Locator:  hit.Locator,
			Score:    hit.Score,
			Snippets: unionSnippets(nil, hit.Snippets),
		})
		return
	}
	existing := &s.hits[i]
	existing.Score = max(existing.Score, hit.Score)
	existing.Snippets = unionSnippets(existing.Snippets, hit.Snippets)
}

// insert adds hit only if its locator is absent. Reports whether it was added.
func (s *hitSet) insert(hit core.Hit) bool {
	if s.has(hit.Locator) {
		return false
	}
	s.merge(hit)
	return true
}

// sorted returns the hits in rank order.
func (s *hitSet) sorted() []core.Hit {
	out := make([]core.Hit, len(s.hits))
	copy(out, s.hits)
	slices.SortStableFunc(out, compareHits)
	return out
}

// compareHits orders by score descending, page ascending, document ascending.
func compareHits(a, b core.Hit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Page, b.Page); c != 0 {
		return c
	}
	return cmp.Compare(a.Doc, b.Doc)
}

func unionSnippets(into, from []string) []string {
	if into == nil {
		into = make([]string, 0, core.MaxSnippets)
	}
	for _, s := range from {
		if len(into) >= core.MaxSnippets {
			break
		}
		if !slices.Contains(into, s) {
			into = append(into, s)
		}
	}
	return into
}
