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

// Package ranking scores candidate pages against an extracted query.
//
// Two Scorer implementations share one Policy. ExcerptScorer rates curated
// excerpts by title and quote matches; PageScorer rates raw page text by
// term frequency with a length penalty. Both multiply their base score by
// the document weight and then add the policy's boost rules.
//
// Boost rules are evaluated in priority order. A rule whose topic flag is
// set claims that topic for the query; a later rule listing a claimed topic
// among its conflicts is skipped. Boosts only apply to candidates with at
// least one keyword match.
package ranking
