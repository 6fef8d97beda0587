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

// Package query turns free-text queries into keyword sets and topic flags.
//
// Normalization applies NFKC compatibility folding, lowercases every rune
// and removes whitespace, control and format characters (zero-width
// spaces, joiners, byte order marks). Matching everywhere else in the
// engine is performed against normalized text, so a keyword produced here
// can be searched for directly.
//
// Keyword expansion works on synonym clusters: when a query mentions any
// spelling in a cluster, every spelling of that cluster becomes a keyword.
// Configured core terms that occur in the query are added next. A query
// that yields nothing falls back to the first cluster, so the keyword set
// is never empty.
package query
