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

// Package search ranks corpus pages for a free-text query.
//
// The Retriever runs two passes over the configured documents:
//   - Curated pass: every document's curated excerpts are scored
//     concurrently and merged per page
//   - Fallback pass: when fewer than topK pages were found, raw page text is
//     scanned document by document, skipping pages the curated pass already
//     resolved, until topK pages are known
//
// Hits are ordered by score descending, then page ascending, then document
// ascending. A missing or unreadable source contributes nothing; only
// context cancellation and an invalid topK are reported as errors.
package search
