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

// Package evidence assembles evidence packs for a resolved page.
//
// A pack combines the curated excerpts of one page with its text, a short
// summary, an optional image URL and the SHA-256 of the page text. The
// excerpts and the page text are loaded concurrently. Documents without a
// curated source get excerpts synthesized from their page text by a
// ChunkSource.
package evidence
