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

// Package ingestion imports JSONL corpora into a snapshot store.
//
// The Importer reads each document's page-text and curated-excerpt files,
// replaces the stored records of that document, and records a BLAKE2b
// fingerprint of the file as a checkpoint. Sources whose fingerprint has not
// changed since the last import are skipped.
//
// Files are parsed concurrently on a worker pool. Writes to the store are
// serialized.
package ingestion
