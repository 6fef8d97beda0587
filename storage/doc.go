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

// Package storage provides the corpus storage abstraction layer for evidex.
//
// This package defines the read interfaces the retrieval engine depends on,
// decoupling scoring and pack assembly from where corpus records live. Two
// backends implement them:
//
//   - jsonl: streams the line-delimited JSON files produced by ingestion ETL
//   - badger: an imported snapshot of the same records with indexed page lookups
//
// # Sources
//
// Each configured document has up to two sources: a page-text source and a
// curated-excerpt source. A source that does not exist is reported as
// ErrSourceUnavailable; callers on the query path treat that as an empty
// source rather than an error.
//
// # Scanning
//
// Scan methods stream records in storage order and invoke a callback per
// record. Returning ErrStopScan from the callback ends the scan early without
// error. Malformed records are skipped by the backend and never reach the
// callback.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use; the engine scans
// several documents in parallel.
package storage
