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

package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrSourceUnavailable indicates that a configured source does not exist.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrUnknownDocument indicates a document that is not configured.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrStopScan is returned by scan callbacks to end a scan early.
	ErrStopScan = errors.New("stop scan")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidCheckpoint indicates a checkpoint without a name.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
