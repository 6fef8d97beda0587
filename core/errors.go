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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidLocator indicates a locator without document or with a non-positive page.
	ErrInvalidLocator = errors.New("invalid locator")

	// ErrEmptyDocument indicates the document identifier is empty.
	ErrEmptyDocument = errors.New("document cannot be empty")

	// ErrInvalidPage indicates a page number that is not a finite positive integer.
	ErrInvalidPage = errors.New("page must be a positive integer")

	// ErrDocumentMismatch indicates a record whose document differs from its source.
	ErrDocumentMismatch = errors.New("record document does not match source")
)
