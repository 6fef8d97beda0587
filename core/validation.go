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

import (
	"fmt"
	"math"
	"strings"
)

// ValidateLocator validates a locator according to domain rules.
//
// Validation rules:
//   - Doc must not be empty
//   - Page must be positive
func ValidateLocator(loc Locator) error {
	if loc.Doc == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLocator, ErrEmptyDocument)
	}
	if loc.Page <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidLocator, ErrInvalidPage, loc.Page)
	}
	return nil
}

// PageFromFloat converts a decoded page number into a page.
// Non-finite, fractional and non-positive values are rejected.
func PageFromFloat(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPage, v)
	}
	return int(v), nil
}

// ExcerptID synthesizes the canonical identifier of the ordinal-th excerpt on a page.
// Format: PREFIX-P0005-T001
func ExcerptID(prefix string, page, ordinal int) string {
	return fmt.Sprintf("%s-P%04d-T%03d", prefix, page, ordinal)
}

// NormalizeExcerptID returns stored when it carries the document prefix,
// otherwise a synthesized identifier. Ordinals are 1-based.
func NormalizeExcerptID(prefix string, page, ordinal int, stored string) string {
	if prefix == "" {
		if stored != "" {
			return stored
		}
		return ExcerptID("X", page, ordinal)
	}
	if strings.HasPrefix(stored, prefix+"-") {
		return stored
	}
	return ExcerptID(prefix, page, ordinal)
}
