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

package ranking

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/evidex/core"
)

// MaxSnippetRunes bounds the length of one snippet.
const MaxSnippetRunes = 200

// lower lowercases rune by rune so rune offsets in the result match the input.
func lower(text string) string {
	return strings.Map(unicode.ToLower, text)
}

// snippetAround returns up to MaxSnippetRunes runes of text centered on the
// first occurrence of keyword in lowered, the lowercased form of text.
func snippetAround(text, lowered, keyword string) (string, bool) {
	idx := strings.Index(lowered, keyword)
	if idx < 0 {
		return "", false
	}
	runes := []rune(text)
	pos := utf8.RuneCountInString(lowered[:idx])
	width := utf8.RuneCountInString(keyword)

	start := max(0, pos+width/2-MaxSnippetRunes/2)
	end := min(len(runes), start+MaxSnippetRunes)
	start = max(0, end-MaxSnippetRunes)

	snippet := strings.TrimSpace(string(runes[start:end]))
	return snippet, snippet != ""
}

// snippets collects up to core.MaxSnippets distinct snippets.
type snippets struct {
	items []string
}

func (s *snippets) full() bool {
	return len(s.items) >= core.MaxSnippets
}

func (s *snippets) add(snippet string) {
	if s.full() {
		return
	}
	for _, existing := range s.items {
		if existing == snippet {
			return
		}
	}
	s.items = append(s.items, snippet)
}
