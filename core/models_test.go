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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "multibyte content", content: "言霊秘書 第六頁"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestLocator(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.True(t, Locator{Doc: "DocA", Page: 1}.Valid())
		assert.False(t, Locator{Doc: "", Page: 1}.Valid())
		assert.False(t, Locator{Doc: "DocA", Page: 0}.Valid())
	})

	t.Run("key distinguishes documents and pages", func(t *testing.T) {
		a := Locator{Doc: "DocA", Page: 12}
		b := Locator{Doc: "DocA", Page: 1}
		c := Locator{Doc: "DocB", Page: 12}
		assert.NotEqual(t, a.Key(), b.Key())
		assert.NotEqual(t, a.Key(), c.Key())
		assert.Equal(t, a.Key(), Locator{Doc: "DocA", Page: 12}.Key())
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "DocA p.5", Locator{Doc: "DocA", Page: 5}.String())
	})
}

func TestHit_JSON(t *testing.T) {
	hit := Hit{
		Locator:  Locator{Doc: "DocA", Page: 5},
		Score:    12.5,
		Snippets: []string{"fire balance"},
	}

	data, err := json.Marshal(hit)
	require.NoError(t, err)
	assert.JSONEq(t, `{"doc":"DocA","pdfPage":5,"score":12.5,"quoteSnippets":["fire balance"]}`, string(data))
}

func TestPack_JSONOmitsOptionalFields(t *testing.T) {
	pack := Pack{
		Locator:  Locator{Doc: "DocA", Page: 5},
		Laws:     []Excerpt{{ID: "A-P0005-T001", Doc: "DocA", Page: 5, Title: "t", Quote: "q"}},
		PageText: "text",
		Summary:  "summary",
		SHA256:   "abc",
	}

	data, err := json.Marshal(pack)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "imageUrl")
	assert.NotContains(t, decoded, "estimateExplanation")
	assert.Equal(t, false, decoded["isEstimated"])
	laws := decoded["laws"].([]any)
	require.Len(t, laws, 1)
	assert.Equal(t, map[string]any{"id": "A-P0005-T001", "title": "t", "quote": "q"}, laws[0])
}
