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

import (
	"testing"
	"time"

	"github.com/poiesic/evidex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRecordRoundTrip(t *testing.T) {
	record := &core.PageRecord{
		Doc:       "言霊秘書.pdf",
		Page:      26,
		Text:      "水火の與合を説く",
		ImagePath: "/var/corpus/khs/0026.png",
	}

	decoded, err := UnmarshalPageRecord(MarshalPageRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestExcerptRoundTrip(t *testing.T) {
	excerpt := &core.Excerpt{
		ID:    "KHS-P0006-T001",
		Doc:   "言霊秘書.pdf",
		Page:  6,
		Title: "核心語: 言霊",
		Quote: "言霊とは",
	}

	decoded, err := UnmarshalExcerpt(MarshalExcerpt(excerpt))
	require.NoError(t, err)
	assert.Equal(t, excerpt, decoded)
}

func TestCheckpointRoundTrip(t *testing.T) {
	checkpoint := &core.Checkpoint{
		Name:        "pages:DocA",
		Fingerprint: core.IDFromContent("DocA"),
		Records:     412,
		UpdatedAt:   time.UnixMicro(time.Now().UnixMicro()).UTC(),
	}

	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(checkpoint))
	require.NoError(t, err)
	assert.Equal(t, checkpoint, decoded)
}

func TestUnmarshal_Truncated(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	data := MarshalExcerpt(&core.Excerpt{ID: "A-P0001-T001", Doc: "DocA", Page: 1, Quote: "quote"})
	_, err = UnmarshalExcerpt(data[:len(data)-3])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
