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

package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/evidex/core"
)

const (
	pageRecordPrefix    = "corpag"
	excerptRecordPrefix = "corexc"
	sourceMarkerPrefix  = "corsrc"
	checkpointPrefix    = "impchk:"

	// keySep terminates the document ID inside composite keys so that
	// one document name cannot be a key prefix of another.
	keySep = 0x00
)

// Source kinds recorded by source markers.
const (
	sourceKindPages    = "pages"
	sourceKindExcerpts = "excerpts"
)

// makeDocPrefix generates the partial key shared by all records of doc.
// Format: prefix:doc\x00
func makeDocPrefix(prefix string, doc core.DocumentID) []byte {
	buf := make([]byte, 0, len(prefix)+len(doc)+2)
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	buf = append(buf, doc...)
	return append(buf, keySep)
}

// makePageKey generates a key for a page record.
// Format: prefix:doc\x00page
func makePageKey(doc core.DocumentID, page int) []byte {
	buf := makeDocPrefix(pageRecordPrefix, doc)
	// BigEndian keeps pages in numeric order under lexicographic iteration
	return binary.BigEndian.AppendUint32(buf, uint32(page))
}

// makePartialExcerptKey generates a partial key for the excerpts of one page.
// Format: prefix:doc\x00page
func makePartialExcerptKey(doc core.DocumentID, page int) []byte {
	buf := makeDocPrefix(excerptRecordPrefix, doc)
	return binary.BigEndian.AppendUint32(buf, uint32(page))
}

// makeExcerptKey generates a key for an excerpt.
// seq is the position of the excerpt in its source file.
// Format: prefix:doc\x00page seq
func makeExcerptKey(doc core.DocumentID, page, seq int) []byte {
	return binary.BigEndian.AppendUint32(makePartialExcerptKey(doc, page), uint32(seq))
}

// makeSourceKey generates the marker key written when a source is imported.
func makeSourceKey(kind string, doc core.DocumentID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", sourceMarkerPrefix, kind, doc))
}

// makeCheckpointKey generates a key for import checkpoints.
// Format: impchk:name
func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + name)
}
