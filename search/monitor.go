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

package search

import (
	"log/slog"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/query"
)

// Monitor receives callbacks at each stage of a retrieval.
// Callbacks are invoked from the goroutine that called Retrieve.
type Monitor interface {
	Start(q query.Query, topK int)
	SourceDegraded(doc core.DocumentID, kind string, err error)
	AfterCuratedPass(hits []core.Hit)
	FallbackHit(hit core.Hit)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ query.Query, _ int)                       {}
func (n *noopMonitor) SourceDegraded(_ core.DocumentID, _ string, _ error) {}
func (n *noopMonitor) AfterCuratedPass(_ []core.Hit)                    {}
func (n *noopMonitor) FallbackHit(_ core.Hit)                           {}
func (n *noopMonitor) Finish(_ *Result)                                 {}

// LogMonitor traces every retrieval stage at debug level.
type LogMonitor struct {
	logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

// NewLogMonitor creates a LogMonitor writing to logger, or slog.Default() if nil.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger}
}

func (m *LogMonitor) Start(q query.Query, topK int) {
	m.logger.Debug("retrieval started", "normalized", q.Normalized, "keywords", q.Keywords, "topK", topK)
}

func (m *LogMonitor) SourceDegraded(doc core.DocumentID, kind string, err error) {
	m.logger.Debug("source degraded to empty", "doc", doc, "kind", kind, "err", err)
}

func (m *LogMonitor) AfterCuratedPass(hits []core.Hit) {
	m.logger.Debug("curated pass finished", "hits", len(hits))
}

func (m *LogMonitor) FallbackHit(hit core.Hit) {
	m.logger.Debug("fallback hit", "locator", hit.Locator.String(), "score", hit.Score)
}

func (m *LogMonitor) Finish(result *Result) {
	m.logger.Debug("retrieval finished", "hits", len(result.Hits), "confidence", result.Confidence)
}
