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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/ingestion"
	"github.com/poiesic/evidex/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

// writeCorpus creates a one-document corpus and returns its config path.
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "khs_text.jsonl"),
		`{"doc":"言霊秘書.pdf","pdfPage":6,"text":"言霊とは水火の法則である。"}`,
		`{"doc":"言霊秘書.pdf","pdfPage":7,"text":"別の頁。"}`,
	)
	writeFile(t, filepath.Join(dir, "khs_laws.jsonl"),
		`{"doc":"言霊秘書.pdf","pdfPage":6,"title":"核心語: 言霊","quote":"言霊は水火なり"}`,
	)
	path := filepath.Join(dir, "evidex.yaml")
	writeFile(t, path,
		"corpus:",
		"  root: "+dir,
		"  documents:",
		"    - id: 言霊秘書.pdf",
		"      prefix: KHS",
		"      text_file: khs_text.jsonl",
		"      excerpt_file: khs_laws.jsonl",
		"keywords:",
		"  clusters:",
		"    - [言霊, ことだま]",
		"estimator:",
		"  rules:",
		"    - pattern: 言霊",
		"      doc: 言霊秘書.pdf",
		"      page_hints: [6]",
		"workers:",
		"  pool_size: 2",
	)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)
	err := app.Run(append([]string{"evidex", "--log-level", "error"}, args...))
	return stdout.String(), err
}

func TestRetrieveCommand(t *testing.T) {
	cfgPath := writeCorpus(t)

	t.Run("prints ranked hits", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "retrieve", "--top-k", "3", "言霊とは")
		require.NoError(t, err)

		var result search.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		require.NotEmpty(t, result.Hits)
		assert.Equal(t, core.Locator{Doc: "言霊秘書.pdf", Page: 6}, result.Hits[0].Locator)
		assert.Contains(t, out, `"pdfPage": 6`)
		assert.Contains(t, out, `"quoteSnippets"`)
	})

	t.Run("query required", func(t *testing.T) {
		_, err := run(t, "--config", cfgPath, "retrieve")
		require.Error(t, err)
	})

	t.Run("top-k must be positive", func(t *testing.T) {
		_, err := run(t, "--config", cfgPath, "retrieve", "--top-k", "0", "言霊")
		require.Error(t, err)
	})
}

func TestPackCommand(t *testing.T) {
	cfgPath := writeCorpus(t)

	t.Run("explicit page", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "pack", "--doc", "言霊秘書.pdf", "--page", "6")
		require.NoError(t, err)

		var pack core.Pack
		require.NoError(t, json.Unmarshal([]byte(out), &pack))
		assert.Equal(t, 6, pack.Page)
		assert.Equal(t, "Covers 言霊.", pack.Summary)
		require.Len(t, pack.Laws, 1)
		assert.Equal(t, "KHS-P0006-T001", pack.Laws[0].ID)
		assert.False(t, pack.IsEstimated)
	})

	t.Run("estimated from message", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "pack", "言霊について教えて")
		require.NoError(t, err)

		var got estimatedPack
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.NotNil(t, got.Estimate)
		require.NotNil(t, got.Pack)
		assert.Equal(t, 6, got.Estimate.Page)
		assert.True(t, got.Pack.IsEstimated)
		assert.NotEmpty(t, got.Pack.EstimateExplanation)
	})

	t.Run("missing page prints null", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "pack", "--doc", "言霊秘書.pdf", "--page", "99")
		require.NoError(t, err)
		assert.Equal(t, "null\n", out)
	})

	t.Run("locator and message are exclusive", func(t *testing.T) {
		_, err := run(t, "--config", cfgPath, "pack", "--doc", "言霊秘書.pdf", "--page", "6", "言霊")
		require.Error(t, err)
	})

	t.Run("target required", func(t *testing.T) {
		_, err := run(t, "--config", cfgPath, "pack")
		require.Error(t, err)
	})
}

func TestEstimateCommand(t *testing.T) {
	cfgPath := writeCorpus(t)

	out, err := run(t, "--config", cfgPath, "estimate", "nothing in particular")
	require.NoError(t, err)

	var estimate core.Estimate
	require.NoError(t, json.Unmarshal([]byte(out), &estimate))
	assert.Equal(t, core.Locator{Doc: "言霊秘書.pdf", Page: 1}, estimate.Locator)
	assert.Contains(t, estimate.Explanation, "no topic pattern matched")
}

func TestImportCommand(t *testing.T) {
	cfgPath := writeCorpus(t)

	out, err := run(t, "--config", cfgPath, "import", "--status")
	require.NoError(t, err)
	var status []ingestion.SourceStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.Len(t, status, 2)
	assert.False(t, status[0].Imported)

	out, err = run(t, "--config", cfgPath, "import", "--progress=false")
	require.NoError(t, err)

	var report ingestion.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Sources, 2)
	assert.Equal(t, 2, report.Sources[0].Records)
	assert.Equal(t, 1, report.Sources[1].Records)

	out, err = run(t, "--config", cfgPath, "import", "--progress=false")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Sources[0].Unchanged)

	out, err = run(t, "--config", cfgPath, "import", "--status")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.Len(t, status, 2)
	assert.Equal(t, ingestion.KindPages, status[0].Kind)
	assert.True(t, status[0].Imported)
	assert.Equal(t, 2, status[0].Records)
	assert.NotEmpty(t, status[0].Fingerprint)
	assert.True(t, status[1].Imported)
	assert.Equal(t, 1, status[1].Records)

	t.Setenv("EVIDEX_CORPUS_BACKEND", "badger")
	out, err = run(t, "--config", cfgPath, "retrieve", "言霊")
	require.NoError(t, err)
	assert.Contains(t, out, `"pdfPage": 6`)
}

func TestSetupLogger(t *testing.T) {
	newTestApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
		t.Run(level, func(t *testing.T) {
			require.NoError(t, newTestApp().Run([]string{"test", "--log-level", level}))
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newTestApp().Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
