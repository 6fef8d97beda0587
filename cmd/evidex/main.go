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

// Command evidex retrieves ranked evidence from a page corpus.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/evidex"
	"github.com/poiesic/evidex/config"
	"github.com/poiesic/evidex/core"
	"github.com/poiesic/evidex/ingestion"
	"github.com/poiesic/evidex/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "evidex",
		Usage:     "Deterministic evidence retrieval over page corpora",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"EVIDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "retrieve",
				Usage:     "Rank the pages most relevant to a query",
				ArgsUsage: "QUERY...",
				Action:    retrieveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of hits",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Log every retrieval stage at debug level",
					},
				},
			},
			{
				Name:      "pack",
				Usage:     "Build the evidence pack of a page, or of the page a message refers to",
				ArgsUsage: "[MESSAGE...]",
				Action:    packCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "doc",
						Aliases: []string{"d"},
						Usage:   "Document ID",
					},
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Usage:   "1-based PDF page",
					},
				},
			},
			{
				Name:      "estimate",
				Usage:     "Guess the page a message refers to",
				ArgsUsage: "MESSAGE...",
				Action:    estimateCommand,
			},
			{
				Name:   "import",
				Usage:  "Import the JSONL corpus into the badger snapshot",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-import sources whose fingerprint is unchanged",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Report progress on stderr",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "status",
						Usage: "Print the last import of every source instead of importing",
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func openEngine(c *cli.Context) (*evidex.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return evidex.Open(cfg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func messageArg(c *cli.Context) string {
	return strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
}

func retrieveCommand(c *cli.Context) error {
	text := messageArg(c)
	if text == "" {
		return fmt.Errorf("a query is required")
	}
	topK := c.Int("top-k")
	if topK < 1 {
		return fmt.Errorf("top-k must be at least 1")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	var monitor search.Monitor
	if c.Bool("trace") {
		monitor = search.NewLogMonitor(slog.Default())
	}
	result, err := engine.RetrieveWithMonitor(c.Context, text, topK, monitor)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, result)
}

type estimatedPack struct {
	Estimate *core.Estimate `json:"estimate"`
	Pack     *core.Pack     `json:"pack"`
}

func packCommand(c *cli.Context) error {
	doc, page, text := c.String("doc"), c.Int("page"), messageArg(c)
	explicit := doc != "" || c.IsSet("page")
	switch {
	case explicit && text != "":
		return fmt.Errorf("give either --doc and --page or a message, not both")
	case !explicit && text == "":
		return fmt.Errorf("--doc and --page or a message are required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if explicit {
		pack, err := engine.BuildPack(c.Context, core.DocumentID(doc), page, false, "")
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, pack)
	}

	pack, estimate, err := engine.PackFor(c.Context, text)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, estimatedPack{Estimate: estimate, Pack: pack})
}

func estimateCommand(c *cli.Context) error {
	text := messageArg(c)
	if text == "" {
		return fmt.Errorf("a message is required")
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()
	return writeJSON(c.App.Writer, engine.Estimate(text))
}

func importCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Corpus.Backend = config.BackendBadger
	if err := os.MkdirAll(cfg.SnapshotDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	engine, err := evidex.Open(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := []ingestion.Option{ingestion.WithForce(c.Bool("force"))}
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	importer, err := engine.NewImporter(opts...)
	if err != nil {
		return err
	}
	defer importer.Release()

	if c.Bool("status") {
		status, err := importer.Status(c.Context)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, status)
	}

	slog.Info("importing corpus", "snapshot", cfg.SnapshotDir(), "documents", len(cfg.Corpus.Documents))
	report, err := importer.Import(c.Context)
	if report != nil {
		if writeErr := writeJSON(c.App.Writer, report); writeErr != nil && err == nil {
			err = writeErr
		}
	}
	return err
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	writer := c.App.ErrWriter
	if writer == nil {
		writer = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
