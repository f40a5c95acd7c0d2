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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/omnisearch"
	"github.com/poiesic/omnisearch/config"
	"github.com/poiesic/omnisearch/core"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "omnisearch",
		Usage: "Search CSV, Excel, JSON and text files by substring and meaning",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Directory holding the datasets",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "vector-cache",
				Usage: "Directory for the persistent vector cache (in memory when unset)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Run a single query and print the results",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Query kind (universal, phone, email, ip)",
						Value:   string(core.SearchUniversal),
					},
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "Maximum number of results; overrides the config file",
					},
					&cli.DurationFlag{
						Name:  "wait-model",
						Usage: "Wait this long for the embedding model so semantic results are included",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Keep datasets fresh and answer queries read line by line from stdin",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Reload on filesystem events as well as on the periodic check",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Load every dataset and embed all tables, reporting progress",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Give up waiting for the embedding model after this long",
						Value: 5 * time.Minute,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Load every dataset and print what was found",
				Action: statusCommand,
			},
		},
	}
}

// loadConfig reads the config file, if any, and applies global flag
// overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	if c.IsSet("vector-cache") {
		cfg.VectorCacheDir = c.String("vector-cache")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = strings.ToLower(c.String("log-level"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func startEngine(ctx context.Context, cfg *config.Config, opts ...omnisearch.EngineOption) (*omnisearch.Engine, error) {
	engine, err := omnisearch.NewEngine(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := engine.Start(ctx); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}
	return engine, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a query is required")
	}
	kind, err := core.ParseSearchKind(c.String("kind"))
	if err != nil {
		return err
	}

	cfg := appConfig(c)
	if c.IsSet("max-results") {
		cfg.MaxResults = c.Int("max-results")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx := c.Context
	engine, err := startEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if wait := c.Duration("wait-model"); wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		if err := engine.WaitIndexed(waitCtx); err != nil {
			slog.Warn("searching without semantic results", "model", engine.Model().Describe(), "err", err)
		}
		cancel()
	}

	results := runSearch(ctx, engine, cfg, query, kind)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, results)
	}
	writeResults(c.App.Writer, results)
	return nil
}

// runSearch applies the configured search timeout around one query.
func runSearch(ctx context.Context, engine *omnisearch.Engine, cfg *config.Config, query string, kind core.SearchKind) []core.SearchResult {
	if timeout := cfg.SearchTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	results := engine.Search(ctx, query, kind)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		slog.Warn("search timed out, results may be incomplete", "query", query, "timeout", cfg.SearchTimeout.Std())
	}
	return results
}

func writeJSON(w io.Writer, results []core.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func writeResults(w io.Writer, results []core.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}
	fmt.Fprintf(w, "Found %d results\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%d: [%0.2f] %s (%s) %s\n", i+1, r.Score, r.Source, r.Origin, r.Payload)
	}
}

// parseQueryLine splits an optional "kind:" prefix from a serve query line.
func parseQueryLine(line string) (string, core.SearchKind) {
	line = strings.TrimSpace(line)
	if prefix, rest, ok := strings.Cut(line, ":"); ok {
		if kind, err := core.ParseSearchKind(prefix); err == nil && strings.TrimSpace(prefix) != "" {
			return strings.TrimSpace(rest), kind
		}
	}
	return line, core.SearchUniversal
}

func serveCommand(c *cli.Context) error {
	cfg := appConfig(c)
	if c.Bool("watch") {
		cfg.Watch = true
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := startEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	st := engine.Status()
	slog.Info("serving", "dataDir", st.DataDir, "datasets", st.Datasets, "model", st.Model)

	return serveQueries(ctx, engine, cfg, c.App.Reader, c.App.Writer)
}

// serveQueries answers one query per input line with one JSON array per
// output line until input ends or ctx is cancelled.
func serveQueries(ctx context.Context, engine *omnisearch.Engine, cfg *config.Config, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			query, kind := parseQueryLine(line)
			if query == "" {
				continue
			}
			if err := enc.Encode(runSearch(ctx, engine, cfg, query, kind)); err != nil {
				return err
			}
		}
	}
}

func indexCommand(c *cli.Context) error {
	cfg := appConfig(c)
	ctx := c.Context

	start := time.Now()
	engine, err := startEngine(ctx, cfg, omnisearch.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}
	defer engine.Close()

	waitCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()
	if err := engine.WaitIndexed(waitCtx); err != nil {
		return fmt.Errorf("embedding model unavailable: %w", err)
	}

	st := engine.Status()
	fmt.Fprintf(c.App.Writer, "Indexed %d of %d datasets in %v\n",
		st.Indexed, st.Datasets, time.Since(start).Round(time.Millisecond))
	return nil
}

func statusCommand(c *cli.Context) error {
	cfg := appConfig(c)
	engine, err := omnisearch.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Load without starting the model or the background loops.
	if err := engine.Store().LoadAll(c.Context); err != nil {
		return err
	}

	w := c.App.Writer
	st := engine.Status()
	fmt.Fprintf(w, "Data directory: %s\n", st.DataDir)
	fmt.Fprintf(w, "Last updated:   %s\n", st.LastUpdated.Format(time.DateTime))
	fmt.Fprintf(w, "Datasets:       %d\n", st.Datasets)
	for _, ds := range engine.Store().Datasets() {
		fmt.Fprintf(w, "  %-40s %-8s %s\n", ds.Name, ds.Kind, describe(ds))
	}
	return nil
}

func describe(ds *core.Dataset) string {
	switch ds.Kind {
	case core.KindTable:
		return fmt.Sprintf("%d rows, %d columns", len(ds.Table.Rows), len(ds.Table.Columns))
	case core.KindText:
		return fmt.Sprintf("%d lines", strings.Count(ds.Text, "\n")+1)
	default:
		return "document"
	}
}
