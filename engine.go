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

package omnisearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/omnisearch/ai"
	"github.com/poiesic/omnisearch/ai/openai"
	"github.com/poiesic/omnisearch/config"
	"github.com/poiesic/omnisearch/core"
	"github.com/poiesic/omnisearch/dataset"
	"github.com/poiesic/omnisearch/freshness"
	"github.com/poiesic/omnisearch/index"
	"github.com/poiesic/omnisearch/search"
	"github.com/poiesic/omnisearch/storage"
	"github.com/poiesic/omnisearch/storage/badger"
)

var (
	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine closed")

	// ErrEngineNotStarted is returned when waiting on an engine that was
	// never started.
	ErrEngineNotStarted = errors.New("engine not started")
)

// Engine wires the dataset store, the embedding model, the semantic index,
// the searcher and the freshness monitor together.
type Engine struct {
	cfg      *config.Config
	store    *dataset.Store
	model    *ai.Model
	cache    storage.VectorCache
	index    *index.Index
	searcher *search.Searcher
	stats    *search.StatsMonitor
	monitor  *freshness.Monitor
	factory  ai.EmbedderFactory
	logger   *slog.Logger

	indexed chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status summarizes the engine for display.
type Status struct {
	DataDir     string
	LastUpdated time.Time
	Datasets    int
	Indexed     int
	ModelStatus ai.Status
	Model       string
	Queries     search.Stats
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger   *slog.Logger
	factory  ai.EmbedderFactory
	progress io.Writer
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithEmbedderFactory replaces the OpenAI-compatible embedding client.
func WithEmbedderFactory(factory ai.EmbedderFactory) EngineOption {
	return func(o *engineOptions) {
		o.factory = factory
	}
}

// WithProgress writes reindex progress to w.
func WithProgress(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// NewEngine builds an engine from cfg. Nothing is loaded until Start.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.factory == nil {
		options.factory = openai.Factory(cfg.AI())
	}
	logger := options.logger

	e := &Engine{
		cfg:     cfg,
		factory: options.factory,
		stats:   search.NewStatsMonitor(),
		indexed: make(chan struct{}),
		logger:  logger.With("component", "engine"),
	}

	storeOpts := []dataset.Option{
		dataset.WithLogger(logger),
		dataset.WithEncodings(cfg.Encodings...),
	}
	if cfg.PoolSize > 0 {
		storeOpts = append(storeOpts, dataset.WithPoolSize(cfg.PoolSize))
	}
	store, err := dataset.NewStore(cfg.DataDir, storeOpts...)
	if err != nil {
		return nil, err
	}
	e.store = store

	e.model = ai.NewModel(cfg.Embedding.Model, logger)

	indexOpts := []index.Option{
		index.WithLogger(logger),
		index.WithBatchSize(cfg.Embedding.BatchSize),
		index.WithRetry(cfg.Embedding.MaxRetries, cfg.Embedding.RetryDelay.Std()),
	}
	if cfg.PoolSize > 0 {
		indexOpts = append(indexOpts, index.WithPoolSize(cfg.PoolSize))
	}
	if options.progress != nil {
		indexOpts = append(indexOpts, index.WithProgress(options.progress))
	}
	if cfg.VectorCacheDir != "" {
		cache, err := badger.OpenVectorCache(cfg.VectorCacheDir)
		if err != nil {
			e.release()
			return nil, fmt.Errorf("failed to open vector cache: %w", err)
		}
		e.cache = cache
		indexOpts = append(indexOpts, index.WithCache(cache))
	}
	e.index, err = index.New(e.model, indexOpts...)
	if err != nil {
		e.release()
		return nil, err
	}

	e.searcher, err = search.NewSearcher(e.store, e.index, e.model,
		search.WithLogger(logger),
		search.WithMaxResults(cfg.MaxResults),
		search.WithThreshold(cfg.SimilarityThreshold),
		search.WithMonitor(e.stats),
	)
	if err != nil {
		e.release()
		return nil, err
	}

	monitorOpts := []freshness.Option{
		freshness.WithLogger(logger),
		freshness.WithCheckInterval(cfg.CheckInterval.Std()),
		freshness.WithReindex(e.Reindex, cfg.ReindexInterval.Std(), e.model.Ready),
	}
	if cfg.Watch {
		monitorOpts = append(monitorOpts, freshness.WithWatch(cfg.WatchDebounce.Std()))
	}
	e.monitor, err = freshness.New(e.store, e.Reload, monitorOpts...)
	if err != nil {
		e.release()
		return nil, err
	}

	return e, nil
}

// Start loads every dataset, begins loading the embedding model in the
// background and starts the freshness loops. Searches work as soon as Start
// returns; semantic results appear once the model is ready.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if e.started {
		return nil
	}

	if err := e.Reload(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.started = true

	if err := e.model.Load(runCtx, e.factory); err != nil && !errors.Is(err, ai.ErrAlreadyLoaded) {
		e.logger.Error("cannot start model loading", "err", err)
	}

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.reindexWhenReady(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		if err := e.monitor.Run(runCtx); err != nil {
			e.logger.Error("freshness monitor stopped", "err", err)
		}
	}()
	return nil
}

// reindexWhenReady indexes everything once the model finishes loading.
func (e *Engine) reindexWhenReady(ctx context.Context) {
	defer close(e.indexed)
	select {
	case <-ctx.Done():
		return
	case <-e.model.Done():
	}
	if !e.model.Ready() {
		e.logger.Warn("semantic search disabled", "model", e.model.Describe())
		return
	}
	if err := e.Reindex(ctx); err != nil && ctx.Err() == nil {
		e.logger.Error("initial reindex finished with errors", "err", err)
	}
}

// WaitIndexed blocks until the model has finished loading and, if it loaded,
// the first full index pass is done. It returns the model load error, if
// any.
func (e *Engine) WaitIndexed(ctx context.Context) error {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return ErrEngineNotStarted
	}
	select {
	case <-e.indexed:
		return e.model.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload re-reads the data directory and, if the model is ready, re-embeds
// the tables.
func (e *Engine) Reload(ctx context.Context) error {
	if err := e.store.LoadAll(ctx); err != nil {
		return err
	}
	if !e.model.Ready() {
		return nil
	}
	if err := e.Reindex(ctx); err != nil {
		e.logger.Error("reindex after reload finished with errors", "err", err)
	}
	return nil
}

// Reindex re-embeds every loaded table.
func (e *Engine) Reindex(ctx context.Context) error {
	return e.index.Reindex(ctx, e.store)
}

// Search answers a query across every loaded dataset.
func (e *Engine) Search(ctx context.Context, query string, kind core.SearchKind) []core.SearchResult {
	return e.searcher.Search(ctx, query, kind)
}

// Model returns the embedding model container.
func (e *Engine) Model() *ai.Model {
	return e.model
}

// Store returns the dataset store.
func (e *Engine) Store() *dataset.Store {
	return e.store
}

// Status reports what is loaded and indexed.
func (e *Engine) Status() Status {
	return Status{
		DataDir:     e.store.Root(),
		LastUpdated: e.store.LastUpdated(),
		Datasets:    e.store.Len(),
		Indexed:     e.index.Len(),
		ModelStatus: e.model.Status(),
		Model:       e.model.Describe(),
		Queries:     e.stats.Snapshot(),
	}
}

// Close stops the background loops and releases every resource.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	return e.release()
}

func (e *Engine) release() error {
	var errs []error
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.logger.Error("error closing semantic index", "err", err)
			errs = append(errs, err)
		}
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Error("error closing vector cache", "err", err)
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		e.store.Close()
	}
	return errors.Join(errs...)
}
