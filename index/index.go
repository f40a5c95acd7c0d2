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

package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/omnisearch/ai"
	"github.com/poiesic/omnisearch/core"
	"github.com/poiesic/omnisearch/storage"
	"github.com/poiesic/omnisearch/storage/badger"
)

// Entry holds the row embeddings of one table dataset.
type Entry struct {
	// Hash is the content hash of the file the vectors were computed from.
	Hash string

	// Vectors holds one unit vector per table row, in row order.
	Vectors [][]float32

	IndexedAt time.Time

	keys []core.ID
}

// Source supplies the datasets to reindex. Get reports the dataset currently
// held under a name, so results computed from a replaced version are dropped.
type Source interface {
	Datasets() []*core.Dataset
	Get(name string) (*core.Dataset, bool)
}

// Index keeps one embedding matrix per table dataset. Entries carry the hash
// of the dataset they were built from, so a lookup against a newer version
// of the dataset misses instead of returning misaligned vectors. Writers are
// serialized: only one IndexDataset, ReindexAll or Reindex runs at a time.
type Index struct {
	model      *ai.Model
	cache      storage.VectorCache
	ownsCache  bool
	pool       *ants.Pool
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	progress   io.Writer
	logger     *slog.Logger
	closed     atomic.Bool

	writeMu sync.Mutex

	mu      sync.RWMutex
	entries map[string]*Entry
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// WithPoolSize sets how many datasets are embedded concurrently during a
// reindex.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Index) error {
		pool, err := ants.NewPool(max(size, 1))
		if err != nil {
			return err
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		ix.pool = pool
		return nil
	}
}

// WithCache sets the vector cache used to skip re-embedding unchanged rows.
// The caller keeps ownership of the cache. After every full reindex the
// cache is trimmed to the vectors that live entries reference.
// Default is an in-memory cache owned by the index.
func WithCache(cache storage.VectorCache) Option {
	return func(ix *Index) error {
		ix.cache = cache
		ix.ownsCache = false
		return nil
	}
}

// WithBatchSize sets the number of texts sent per embedding request.
// Default is 100.
func WithBatchSize(size int) Option {
	return func(ix *Index) error {
		if size < 1 {
			return fmt.Errorf("batch size must be greater than 0, got %d", size)
		}
		ix.batchSize = size
		return nil
	}
}

// WithRetry sets the number of attempts per embedding request and the base
// backoff delay.
// Default is 3 attempts starting at 1s.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(ix *Index) error {
		if attempts < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		ix.maxRetries = attempts
		ix.retryDelay = delay
		return nil
	}
}

// WithProgress writes reindex progress to w.
func WithProgress(w io.Writer) Option {
	return func(ix *Index) error {
		ix.progress = w
		return nil
	}
}

// New creates an empty index that embeds through model.
func New(model *ai.Model, opts ...Option) (*Index, error) {
	if model == nil {
		return nil, ErrModelRequired
	}

	ix := &Index{
		model:      model,
		batchSize:  100,
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     slog.Default(),
		entries:    make(map[string]*Entry),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			ix.release()
			return nil, err
		}
	}

	if ix.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
		if err != nil {
			return nil, err
		}
		ix.pool = pool
	}
	if ix.cache == nil {
		cache, err := badger.OpenVectorCache("")
		if err != nil {
			ix.release()
			return nil, fmt.Errorf("failed to open vector cache: %w", err)
		}
		ix.cache = cache
		ix.ownsCache = true
	}

	ix.logger = ix.logger.With("component", "semantic-index")
	return ix, nil
}

// RowTexts joins the string-typed columns of every row with a single space.
// It returns nil when the table has no string-typed columns.
func RowTexts(t *core.Table) []string {
	if t == nil {
		return nil
	}
	cols := t.TextColumns()
	if len(cols) == 0 {
		return nil
	}
	texts := make([]string, len(t.Rows))
	parts := make([]string, 0, len(cols))
	for i, row := range t.Rows {
		parts = parts[:0]
		for _, c := range cols {
			v, _ := row.Get(c)
			parts = append(parts, v)
		}
		texts[i] = strings.Join(parts, " ")
	}
	return texts
}

// IndexDataset embeds every row of a table dataset and replaces its entry.
// It does nothing when the model is not ready or ds is not a table. On
// failure the previous entry is kept.
func (ix *Index) IndexDataset(ctx context.Context, ds *core.Dataset) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	return ix.indexDataset(ctx, ds, nil, nil)
}

// indexDataset embeds ds and stores its entry. When current is set, the
// entry is only stored if current still reports ds as live.
func (ix *Index) indexDataset(ctx context.Context, ds *core.Dataset, tracker *ProgressTracker, current func(*core.Dataset) bool) error {
	if ix.closed.Load() {
		return ErrIndexClosed
	}
	if ds == nil || ds.Kind != core.KindTable {
		return nil
	}
	embedder := ix.model.Embedder()
	if embedder == nil {
		ix.logger.Debug("model not ready, skipping dataset", "dataset", ds.Name)
		return nil
	}

	texts := RowTexts(ds.Table)
	if len(texts) == 0 {
		ix.remove(ds.Name)
		return nil
	}

	start := time.Now()
	keys, vectors, err := ix.embed(ctx, embedder, texts, tracker)
	if err != nil {
		return fmt.Errorf("index %s: %w", ds.Name, err)
	}

	// Checked before taking ix.mu: searches hold the store lock while they
	// call Lookup.
	if current != nil && !current(ds) {
		ix.logger.Debug("dataset replaced while indexing, dropping vectors", "dataset", ds.Name, "hash", ds.Hash)
		return nil
	}

	ix.mu.Lock()
	ix.entries[ds.Name] = &Entry{Hash: ds.Hash, Vectors: vectors, IndexedAt: time.Now(), keys: keys}
	ix.mu.Unlock()

	ix.logger.Info("dataset indexed",
		"dataset", ds.Name,
		"rows", len(vectors),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// embed returns the cache key and one normalized vector per text, reusing
// cached vectors and sending only misses to the embedder.
func (ix *Index) embed(ctx context.Context, embedder ai.Embedder, texts []string, tracker *ProgressTracker) ([]core.ID, [][]float32, error) {
	ids := make([]core.ID, len(texts))
	pending := make(map[core.ID]string, len(texts))
	for i, text := range texts {
		ids[i] = ix.cacheKey(text)
		pending[ids[i]] = text
	}

	unique := make([]core.ID, 0, len(pending))
	for id := range pending {
		unique = append(unique, id)
	}
	known, err := ix.cache.GetVectors(ctx, unique...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		ix.logger.Warn("vector cache read failed", "err", err)
		known = map[core.ID][]float32{}
	}

	missIDs := make([]core.ID, 0, len(pending))
	missTexts := make([]string, 0, len(pending))
	for _, id := range unique {
		if _, ok := known[id]; !ok {
			missIDs = append(missIDs, id)
			missTexts = append(missTexts, pending[id])
		}
	}
	if tracker != nil {
		tracker.Add(len(texts) - len(missTexts))
	}

	for start := 0; start < len(missTexts); start += ix.batchSize {
		end := min(start+ix.batchSize, len(missTexts))
		batch := missTexts[start:end]

		var embeddings [][]float32
		err := ai.RetryWithBackoff(ctx, func() error {
			var err error
			embeddings, err = embedder.EmbedTexts(ctx, batch)
			return err
		}, ix.maxRetries, ix.retryDelay)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", ix.maxRetries, err)
		}
		if len(embeddings) != len(batch) {
			return nil, nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(batch), len(embeddings))
		}

		fresh := make(map[core.ID][]float32, len(batch))
		for i, vec := range embeddings {
			id := missIDs[start+i]
			fresh[id] = ai.NormalizeVector(vec)
			known[id] = fresh[id]
		}
		if err := ix.cache.PutVectors(ctx, fresh); err != nil {
			ix.logger.Warn("vector cache write failed", "err", err)
		}
		if tracker != nil {
			tracker.Add(len(batch))
		}
	}

	vectors := make([][]float32, len(texts))
	for i, id := range ids {
		vectors[i] = known[id]
	}
	return ids, vectors, nil
}

func (ix *Index) cacheKey(text string) core.ID {
	return core.IDFromContent(ix.model.Name() + "\x00" + text)
}

// Reindex takes a snapshot of src once no other writer is running and
// reindexes it like ReindexAll. Vectors for a dataset that src replaced
// during the run are dropped; the reindex that follows the replacement
// stores the new ones.
func (ix *Index) Reindex(ctx context.Context, src Source) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	current := func(ds *core.Dataset) bool {
		live, ok := src.Get(ds.Name)
		return ok && live.Hash == ds.Hash
	}
	return ix.reindex(ctx, src.Datasets(), current)
}

// ReindexAll embeds every table in datasets concurrently and drops entries
// for datasets that are no longer present. Failures are logged and joined
// into the returned error; a failed dataset keeps its previous entry.
func (ix *Index) ReindexAll(ctx context.Context, datasets []*core.Dataset) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	return ix.reindex(ctx, datasets, nil)
}

func (ix *Index) reindex(ctx context.Context, datasets []*core.Dataset, current func(*core.Dataset) bool) error {
	if ix.closed.Load() {
		return ErrIndexClosed
	}
	if !ix.model.Ready() {
		ix.logger.Debug("model not ready, skipping reindex")
		return nil
	}

	names := make([]string, 0, len(datasets))
	tables := make([]*core.Dataset, 0, len(datasets))
	totalRows := 0
	for _, ds := range datasets {
		names = append(names, ds.Name)
		if ds.Kind == core.KindTable && ds.Table != nil {
			tables = append(tables, ds)
			totalRows += len(ds.Table.Rows)
		}
	}
	if pruned := ix.Prune(names...); pruned > 0 {
		ix.logger.Info("pruned index entries", "count", pruned)
	}

	var tracker *ProgressTracker
	if ix.progress != nil {
		tracker = NewProgressTracker(ix.progress, "reindex", totalRows, ix.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	start := time.Now()
	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		failed []error
	)
	for _, ds := range tables {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("index %s: panic: %v", ds.Name, r)
					ix.logger.Error("indexing panicked", "dataset", ds.Name, "panic", r)
					errMu.Lock()
					failed = append(failed, err)
					errMu.Unlock()
				}
			}()
			if err := ix.indexDataset(ctx, ds, tracker, current); err != nil {
				ix.logger.Error("failed to index dataset", "dataset", ds.Name, "err", err)
				errMu.Lock()
				failed = append(failed, err)
				errMu.Unlock()
			}
		}
		if err := ix.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	if ctx.Err() == nil {
		ix.trimCache(ctx)
	}

	ix.logger.Info("reindex complete",
		"datasets", len(tables),
		"failed", len(failed),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return errors.Join(failed...)
}

// trimCache drops cached vectors that no entry references.
func (ix *Index) trimCache(ctx context.Context) {
	ix.mu.RLock()
	keep := make(map[core.ID]struct{})
	for _, e := range ix.entries {
		for _, k := range e.keys {
			keep[k] = struct{}{}
		}
	}
	ix.mu.RUnlock()

	removed, err := ix.cache.Retain(ctx, keep)
	if err != nil {
		ix.logger.Warn("vector cache trim failed", "err", err)
		return
	}
	if removed > 0 {
		ix.logger.Debug("trimmed vector cache", "removed", removed, "kept", len(keep))
	}
}

// Lookup returns the row vectors for ds if they were computed from the same
// file contents and match its row count.
func (ix *Index) Lookup(ds *core.Dataset) ([][]float32, bool) {
	if ds == nil || ds.Kind != core.KindTable || ds.Table == nil {
		return nil, false
	}
	ix.mu.RLock()
	entry, ok := ix.entries[ds.Name]
	ix.mu.RUnlock()
	if !ok || entry.Hash != ds.Hash || len(entry.Vectors) != len(ds.Table.Rows) {
		return nil, false
	}
	return entry.Vectors, true
}

// Entry returns the stored entry for a dataset name.
func (ix *Index) Entry(name string) (*Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[name]
	return e, ok
}

// Prune drops every entry whose name is not in keep and reports how many
// were removed.
func (ix *Index) Prune(keep ...string) int {
	live := make(map[string]struct{}, len(keep))
	for _, n := range keep {
		live[n] = struct{}{}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	removed := 0
	for name := range ix.entries {
		if _, ok := live[name]; !ok {
			delete(ix.entries, name)
			removed++
		}
	}
	return removed
}

func (ix *Index) remove(name string) {
	ix.mu.Lock()
	delete(ix.entries, name)
	ix.mu.Unlock()
}

// Len returns the number of indexed datasets.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Close releases the worker pool and, if the index opened it, the vector
// cache.
func (ix *Index) Close() error {
	if !ix.closed.CompareAndSwap(false, true) {
		return nil
	}
	return ix.release()
}

func (ix *Index) release() error {
	if ix.pool != nil {
		ix.pool.Release()
	}
	if ix.ownsCache && ix.cache != nil {
		return ix.cache.Close()
	}
	return nil
}
