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
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/omnisearch/ai"
	"github.com/poiesic/omnisearch/core"
)

const (
	// DefaultMaxResults caps the number of results returned by one search.
	DefaultMaxResults = 50

	// DefaultThreshold is the minimum cosine similarity for a semantic hit.
	DefaultThreshold float32 = 0.3
)

// Source exposes a consistent view of the loaded datasets. fn runs while
// the datasets cannot be replaced.
type Source interface {
	View(fn func(datasets []*core.Dataset))
}

// VectorIndex returns the row embeddings of a table dataset when they are
// current for that dataset.
type VectorIndex interface {
	Lookup(ds *core.Dataset) ([][]float32, bool)
}

// Searcher runs lexical and semantic search across every loaded dataset and
// merges the hits into one ranked list.
type Searcher struct {
	source     Source
	index      VectorIndex
	model      *ai.Model
	maxResults int
	threshold  float32
	monitor    Monitor
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMaxResults sets the global result cap.
// Default is 50.
func WithMaxResults(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return ErrInvalidMaxResults
		}
		s.maxResults = n
		return nil
	}
}

// WithThreshold sets the minimum cosine similarity for semantic hits.
// Default is 0.3.
func WithThreshold(threshold float32) Option {
	return func(s *Searcher) error {
		if threshold < -1 || threshold > 1 {
			return ErrInvalidThreshold
		}
		s.threshold = threshold
		return nil
	}
}

// WithMonitor sets the monitor used when a search is not given its own.
func WithMonitor(monitor Monitor) Option {
	return func(s *Searcher) error {
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(source Source, index VectorIndex, model *ai.Model, opts ...Option) (*Searcher, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if model == nil {
		return nil, ErrModelRequired
	}

	s := &Searcher{
		source:     source,
		index:      index,
		model:      model,
		maxResults: DefaultMaxResults,
		threshold:  DefaultThreshold,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// MaxResults returns the global result cap.
func (s *Searcher) MaxResults() int {
	return s.maxResults
}

// Search answers query against the current datasets. kind only labels the
// query for monitoring. Search never fails: datasets that cannot be searched
// are logged and skipped, and an empty query yields no results.
func (s *Searcher) Search(ctx context.Context, query string, kind core.SearchKind) []core.SearchResult {
	return s.SearchWithMonitor(ctx, query, kind, nil)
}

// SearchWithMonitor is Search with a per-call monitor. A nil monitor falls
// back to the one set with WithMonitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, kind core.SearchKind, monitor Monitor) (results []core.SearchResult) {
	if monitor == nil {
		monitor = s.monitor
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search panicked", "query", query, "panic", r)
			results = []core.SearchResult{}
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return []core.SearchResult{}
	}

	start := time.Now()
	monitor.Start(query, kind)
	needle := strings.ToLower(query)
	queryVec := s.embedQuery(ctx, query)

	var lexical, semantic []core.SearchResult
	s.source.View(func(datasets []*core.Dataset) {
		lexical = s.lexicalPhase(ctx, datasets, needle)
		monitor.AfterLexical(lexical)

		if queryVec != nil {
			semantic = s.semanticPhase(ctx, datasets, queryVec)
			monitor.AfterSemantic(semantic)
		}
	})

	combined := append(lexical, semantic...)
	if limit := 2 * s.maxResults; len(combined) > limit {
		combined = combined[:limit]
	}
	results = s.merge(combined)
	monitor.Finish(results)

	s.logger.Debug("search complete",
		"query", query,
		"kind", kind,
		"lexical", len(lexical),
		"semantic", len(semantic),
		"results", len(results),
		"elapsed", time.Since(start).Round(time.Microsecond))
	return results
}

// embedQuery returns the unit query vector, or nil when semantic search is
// unavailable.
func (s *Searcher) embedQuery(ctx context.Context, query string) []float32 {
	embedder := s.model.Embedder()
	if embedder == nil {
		return nil
	}
	vec, err := embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Warn("error generating embedding for query, skipping semantic search", "err", err)
		return nil
	}
	if len(vec) == 0 {
		return nil
	}
	return ai.NormalizeVector(vec)
}

func (s *Searcher) lexicalPhase(ctx context.Context, datasets []*core.Dataset, needle string) []core.SearchResult {
	var results []core.SearchResult
	for _, ds := range datasets {
		if len(results) >= s.maxResults {
			break
		}
		if ctx.Err() != nil {
			s.logger.Debug("search cancelled during lexical phase", "err", ctx.Err())
			break
		}
		results = append(results, s.searchDataset(ds, needle)...)
	}
	return results
}

func (s *Searcher) searchDataset(ds *core.Dataset, needle string) (results []core.SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dataset search failed", "dataset", ds.Name, "panic", r)
			results = nil
		}
	}()

	switch ds.Kind {
	case core.KindText:
		return searchText(ds, needle, s.maxResults)
	case core.KindTable:
		return searchTable(ds, needle, s.maxResults)
	case core.KindDocument:
		return searchDocument(ds, needle)
	}
	return nil
}

func (s *Searcher) semanticPhase(ctx context.Context, datasets []*core.Dataset, queryVec []float32) []core.SearchResult {
	var results []core.SearchResult
	for _, ds := range datasets {
		if len(results) >= s.maxResults {
			break
		}
		if ctx.Err() != nil {
			s.logger.Debug("search cancelled during semantic phase", "err", ctx.Err())
			break
		}
		vectors, ok := s.index.Lookup(ds)
		if !ok {
			continue
		}
		hits, err := s.similarRows(ds, vectors, queryVec, s.maxResults-len(results))
		if err != nil {
			s.logger.Error("semantic search failed", "dataset", ds.Name, "err", err)
			continue
		}
		results = append(results, hits...)
	}
	return results
}

// similarRows returns up to limit rows of ds, in row order, whose similarity
// to queryVec is at least the threshold.
func (s *Searcher) similarRows(ds *core.Dataset, vectors [][]float32, queryVec []float32, limit int) (results []core.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	for i, vec := range vectors {
		if len(vec) != len(queryVec) {
			return nil, fmt.Errorf("vector dimension %d does not match query dimension %d", len(vec), len(queryVec))
		}
		score := ai.Dot(queryVec, vec)
		if score < s.threshold {
			continue
		}
		results = append(results, core.SearchResult{
			Source:  ds.Name,
			Score:   score,
			Origin:  core.OriginSemantic,
			Payload: ds.Table.Rows[i],
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// merge drops results whose payload was already seen, truncates to the cap
// and orders by descending score. Equal scores keep their input order.
func (s *Searcher) merge(combined []core.SearchResult) []core.SearchResult {
	seen := make(map[string]struct{}, len(combined))
	out := make([]core.SearchResult, 0, min(len(combined), s.maxResults))
	for _, r := range combined {
		key := r.Payload.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
		if len(out) >= s.maxResults {
			break
		}
	}

	slices.SortStableFunc(out, func(a, b core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}
