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

package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/omnisearch/core"
)

// Tracked identifies a loaded file for change detection.
type Tracked struct {
	Name string
	Path string
	Hash string
}

// Store is the in-memory mirror of every supported file under a root
// directory. A reload builds a complete new set of datasets and swaps it in
// under the write lock; readers holding the read lock never see a partial
// reload.
type Store struct {
	root      string
	encodings []Encoding
	loaders   map[string]Loader
	pool      *ants.Pool
	logger    *slog.Logger

	reloadMu sync.Mutex

	mu          sync.RWMutex
	datasets    []*core.Dataset
	byName      map[string]*core.Dataset
	lastUpdated time.Time
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of files parsed concurrently.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithEncodings sets the ordered list of text encodings tried for CSV and
// text files.
func WithEncodings(names ...string) Option {
	return func(s *Store) error {
		encs, err := LookupEncodings(names)
		if err != nil {
			return err
		}
		if len(encs) == 0 {
			return fmt.Errorf("%w: empty encoding list", ErrUnknownEncoding)
		}
		s.encodings = encs
		return nil
	}
}

// WithLoader registers a loader for a file extension such as ".tsv",
// replacing any existing one.
func WithLoader(ext string, loader Loader) Option {
	return func(s *Store) error {
		if loader == nil {
			delete(s.loaders, extOf("x"+ext))
			return nil
		}
		s.loaders[extOf("x"+ext)] = loader
		return nil
	}
}

// NewStore creates an empty store rooted at root. Nothing is read until
// LoadAll is called.
func NewStore(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, ErrRootRequired
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	encs, err := LookupEncodings(DefaultEncodings)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}

	s := &Store{
		root:      abs,
		encodings: encs,
		loaders:   DefaultLoaders(),
		pool:      pool,
		logger:    slog.Default(),
		byName:    map[string]*core.Dataset{},
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "dataset-store")
	return s, nil
}

// Root returns the absolute data directory.
func (s *Store) Root() string {
	return s.root
}

// Supported reports whether path has an extension with a registered loader.
func (s *Store) Supported(path string) bool {
	_, ok := s.loaders[extOf(path)]
	return ok
}

// LoadAll re-reads every supported file under the root and replaces the
// current datasets. Files that fail to load are logged and left out. Only a
// root directory that cannot be created is reported as an error.
func (s *Store) LoadAll(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrRootUnavailable, err)
	}

	start := time.Now()
	files, err := s.collectFiles(ctx)
	if err != nil {
		return err
	}

	loaded := make([]*core.Dataset, len(files))
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			loaded[i] = s.loadFile(path)
		}
		if err := s.pool.Submit(task); err != nil {
			s.logger.Warn("worker pool unavailable, loading inline", "err", err)
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	datasets := make([]*core.Dataset, 0, len(loaded))
	byName := make(map[string]*core.Dataset, len(loaded))
	for _, ds := range loaded {
		if ds != nil {
			datasets = append(datasets, ds)
			byName[ds.Name] = ds
		}
	}

	s.mu.Lock()
	s.datasets = datasets
	s.byName = byName
	s.lastUpdated = time.Now()
	s.mu.Unlock()

	s.logger.Info("datasets loaded",
		"count", len(datasets),
		"failed", len(files)-len(datasets),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// collectFiles walks the root in lexical order and returns supported files.
func (s *Store) collectFiles(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Warn("cannot read path", "path", path, "err", err)
			if d != nil && d.IsDir() && path != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !s.Supported(path) {
			s.logger.Debug("skipping unsupported file", "path", path)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipDir) {
		return nil, err
	}
	return files, nil
}

// loadFile reads, hashes and parses one file. It returns nil on failure.
func (s *Store) loadFile(path string) (ds *core.Dataset) {
	name, err := filepath.Rel(s.root, path)
	if err != nil {
		name = filepath.Base(path)
	}
	name = filepath.ToSlash(name)
	logger := s.logger.With("file", name)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("loader panicked", "panic", r)
			ds = nil
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read file", "err", err)
		return nil
	}
	hash, err := core.HashReader(bytes.NewReader(data))
	if err != nil {
		logger.Error("failed to hash file", "err", err)
		return nil
	}

	loader, ok := s.loaders[extOf(path)]
	if !ok {
		logger.Debug("no loader", "err", ErrUnsupportedFormat)
		return nil
	}
	ds, err = loader(Source{Path: path, Data: data, Encodings: s.encodings, Logger: logger})
	if err != nil {
		logger.Error("failed to load dataset", "err", err)
		return nil
	}

	ds.Name = name
	ds.Path = path
	ds.Hash = hash
	ds.LoadedAt = time.Now()
	if err := core.ValidateDataset(ds); err != nil {
		logger.Error("loaded dataset is invalid", "err", err)
		return nil
	}
	logger.Debug("dataset loaded", "kind", ds.Kind)
	return ds
}

// View runs fn while holding the read lock. fn must not retain the slice or
// call back into methods that take the write lock.
func (s *Store) View(fn func(datasets []*core.Dataset)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.datasets)
}

// Datasets returns a snapshot of the loaded datasets in load order. Datasets
// are replaced, never modified, so the pointers stay valid.
func (s *Store) Datasets() []*core.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Dataset, len(s.datasets))
	copy(out, s.datasets)
	return out
}

// Get returns the dataset with the given name.
func (s *Store) Get(name string) (*core.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.byName[name]
	return ds, ok
}

// Tracked returns the path and hash of every loaded file.
func (s *Store) Tracked() []Tracked {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tracked, len(s.datasets))
	for i, ds := range s.datasets {
		out[i] = Tracked{Name: ds.Name, Path: ds.Path, Hash: ds.Hash}
	}
	return out
}

// LastUpdated returns the completion time of the last LoadAll, or the zero
// time if none has completed.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Len returns the number of loaded datasets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// Close releases the worker pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}
