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

package freshness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/omnisearch/core"
	"github.com/poiesic/omnisearch/dataset"
)

const (
	DefaultCheckInterval   = 5 * time.Minute
	DefaultReindexInterval = 6 * time.Hour
	DefaultDebounce        = 2 * time.Second
)

// Store is the view of the dataset store the monitor needs.
type Store interface {
	Root() string
	Tracked() []dataset.Tracked
	Supported(path string) bool
}

// Func is a reload or reindex step.
type Func func(ctx context.Context) error

// Monitor keeps the loaded datasets in step with the data directory. One
// loop rehashes tracked files and reloads everything when any changed;
// another periodically re-embeds tables once the model is ready.
type Monitor struct {
	store           Store
	reload          Func
	reindex         Func
	ready           func() bool
	checkInterval   time.Duration
	reindexInterval time.Duration
	watch           bool
	debounce        time.Duration
	logger          *slog.Logger
	running         atomic.Bool
}

// Option configures a Monitor.
type Option func(*Monitor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithCheckInterval sets how often tracked files are rehashed.
// Default is 5 minutes.
func WithCheckInterval(d time.Duration) Option {
	return func(m *Monitor) error {
		if d <= 0 {
			return fmt.Errorf("%w: check interval %s", ErrInvalidInterval, d)
		}
		m.checkInterval = d
		return nil
	}
}

// WithReindex sets the periodic reindex step and its interval. ready gates
// each run; a nil ready always runs.
// Default interval is 6 hours.
func WithReindex(fn Func, every time.Duration, ready func() bool) Option {
	return func(m *Monitor) error {
		if every <= 0 {
			return fmt.Errorf("%w: reindex interval %s", ErrInvalidInterval, every)
		}
		m.reindex = fn
		m.reindexInterval = every
		m.ready = ready
		return nil
	}
}

// WithWatch also reloads shortly after filesystem events on supported
// files. Events arriving within debounce of each other cause one reload.
func WithWatch(debounce time.Duration) Option {
	return func(m *Monitor) error {
		if debounce <= 0 {
			debounce = DefaultDebounce
		}
		m.watch = true
		m.debounce = debounce
		return nil
	}
}

// New creates a monitor over store. reload is called whenever the data
// directory is found to differ from what was loaded.
func New(store Store, reload Func, opts ...Option) (*Monitor, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if reload == nil {
		return nil, ErrReloadRequired
	}

	m := &Monitor{
		store:           store,
		reload:          reload,
		checkInterval:   DefaultCheckInterval,
		reindexInterval: DefaultReindexInterval,
		debounce:        DefaultDebounce,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "freshness")
	return m, nil
}

// Changed rehashes every tracked file and reports whether any differs from
// its loaded hash. An unreadable file counts as changed. The store is not
// locked while hashing.
func (m *Monitor) Changed(ctx context.Context) (bool, error) {
	for _, t := range m.store.Tracked() {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		hash, err := core.HashFile(t.Path)
		if err != nil {
			m.logger.Info("tracked file unreadable", "dataset", t.Name, "err", err)
			return true, nil
		}
		if hash != t.Hash {
			m.logger.Info("tracked file changed", "dataset", t.Name)
			return true, nil
		}
	}
	return false, nil
}

// CheckOnce reloads the store if any tracked file changed and reports
// whether a reload was attempted.
func (m *Monitor) CheckOnce(ctx context.Context) (bool, error) {
	changed, err := m.Changed(ctx)
	if err != nil || !changed {
		return false, err
	}
	m.logger.Info("changes detected in data directory, reloading")
	if err := m.reload(ctx); err != nil {
		return true, fmt.Errorf("reload: %w", err)
	}
	return true, nil
}

// ReindexOnce runs the reindex step if one is configured and the model is
// ready. It reports whether the step ran.
func (m *Monitor) ReindexOnce(ctx context.Context) (bool, error) {
	if m.reindex == nil {
		return false, nil
	}
	if m.ready != nil && !m.ready() {
		m.logger.Debug("model not ready, skipping scheduled reindex")
		return false, nil
	}
	return true, m.reindex(ctx)
}

// Run starts the loops and blocks until ctx is cancelled. A failing or
// panicking iteration is logged and the loop carries on.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.loop(ctx, "change check", m.checkInterval, func(ctx context.Context) error {
			_, err := m.CheckOnce(ctx)
			return err
		})
	}()

	if m.reindex != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.loop(ctx, "reindex", m.reindexInterval, func(ctx context.Context) error {
				_, err := m.ReindexOnce(ctx)
				return err
			})
		}()
	}

	if m.watch {
		watcher, err := m.newWatcher()
		if err != nil {
			m.logger.Error("file watcher unavailable, relying on periodic checks", "err", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.watchLoop(ctx, watcher)
			}()
		}
	}

	m.logger.Info("freshness monitor started",
		"checkInterval", m.checkInterval,
		"reindexInterval", m.reindexInterval,
		"watch", m.watch)
	wg.Wait()
	m.logger.Info("freshness monitor stopped")
	return nil
}

func (m *Monitor) loop(ctx context.Context, name string, every time.Duration, fn Func) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.step(ctx, name, fn)
		}
	}
}

// step runs fn, logging errors and recovering panics.
func (m *Monitor) step(ctx context.Context, name string, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("iteration panicked", "loop", name, "panic", r)
		}
	}()
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("iteration failed", "loop", name, "err", err)
	}
}
