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

package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the lifecycle state of a Model.
type Status int32

const (
	StatusUnloaded Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

type embedderBox struct {
	embedder Embedder
}

// Model holds an Embedder that is loaded in the background. The embedder is
// published once; readers never observe a partially initialized model.
type Model struct {
	name     string
	status   atomic.Int32
	embedder atomic.Pointer[embedderBox]
	started  atomic.Int64
	finished atomic.Int64
	loadErr  atomic.Pointer[error]
	once     sync.Once
	done     chan struct{}
	logger   *slog.Logger
}

// NewModel creates an unloaded model container for the named model.
func NewModel(name string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		name:   name,
		done:   make(chan struct{}),
		logger: logger.With("component", "model", "model", name),
	}
}

// Name returns the model identifier.
func (m *Model) Name() string {
	return m.name
}

// Status returns the current lifecycle state.
func (m *Model) Status() Status {
	return Status(m.status.Load())
}

// Ready reports whether the embedder can be used.
func (m *Model) Ready() bool {
	return m.Status() == StatusReady
}

// Embedder returns the loaded embedder, or nil if the model is not ready.
func (m *Model) Embedder() Embedder {
	if box := m.embedder.Load(); box != nil {
		return box.embedder
	}
	return nil
}

// Err returns the load failure, if any.
func (m *Model) Err() error {
	if p := m.loadErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Done is closed once the model reaches Ready or Failed.
func (m *Model) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until loading finishes or ctx is cancelled.
func (m *Model) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load starts building the embedder in a background goroutine and returns
// immediately. Only the first call has any effect.
func (m *Model) Load(ctx context.Context, factory EmbedderFactory) error {
	if factory == nil {
		return ErrFactoryRequired
	}
	started := false
	m.once.Do(func() {
		started = true
		m.started.Store(time.Now().UnixNano())
		m.status.Store(int32(StatusLoading))
		m.logger.Info("loading embedding model")
		go m.load(ctx, factory)
	})
	if !started {
		return ErrAlreadyLoaded
	}
	return nil
}

func (m *Model) load(ctx context.Context, factory EmbedderFactory) {
	defer func() {
		if r := recover(); r != nil {
			m.fail(fmt.Errorf("%w: panic: %v", ErrModelLoadFailed, r))
		}
	}()

	embedder, err := factory(ctx)
	if err != nil {
		m.fail(fmt.Errorf("%w: %w", ErrModelLoadFailed, err))
		return
	}
	if embedder == nil {
		m.fail(fmt.Errorf("%w: factory returned no embedder", ErrModelLoadFailed))
		return
	}
	m.publish(embedder)
}

// Set installs an already constructed embedder and marks the model ready.
func (m *Model) Set(embedder Embedder) error {
	if embedder == nil {
		return ErrEmbedderRequired
	}
	set := false
	m.once.Do(func() {
		set = true
		m.started.Store(time.Now().UnixNano())
		m.publish(embedder)
	})
	if !set {
		return ErrAlreadyLoaded
	}
	return nil
}

func (m *Model) publish(embedder Embedder) {
	m.embedder.Store(&embedderBox{embedder: embedder})
	m.finished.Store(time.Now().UnixNano())
	m.status.Store(int32(StatusReady))
	close(m.done)
	m.logger.Info("embedding model ready", "elapsed", m.elapsed().Round(time.Millisecond))
}

func (m *Model) fail(err error) {
	m.loadErr.Store(&err)
	m.finished.Store(time.Now().UnixNano())
	m.status.Store(int32(StatusFailed))
	close(m.done)
	m.logger.Error("embedding model failed to load", "err", err)
}

func (m *Model) elapsed() time.Duration {
	start := m.started.Load()
	if start == 0 {
		return 0
	}
	end := m.finished.Load()
	if end == 0 {
		end = time.Now().UnixNano()
	}
	return time.Duration(end - start)
}

// Describe renders the model state for status displays.
func (m *Model) Describe() string {
	switch s := m.Status(); s {
	case StatusLoading:
		return fmt.Sprintf("%s: loading (elapsed %s)", m.name, m.elapsed().Round(time.Second))
	case StatusReady:
		return fmt.Sprintf("%s: ready (loaded in %s)", m.name, m.elapsed().Round(time.Millisecond))
	case StatusFailed:
		return fmt.Sprintf("%s: failed: %v", m.name, m.Err())
	default:
		return fmt.Sprintf("%s: %s", m.name, s)
	}
}
