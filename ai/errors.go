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

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrFactoryRequired is returned when Load is called without a factory.
	ErrFactoryRequired = errors.New("embedder factory required")

	// ErrEmbedderRequired is returned when a nil embedder is installed.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrAlreadyLoaded is returned when a model is loaded twice.
	ErrAlreadyLoaded = errors.New("model already loaded or loading")

	// ErrModelLoadFailed wraps any failure raised while building the embedder.
	ErrModelLoadFailed = errors.New("model load failed")

	// ErrEmptyEmbedding is returned when the service answers with no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
)
