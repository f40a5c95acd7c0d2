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

import "errors"

var (
	// ErrModelRequired is returned when an index is created without a model.
	ErrModelRequired = errors.New("index: model required")

	// ErrModelNotReady is returned when indexing is requested before the
	// embedding model finished loading.
	ErrModelNotReady = errors.New("index: embedding model not ready")

	// ErrEmbeddingMismatch is returned when the embedder answers with a
	// different number of vectors than texts sent.
	ErrEmbeddingMismatch = errors.New("index: embedding count mismatch")

	// ErrIndexClosed is returned after Close.
	ErrIndexClosed = errors.New("index: closed")
)
