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

package storage

import (
	"context"

	"github.com/poiesic/omnisearch/core"
)

// VectorCache stores embedding vectors keyed by a content ID so that rows
// whose text has not changed are not sent to the embedder again.
type VectorCache interface {
	// GetVectors returns the cached vectors for the given IDs.
	// IDs without a cached vector are absent from the result.
	GetVectors(ctx context.Context, ids ...core.ID) (map[core.ID][]float32, error)

	// PutVectors stores vectors, replacing existing entries.
	PutVectors(ctx context.Context, vectors map[core.ID][]float32) error

	// Retain deletes every cached vector whose ID is not in keep and
	// reports how many were removed.
	Retain(ctx context.Context, keep map[core.ID]struct{}) (int, error)

	// Len returns the number of cached vectors.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the cache.
	Close() error
}
