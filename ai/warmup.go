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
)

const warmupText = "warm up"

// WarmUp issues a probe embedding so a lazily started model server loads its
// weights before the model is reported ready. It returns the vector dimension.
func WarmUp(ctx context.Context, embedder Embedder, cfg *Config) (int, error) {
	var vec []float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vec, err = embedder.EmbedText(ctx, warmupText)
		if err == nil && len(vec) == 0 {
			err = ErrEmptyEmbedding
		}
		return err
	}, cfg.MaxRetries, cfg.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("warm up %s: %w", cfg.EmbeddingModel, err)
	}
	return len(vec), nil
}
