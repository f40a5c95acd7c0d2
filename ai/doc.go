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

// Package ai provides the embedding abstraction used by omnisearch.
//
// The Embedder interface turns text into vectors. Model wraps an Embedder
// that is built in the background: callers start loading with Model.Load,
// and every other component asks Model.Ready or Model.Embedder before doing
// semantic work. A model that is still loading, or failed to load, simply
// yields a nil Embedder, so search falls back to lexical matching.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding servers via langchaingo
//   - ai/mock: deterministic test double
//
// # Usage Example
//
//	cfg := ai.DefaultConfig()
//	model := ai.NewModel(cfg.EmbeddingModel, nil)
//	_ = model.Load(ctx, openai.Factory(cfg))
//
//	if e := model.Embedder(); e != nil {
//	    vec, err := e.EmbedText(ctx, "invoice 2024")
//	}
//
// RetryWithBackoff, NormalizeVector and Dot are shared by the index and the
// searcher so that every stored and query vector is compared the same way.
package ai
