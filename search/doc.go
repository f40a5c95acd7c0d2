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

// Package search implements the unified query engine.
//
// A query is matched in two phases over a consistent view of the datasets:
//   - Lexical: case-insensitive substring matching on text lines, on the
//     string-typed columns of table rows, and on the string leaves of
//     structured documents
//   - Semantic: cosine similarity between the query embedding and the row
//     embeddings of every indexed table
//
// Lexical hits carry fixed scores (text 1.0, table 0.8, document 0.5) and
// semantic hits carry their similarity. The combined list is deduplicated by
// payload, capped, and sorted by descending score.
//
// Search never returns an error. When the embedding model is not ready the
// semantic phase is skipped.
package search
