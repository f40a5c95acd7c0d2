// Package index maintains the semantic index: one matrix of unit-length row
// embeddings per table dataset.
//
// Each row is embedded from its string-typed columns joined by a space.
// Vectors are cached by model and text, so a reindex after a small edit only
// sends the changed rows to the embedding service.
package index
