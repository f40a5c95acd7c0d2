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

// Package storage defines the persistence abstraction used by omnisearch.
//
// The only state omnisearch keeps outside of memory-resident datasets is
// a cache of embedding vectors. VectorCache hides the backend; the badger
// sub-package implements it on top of BadgerDB, in memory by default or in
// a directory when one is configured.
//
//	cache, err := badger.NewMemoryVectorCache()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
// Vectors are stored as little-endian float32 runs (MarshalVector) under
// content IDs derived with core.IDFromContent.
//
// All implementations must be safe for concurrent use.
package storage
