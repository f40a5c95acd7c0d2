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

package core

import "errors"

var (
	// ErrInvalidDataset indicates a Dataset failed validation.
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrEmptyName indicates the dataset Name field is empty.
	ErrEmptyName = errors.New("dataset name cannot be empty")

	// ErrEmptyHash indicates the dataset has no content hash.
	ErrEmptyHash = errors.New("content hash cannot be empty")

	// ErrKindMismatch indicates the populated body does not match Kind.
	ErrKindMismatch = errors.New("dataset body does not match its kind")

	// ErrRowShape indicates a table row whose cells differ from the schema.
	ErrRowShape = errors.New("row does not match table columns")

	// ErrInvalidSearchKind indicates an unknown search kind label.
	ErrInvalidSearchKind = errors.New("invalid search kind")
)
