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

package dataset

import "errors"

var (
	// ErrUnsupportedFormat is returned for file extensions without a loader.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrUndetectableEncoding is returned when no configured encoding decodes a file.
	ErrUndetectableEncoding = errors.New("undetectable encoding")

	// ErrParse wraps any failure to parse a file's contents.
	ErrParse = errors.New("parse failure")

	// ErrUnknownEncoding is returned for an encoding name that is not supported.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrRootUnavailable is returned when the data root cannot be created.
	ErrRootUnavailable = errors.New("data root unavailable")

	// ErrRootRequired is returned when a store is built without a root directory.
	ErrRootRequired = errors.New("data root required")
)
