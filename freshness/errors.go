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

package freshness

import "errors"

var (
	// ErrStoreRequired is returned when a monitor is created without a store.
	ErrStoreRequired = errors.New("freshness: store required")

	// ErrReloadRequired is returned when a monitor is created without a
	// reload function.
	ErrReloadRequired = errors.New("freshness: reload function required")

	// ErrInvalidInterval is returned for a non-positive loop interval.
	ErrInvalidInterval = errors.New("freshness: interval must be positive")

	// ErrAlreadyRunning is returned when Run is called on a running monitor.
	ErrAlreadyRunning = errors.New("freshness: monitor already running")
)
