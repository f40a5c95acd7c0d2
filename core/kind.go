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

import (
	"fmt"
	"strings"
)

// SearchKind labels a query for statistics. It never changes matching.
type SearchKind string

const (
	SearchUniversal SearchKind = "universal"
	SearchPhone     SearchKind = "phone"
	SearchEmail     SearchKind = "email"
	SearchIP        SearchKind = "ip"
)

// SearchKinds lists every accepted kind.
var SearchKinds = []SearchKind{SearchUniversal, SearchPhone, SearchEmail, SearchIP}

// ParseSearchKind maps a label to a SearchKind. An empty label is universal.
func ParseSearchKind(s string) (SearchKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SearchUniversal, nil
	}
	for _, k := range SearchKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSearchKind, s)
}
