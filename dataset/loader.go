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

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/poiesic/omnisearch/core"
)

// Source is one file handed to a Loader.
type Source struct {
	Path      string
	Data      []byte
	Encodings []Encoding
	Logger    *slog.Logger
}

// Loader parses a source file. It sets Kind and the matching body; the
// store fills in identity, hash and timestamps.
type Loader func(src Source) (*core.Dataset, error)

// DefaultLoaders maps lowercase file extensions to their loaders.
func DefaultLoaders() map[string]Loader {
	return map[string]Loader{
		".csv":  LoadCSV,
		".xlsx": LoadXLSX,
		".xls":  LoadXLS,
		".json": LoadJSON,
		".txt":  LoadText,
	}
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
