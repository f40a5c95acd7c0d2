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

import "github.com/poiesic/omnisearch/core"

// LoadText keeps the decoded file content whole.
func LoadText(src Source) (*core.Dataset, error) {
	text, enc, err := decodeText(src.Data, src.Encodings)
	if err != nil {
		return nil, err
	}
	if src.Logger != nil {
		src.Logger.Debug("decoded text", "file", src.Path, "encoding", enc)
	}
	return &core.Dataset{Kind: core.KindText, Text: text}, nil
}
