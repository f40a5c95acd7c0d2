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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/omnisearch/core"
)

// LoadCSV parses a comma separated file. The first record is the header and
// every column is string-typed. Records with more fields than the header are
// skipped as bad lines.
func LoadCSV(src Source) (*core.Dataset, error) {
	text, enc, err := decodeText(src.Data, src.Encodings)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no columns to parse", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParse, err)
	}

	var rows [][]string
	malformed := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			malformed++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		rows = append(rows, rec)
	}

	raw, wide := gridTable(header, rows, true)
	if skipped := malformed + wide; skipped > 0 && src.Logger != nil {
		src.Logger.Warn("skipped bad lines", "file", src.Path, "count", skipped)
	}
	if src.Logger != nil {
		src.Logger.Debug("decoded csv", "file", src.Path, "encoding", enc)
	}

	return &core.Dataset{Kind: core.KindTable, Table: raw.normalize()}, nil
}
