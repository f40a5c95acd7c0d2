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
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a 64-bit content identifier used as a vector cache key.
type ID uint64

// IDFromContent derives an ID from text using a 64-bit BLAKE2b digest.
// Equal text always yields the same ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DatasetKind is fixed when a dataset is loaded.
type DatasetKind int

const (
	KindTable DatasetKind = iota + 1
	KindText
	KindDocument
)

func (k DatasetKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindText:
		return "text"
	case KindDocument:
		return "document"
	}
	return "unknown"
}

// Dataset is one loaded source file. Exactly one of Table, Text or Document
// is populated, matching Kind.
type Dataset struct {
	Name     string // path relative to the data root, slash separated
	Path     string
	Kind     DatasetKind
	Hash     string
	LoadedAt time.Time

	Table    *Table
	Text     string
	Document Value
}

// Column describes one table column. Text marks columns whose values were
// strings in the source; only those are matched and embedded.
type Column struct {
	Name string
	Text bool // string-typed in the source; searched and embedded
}

// Table is a normalized grid: every row holds exactly one cell per column,
// in column order.
type Table struct {
	Columns []Column
	Rows    []Row
}

// TextColumns returns the names of the string-typed columns in schema order.
func (t *Table) TextColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if c.Text {
			names = append(names, c.Name)
		}
	}
	return names
}

// Cell is one column/value pair of a Row.
type Cell struct {
	Column string
	Value  string
}

// Row is an ordered sequence of column/value pairs.
type Row []Cell

// Get returns the value stored under column and whether it was present.
func (r Row) Get(column string) (string, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return "", false
}

// String renders the row in a canonical form. Two rows with the same cells in
// the same order render identically.
func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(c.Column))
		sb.WriteString(": ")
		sb.WriteString(strconv.Quote(c.Value))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Origin records which search strategy produced a result.
type Origin string

const (
	OriginText     Origin = "text"
	OriginTable    Origin = "table"
	OriginDocument Origin = "document"
	OriginSemantic Origin = "semantic"
)

// SearchResult is one ranked hit. Source is the dataset name and Payload
// the matched row, line or document fragment.
type SearchResult struct {
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
	Origin  Origin  `json:"origin"`
	Payload Row     `json:"payload"`
}
