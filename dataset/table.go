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
	"fmt"

	"github.com/poiesic/omnisearch/core"
)

// rawCell is a parsed cell before normalization. ok is false for a missing
// value (empty CSV field, blank sheet cell, JSON null or absent key).
type rawCell struct {
	value string
	ok    bool
}

func present(v string) rawCell {
	return rawCell{value: v, ok: v != ""}
}

// rawTable accumulates parsed rows with a possibly ragged shape.
type rawTable struct {
	columns []core.Column
	rows    [][]rawCell
}

// normalize drops columns missing in every row, fills the remaining missing
// cells with "" and returns a table whose rows all match its schema.
func (t *rawTable) normalize() *core.Table {
	keep := make([]bool, len(t.columns))
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(keep) && c.ok {
				keep[i] = true
			}
		}
	}

	table := &core.Table{}
	var idx []int
	for i, col := range t.columns {
		if keep[i] {
			table.Columns = append(table.Columns, col)
			idx = append(idx, i)
		}
	}

	table.Rows = make([]core.Row, len(t.rows))
	for r, raw := range t.rows {
		row := make(core.Row, len(idx))
		for j, i := range idx {
			row[j] = core.Cell{Column: t.columns[i].Name}
			if i < len(raw) && raw[i].ok {
				row[j].Value = raw[i].value
			}
		}
		table.Rows[r] = row
	}
	return table
}

// uniqueHeaders names blank headers "Unnamed: N" and suffixes repeats with
// ".1", ".2" so that every column name is distinct.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	next := make(map[string]int, len(raw))
	for i, name := range raw {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for used[candidate] {
			next[name]++
			candidate = fmt.Sprintf("%s.%d", name, next[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// gridTable builds a string-typed table from a header row and data rows.
// Rows wider than the header are dropped when skipWide is set; otherwise
// the header grows with unnamed columns.
func gridTable(header []string, rows [][]string, skipWide bool) (*rawTable, int) {
	width := len(header)
	skipped := 0
	if !skipWide {
		for _, r := range rows {
			width = max(width, len(r))
		}
	}

	names := make([]string, width)
	copy(names, header)
	names = uniqueHeaders(names)

	t := &rawTable{columns: make([]core.Column, width)}
	for i, n := range names {
		t.columns[i] = core.Column{Name: n, Text: true}
	}

	for _, r := range rows {
		if len(r) > width {
			skipped++
			continue
		}
		cells := make([]rawCell, len(r))
		for i, v := range r {
			cells[i] = present(v)
		}
		t.rows = append(t.rows, cells)
	}
	return t, skipped
}
