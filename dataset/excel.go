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
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/poiesic/omnisearch/core"
	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads the first worksheet of an Office Open XML workbook.
func LoadXLSX(src Source) (*core.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrParse, sheets[0], err)
	}
	return gridDataset(grid)
}

// LoadXLS reads the first worksheet of a legacy BIFF workbook.
func LoadXLS(src Source) (ds *core.Dataset, err error) {
	// The BIFF reader panics on some malformed records.
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("%w: %v", ErrParse, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(src.Data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		grid = append(grid, xlsRow(sheet, i))
	}
	return gridDataset(grid)
}

// xlsRow returns the cells of row i, or nil when the sheet has no such row.
func xlsRow(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()
	row := sheet.Row(i)
	if row == nil {
		return nil
	}
	cells = make([]string, row.LastCol())
	for j := range cells {
		cells[j] = row.Col(j)
	}
	return cells
}

func gridDataset(grid [][]string) (*core.Dataset, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: no columns to parse", ErrParse)
	}
	raw, _ := gridTable(grid[0], grid[1:], false)
	return &core.Dataset{Kind: core.KindTable, Table: raw.normalize()}, nil
}
