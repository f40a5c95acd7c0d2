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

import "fmt"

// ValidateDataset checks that a dataset has a name and hash and that its
// populated body matches its kind. Tables are checked with ValidateTable.
// It returns nil if valid, or an error wrapping ErrInvalidDataset.
func ValidateDataset(ds *Dataset) error {
	if ds == nil {
		return fmt.Errorf("%w: dataset is nil", ErrInvalidDataset)
	}

	if ds.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, ErrEmptyName)
	}

	if ds.Hash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, ErrEmptyHash)
	}

	switch ds.Kind {
	case KindTable:
		if ds.Table == nil {
			return fmt.Errorf("%w: %w: %s has no table", ErrInvalidDataset, ErrKindMismatch, ds.Name)
		}
		return ValidateTable(ds.Table)
	case KindText, KindDocument:
		if ds.Table != nil {
			return fmt.Errorf("%w: %w: %s %s carries a table", ErrInvalidDataset, ErrKindMismatch, ds.Kind, ds.Name)
		}
		return nil
	}
	return fmt.Errorf("%w: %w: kind %d", ErrInvalidDataset, ErrKindMismatch, ds.Kind)
}

// ValidateTable checks that every row holds exactly the table's columns in
// schema order.
func ValidateTable(t *Table) error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: %w: row %d has %d cells, want %d",
				ErrInvalidDataset, ErrRowShape, i, len(row), len(t.Columns))
		}
		for j, cell := range row {
			if cell.Column != t.Columns[j].Name {
				return fmt.Errorf("%w: %w: row %d cell %d is %q, want %q",
					ErrInvalidDataset, ErrRowShape, i, j, cell.Column, t.Columns[j].Name)
			}
		}
	}
	return nil
}
