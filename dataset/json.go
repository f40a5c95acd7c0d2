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
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/poiesic/omnisearch/core"
)

// LoadJSON parses a UTF-8 JSON file. An array whose elements are all objects
// becomes a table with nested keys flattened to dotted column names; any
// other value is kept as a structured document.
func LoadJSON(src Source) (*core.Dataset, error) {
	data := bytes.TrimPrefix(src.Data, utf8BOM)
	v, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	if t, ok := jsonTable(v); ok {
		return &core.Dataset{Kind: core.KindTable, Table: t.normalize()}, nil
	}
	return &core.Dataset{Kind: core.KindDocument, Document: v}, nil
}

// ParseJSON decodes a single JSON value preserving object member order.
func ParseJSON(data []byte) (core.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return core.Value{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return core.Value{}, fmt.Errorf("%w: trailing data after JSON value", ErrParse)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (core.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return core.Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return core.Null(), nil
	case bool:
		return core.Bool(t), nil
	case json.Number:
		return core.Number(t.String()), nil
	case string:
		return core.String(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []core.Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return core.Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return core.Value{}, err
			}
			return core.Array(items...), nil
		case '{':
			members := []core.Member{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return core.Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return core.Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return core.Value{}, err
				}
				members = append(members, core.Field(key, val))
			}
			if _, err := dec.Token(); err != nil {
				return core.Value{}, err
			}
			return core.Object(members...), nil
		}
	}
	return core.Value{}, fmt.Errorf("unexpected token %v", tok)
}

// jsonTable flattens an array of objects into rows. A column is string-typed
// only if every present value in it was a JSON string.
func jsonTable(v core.Value) (*rawTable, bool) {
	if v.Kind != core.ArrayValue || len(v.Items) == 0 {
		return nil, false
	}
	for _, item := range v.Items {
		if item.Kind != core.ObjectValue {
			return nil, false
		}
	}

	t := &rawTable{}
	index := map[string]int{}
	for _, item := range v.Items {
		row := make([]rawCell, len(t.columns))
		flatten("", item.Members, func(key string, leaf core.Value) {
			i, ok := index[key]
			if !ok {
				i = len(t.columns)
				index[key] = i
				t.columns = append(t.columns, core.Column{Name: key, Text: true})
			}
			for len(row) <= i {
				row = append(row, rawCell{})
			}
			switch leaf.Kind {
			case core.NullValue:
				return
			case core.StringValue:
				row[i] = rawCell{value: leaf.Str, ok: true}
			default:
				t.columns[i].Text = false
				row[i] = rawCell{value: leaf.Scalar(), ok: true}
			}
		})
		t.rows = append(t.rows, row)
	}
	return t, true
}

// flatten visits the leaves of an object, joining nested keys with dots.
// Arrays are leaves.
func flatten(prefix string, members []core.Member, visit func(string, core.Value)) {
	for _, m := range members {
		key := m.Key
		if prefix != "" {
			key = prefix + "." + m.Key
		}
		if m.Value.Kind == core.ObjectValue && len(m.Value.Members) > 0 {
			flatten(key, m.Value.Members, visit)
			continue
		}
		visit(key, m.Value)
	}
}
