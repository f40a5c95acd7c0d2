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
	"bytes"
	"encoding/json"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	NullValue ValueKind = iota
	BoolValue
	NumberValue
	StringValue
	ArrayValue
	ObjectValue
)

// Value is a parsed JSON document. Numbers keep their source literal and
// object members keep their source order.
type Value struct {
	Kind    ValueKind
	Bool    bool
	Number  string
	Str     string
	Items   []Value
	Members []Member
}

// Member is one key/value pair of an object, in source order.
type Member struct {
	Key   string
	Value Value
}

// Constructors for each Value variant.
func Null() Value { return Value{Kind: NullValue} }
func Bool(b bool) Value { return Value{Kind: BoolValue, Bool: b} }
func Number(lit string) Value { return Value{Kind: NumberValue, Number: lit} }
func String(s string) Value { return Value{Kind: StringValue, Str: s} }
func Array(items ...Value) Value { return Value{Kind: ArrayValue, Items: items} }
func Object(m ...Member) Value { return Value{Kind: ObjectValue, Members: m} }
func Field(k string, v Value) Member { return Member{Key: k, Value: v} }

// Scalar renders a leaf as plain text. Containers render as compact JSON.
func (v Value) Scalar() string {
	switch v.Kind {
	case NullValue:
		return ""
	case BoolValue:
		return strconv.FormatBool(v.Bool)
	case NumberValue:
		return v.Number
	case StringValue:
		return v.Str
	}
	b, _ := v.MarshalJSON()
	return string(b)
}

// MarshalJSON writes the value with object members in source order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Kind {
	case NullValue:
		buf.WriteString("null")
	case BoolValue:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case NumberValue:
		buf.WriteString(v.Number)
	case StringValue:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case ArrayValue:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectValue:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// MarshalJSON writes the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	members := make([]Member, len(r))
	for i, c := range r {
		members[i] = Field(c.Column, String(c.Value))
	}
	return Object(members...).MarshalJSON()
}
