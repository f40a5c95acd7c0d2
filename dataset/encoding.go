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
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultEncodings is the order in which text encodings are attempted.
var DefaultEncodings = []string{"utf-8", "windows-1251", "windows-1252", "iso-8859-1"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding decodes raw file bytes into text.
type Encoding struct {
	Name   string
	decode func([]byte) (string, bool)
}

// Decode returns the text and whether data was valid in this encoding.
func (e Encoding) Decode(data []byte) (string, bool) {
	return e.decode(data)
}

func decodeUTF8(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func charmapDecoder(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(data []byte) (string, bool) {
		out, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		// Bytes the code page leaves unassigned decode to U+FFFD.
		if bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

var encodings = map[string]Encoding{
	"utf-8":        {Name: "utf-8", decode: decodeUTF8},
	"windows-1251": {Name: "windows-1251", decode: charmapDecoder(charmap.Windows1251)},
	"windows-1252": {Name: "windows-1252", decode: charmapDecoder(charmap.Windows1252)},
	"iso-8859-1":   {Name: "iso-8859-1", decode: charmapDecoder(charmap.ISO8859_1)},
	"koi8-r":       {Name: "koi8-r", decode: charmapDecoder(charmap.KOI8R)},
}

var encodingAliases = map[string]string{
	"utf8":    "utf-8",
	"cp1251":  "windows-1251",
	"cp1252":  "windows-1252",
	"latin1":  "iso-8859-1",
	"latin-1": "iso-8859-1",
	"koi8r":   "koi8-r",
}

// LookupEncoding resolves an encoding by name or common alias.
func LookupEncoding(name string) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := encodingAliases[key]; ok {
		key = alias
	}
	enc, ok := encodings[key]
	if !ok {
		return Encoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// LookupEncodings resolves an ordered list of encoding names.
func LookupEncodings(names []string) ([]Encoding, error) {
	out := make([]Encoding, 0, len(names))
	for _, name := range names {
		enc, err := LookupEncoding(name)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

// decodeText tries each encoding in order and returns the first clean decode.
func decodeText(data []byte, encs []Encoding) (string, string, error) {
	for _, enc := range encs {
		if text, ok := enc.Decode(data); ok {
			return text, enc.Name, nil
		}
	}
	return "", "", ErrUndetectableEncoding
}
