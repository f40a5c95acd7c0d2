package search

import (
	"strconv"
	"strings"

	"github.com/poiesic/omnisearch/core"
)

// Fixed scores per lexical strategy.
const (
	TextScore     float32 = 1.0
	TableScore    float32 = 0.8
	DocumentScore float32 = 0.5
)

// searchText matches the query against each line of a text dataset. needle
// must already be lowercase.
func searchText(ds *core.Dataset, needle string, limit int) []core.SearchResult {
	var results []core.SearchResult
	for _, line := range strings.Split(ds.Text, "\n") {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		results = append(results, core.SearchResult{
			Source:  ds.Name,
			Score:   TextScore,
			Origin:  core.OriginText,
			Payload: core.Row{{Column: "line", Value: strings.TrimSpace(line)}},
		})
		if len(results) >= limit {
			break
		}
	}
	return results
}

// searchTable matches the query against the string-typed columns of each
// row. A matching row is returned whole.
func searchTable(ds *core.Dataset, needle string, limit int) []core.SearchResult {
	if ds.Table == nil {
		return nil
	}
	text := make(map[string]bool, len(ds.Table.Columns))
	for _, c := range ds.Table.Columns {
		text[c.Name] = c.Text
	}

	var results []core.SearchResult
	for _, row := range ds.Table.Rows {
		if !rowMatches(row, text, needle) {
			continue
		}
		results = append(results, core.SearchResult{
			Source:  ds.Name,
			Score:   TableScore,
			Origin:  core.OriginTable,
			Payload: row,
		})
		if len(results) >= limit {
			break
		}
	}
	return results
}

func rowMatches(row core.Row, text map[string]bool, needle string) bool {
	for _, cell := range row {
		if text[cell.Column] && strings.Contains(strings.ToLower(cell.Value), needle) {
			return true
		}
	}
	return false
}

// searchDocument walks a structured document and bundles every matching
// string leaf into a single result keyed by its path.
func searchDocument(ds *core.Dataset, needle string) []core.SearchResult {
	var matches core.Row
	walkDocument(ds.Document, "", needle, &matches)
	if len(matches) == 0 {
		return nil
	}
	return []core.SearchResult{{
		Source:  ds.Name,
		Score:   DocumentScore,
		Origin:  core.OriginDocument,
		Payload: matches,
	}}
}

// walkDocument visits v depth first. Object members extend the path with
// ".key" and array items with "[i]".
func walkDocument(v core.Value, path, needle string, matches *core.Row) {
	switch v.Kind {
	case core.ObjectValue:
		for _, m := range v.Members {
			next := m.Key
			if path != "" {
				next = path + "." + m.Key
			}
			walkDocument(m.Value, next, needle, matches)
		}
	case core.ArrayValue:
		for i, item := range v.Items {
			walkDocument(item, path+"["+strconv.Itoa(i)+"]", needle, matches)
		}
	case core.StringValue:
		if strings.Contains(strings.ToLower(v.Str), needle) {
			*matches = append(*matches, core.Cell{Column: path, Value: v.Str})
		}
	}
}
