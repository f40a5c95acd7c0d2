package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/omnisearch/ai"
	"github.com/poiesic/omnisearch/ai/mock"
	"github.com/poiesic/omnisearch/core"
	"github.com/poiesic/omnisearch/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	datasets []*core.Dataset
	views    atomic.Int32
}

func (s *staticSource) View(fn func([]*core.Dataset)) {
	s.views.Add(1)
	fn(s.datasets)
}

type emptyIndex struct{}

func (emptyIndex) Lookup(*core.Dataset) ([][]float32, bool) { return nil, false }

// fixedIndex returns the same vectors for every table.
type fixedIndex [][]float32

func (f fixedIndex) Lookup(ds *core.Dataset) ([][]float32, bool) {
	return f, ds.Kind == core.KindTable
}

// tableEmbedder maps known texts to fixed vectors.
type tableEmbedder map[string][]float32

func (e tableEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if v, ok := e[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown text %q", text)
}

func (e tableEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedText(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func textDataset(name, text string) *core.Dataset {
	return &core.Dataset{Name: name, Kind: core.KindText, Hash: "h-" + name, Text: text}
}

func tableDataset(name string, cols []core.Column, rows ...core.Row) *core.Dataset {
	return &core.Dataset{Name: name, Kind: core.KindTable, Hash: "h-" + name, Table: &core.Table{Columns: cols, Rows: rows}}
}

func docDataset(name string, v core.Value) *core.Dataset {
	return &core.Dataset{Name: name, Kind: core.KindDocument, Hash: "h-" + name, Document: v}
}

func loadingModel() *ai.Model {
	return ai.NewModel("loading", nil)
}

func readyModel(t *testing.T, embedder ai.Embedder) *ai.Model {
	t.Helper()
	m := ai.NewModel("test-model", nil)
	require.NoError(t, m.Set(embedder))
	return m
}

func newSearcher(t *testing.T, src Source, idx VectorIndex, model *ai.Model, opts ...Option) *Searcher {
	t.Helper()
	s, err := NewSearcher(src, idx, model, opts...)
	require.NoError(t, err)
	return s
}

var peopleColumns = []core.Column{{Name: "name", Text: true}, {Name: "phone", Text: true}, {Name: "age", Text: false}}

func TestNewSearcher(t *testing.T) {
	src := &staticSource{}
	model := loadingModel()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(src, emptyIndex{}, model)
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxResults, s.MaxResults())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		_, err := NewSearcher(src, emptyIndex{}, model, WithLogger(nil))
		require.NoError(t, err)
	})

	t.Run("with custom logger", func(t *testing.T) {
		_, err := NewSearcher(src, emptyIndex{}, model, WithLogger(slog.Default()))
		require.NoError(t, err)
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := NewSearcher(nil, emptyIndex{}, model)
		assert.Equal(t, ErrSourceRequired, err)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(src, nil, model)
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil model", func(t *testing.T) {
		_, err := NewSearcher(src, emptyIndex{}, nil)
		assert.Equal(t, ErrModelRequired, err)
	})

	t.Run("invalid max results", func(t *testing.T) {
		_, err := NewSearcher(src, emptyIndex{}, model, WithMaxResults(0))
		assert.ErrorIs(t, err, ErrInvalidMaxResults)
	})

	t.Run("invalid threshold", func(t *testing.T) {
		_, err := NewSearcher(src, emptyIndex{}, model, WithThreshold(1.5))
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})
}

func TestSearch_EmptyQuery(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{textDataset("a.txt", "anything")}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	for _, q := range []string{"", "   ", "\t\n"} {
		results := s.Search(context.Background(), q, core.SearchUniversal)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Equal(t, int32(0), src.views.Load(), "datasets are not touched")
}

func TestSearch_EmptyStore(t *testing.T) {
	s := newSearcher(t, &staticSource{}, emptyIndex{}, loadingModel())
	results := s.Search(context.Background(), "ann", core.SearchUniversal)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_Text(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{
		textDataset("notes.txt", "Call ANN at 123\nnothing here\n   ann again   \r\n"),
	}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	results := s.Search(context.Background(), "  Ann ", core.SearchUniversal)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "notes.txt", r.Source)
		assert.Equal(t, TextScore, r.Score)
		assert.Equal(t, core.OriginText, r.Origin)
	}
	assert.Equal(t, core.Row{{Column: "line", Value: "Call ANN at 123"}}, results[0].Payload)
	assert.Equal(t, core.Row{{Column: "line", Value: "ann again"}}, results[1].Payload)
}

func TestSearch_Table(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{
		tableDataset("people.csv", peopleColumns,
			core.Row{{Column: "name", Value: "Ann Lee"}, {Column: "phone", Value: "555"}, {Column: "age", Value: "123"}},
			core.Row{{Column: "name", Value: "Bob"}, {Column: "phone", Value: "123-45"}, {Column: "age", Value: "40"}},
		),
	}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	results := s.Search(context.Background(), "123", core.SearchPhone)
	require.Len(t, results, 1, "only string-typed columns are matched")
	assert.Equal(t, TableScore, results[0].Score)
	assert.Equal(t, core.OriginTable, results[0].Origin)
	assert.Equal(t, `{"name": "Bob", "phone": "123-45", "age": "40"}`, results[0].Payload.String(), "payload is the full row")
}

func TestSearch_Document(t *testing.T) {
	doc := core.Object(
		core.Field("owner", core.String("Ann")),
		core.Field("contacts", core.Array(
			core.Object(core.Field("phone", core.String("+1 555 0100")), core.Field("ext", core.Number("555"))),
			core.Object(core.Field("email", core.String("x@555.example"))),
		)),
		core.Field("meta", core.Object(core.Field("note", core.String("none")))),
	)
	list := core.Array(core.Object(core.Field("tag", core.String("555"))), core.String("also 555"))

	src := &staticSource{datasets: []*core.Dataset{docDataset("doc.json", doc), docDataset("list.json", list)}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	results := s.Search(context.Background(), "555", core.SearchUniversal)
	require.Len(t, results, 2)

	assert.Equal(t, "doc.json", results[0].Source)
	assert.Equal(t, DocumentScore, results[0].Score)
	assert.Equal(t, core.Row{
		{Column: "contacts[0].phone", Value: "+1 555 0100"},
		{Column: "contacts[1].email", Value: "x@555.example"},
	}, results[0].Payload, "numbers are not matched")

	assert.Equal(t, core.Row{
		{Column: "[0].tag", Value: "555"},
		{Column: "[1]", Value: "also 555"},
	}, results[1].Payload)
}

func TestSearch_DocumentWithoutMatch(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{docDataset("doc.json", core.Object(core.Field("a", core.String("b"))))}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())
	assert.Empty(t, s.Search(context.Background(), "zzz", core.SearchUniversal))
}

func TestSearch_RanksByScore(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{
		docDataset("doc.json", core.Object(core.Field("k", core.String("ann")))),
		tableDataset("people.csv", peopleColumns, core.Row{{Column: "name", Value: "Ann"}, {Column: "phone", Value: "1"}, {Column: "age", Value: "2"}}),
		textDataset("notes.txt", "ann"),
	}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	results := s.Search(context.Background(), "ann", core.SearchUniversal)
	require.Len(t, results, 3)
	assert.Equal(t, []core.Origin{core.OriginText, core.OriginTable, core.OriginDocument},
		[]core.Origin{results[0].Origin, results[1].Origin, results[2].Origin})
}

func TestSearch_StableForEqualScores(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{
		textDataset("b.txt", "ann 2"),
		textDataset("a.txt", "ann 1\nann 3"),
	}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	results := s.Search(context.Background(), "ann", core.SearchUniversal)
	require.Len(t, results, 3)
	var lines []string
	for _, r := range results {
		v, _ := r.Payload.Get("line")
		lines = append(lines, v)
	}
	assert.Equal(t, []string{"ann 2", "ann 1", "ann 3"}, lines)
}

func TestSearch_Dedup(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{
		textDataset("a.txt", "call ann"),
		textDataset("b.txt", "call ann\ncall ann"),
	}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	results := s.Search(context.Background(), "ann", core.SearchUniversal)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Source, "first occurrence wins")
}

func TestSearch_Caps(t *testing.T) {
	var text string
	for i := range 20 {
		text += fmt.Sprintf("match %d\n", i)
	}

	t.Run("per dataset", func(t *testing.T) {
		src := &staticSource{datasets: []*core.Dataset{textDataset("a.txt", text)}}
		s := newSearcher(t, src, emptyIndex{}, loadingModel(), WithMaxResults(5))
		assert.Len(t, s.Search(context.Background(), "match", core.SearchUniversal), 5)
	})

	t.Run("stops after cap", func(t *testing.T) {
		src := &staticSource{datasets: []*core.Dataset{
			textDataset("a.txt", text),
			textDataset("b.txt", "match other"),
		}}
		s := newSearcher(t, src, emptyIndex{}, loadingModel(), WithMaxResults(5))
		for _, r := range s.Search(context.Background(), "match", core.SearchUniversal) {
			assert.Equal(t, "a.txt", r.Source)
		}
	})

	t.Run("default cap", func(t *testing.T) {
		var big string
		for i := range 120 {
			big += fmt.Sprintf("row %d\n", i)
		}
		src := &staticSource{datasets: []*core.Dataset{textDataset("a.txt", big), textDataset("b.txt", big+"row x\n")}}
		s := newSearcher(t, src, emptyIndex{}, loadingModel())
		assert.Len(t, s.Search(context.Background(), "row", core.SearchUniversal), DefaultMaxResults)
	})
}

func TestSearch_KindDoesNotChangeResults(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{
		textDataset("a.txt", "mail ann@example.com\nip 10.0.0.1"),
		tableDataset("p.csv", peopleColumns, core.Row{{Column: "name", Value: "ann@example.com"}, {Column: "phone", Value: "10.0.0.1"}, {Column: "age", Value: "1"}}),
	}}
	s := newSearcher(t, src, emptyIndex{}, loadingModel())

	want := s.Search(context.Background(), "10.0", core.SearchUniversal)
	for _, k := range core.SearchKinds {
		assert.Equal(t, want, s.Search(context.Background(), "10.0", k), k)
	}
}

func TestSearch_Semantic(t *testing.T) {
	emb := mock.NewMockEmbedder()
	model := readyModel(t, emb)
	idx, err := index.New(model)
	require.NoError(t, err)
	defer idx.Close()

	people := tableDataset("people.csv", peopleColumns,
		core.Row{{Column: "name", Value: "Ann"}, {Column: "phone", Value: "Oslo"}, {Column: "age", Value: "1"}},
		core.Row{{Column: "name", Value: "Bob"}, {Column: "phone", Value: "Rome"}, {Column: "age", Value: "2"}},
	)
	require.NoError(t, idx.IndexDataset(context.Background(), people))

	src := &staticSource{datasets: []*core.Dataset{people}}
	s := newSearcher(t, src, idx, model)

	results := s.Search(context.Background(), "Ann Oslo", core.SearchUniversal)
	require.Len(t, results, 1)
	assert.Equal(t, core.OriginSemantic, results[0].Origin)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.Equal(t, people.Table.Rows[0], results[0].Payload)
}

func TestSearch_LexicalWinsDedupOverSemantic(t *testing.T) {
	model := readyModel(t, mock.NewMockEmbedder())
	idx, err := index.New(model)
	require.NoError(t, err)
	defer idx.Close()

	cols := []core.Column{{Name: "name", Text: true}}
	people := tableDataset("people.csv", cols, core.Row{{Column: "name", Value: "Ann"}})
	require.NoError(t, idx.IndexDataset(context.Background(), people))

	s := newSearcher(t, &staticSource{datasets: []*core.Dataset{people}}, idx, model)
	results := s.Search(context.Background(), "Ann", core.SearchUniversal)
	require.Len(t, results, 1)
	assert.Equal(t, core.OriginTable, results[0].Origin)
	assert.Equal(t, TableScore, results[0].Score)
}

func TestSearch_ModelNotReadySkipsSemantic(t *testing.T) {
	people := tableDataset("people.csv", peopleColumns, core.Row{{Column: "name", Value: "Ann"}, {Column: "phone", Value: "1"}, {Column: "age", Value: "1"}})
	s := newSearcher(t, &staticSource{datasets: []*core.Dataset{people}}, fixedIndex{{1, 0}}, loadingModel())

	stats := NewStatsMonitor()
	results := s.SearchWithMonitor(context.Background(), "zzz", core.SearchUniversal, stats)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.Snapshot().SemanticHits)
}

func TestSearch_QueryEmbeddingFailureSkipsSemantic(t *testing.T) {
	emb := mock.NewMockEmbedder()
	emb.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, fmt.Errorf("service down")
	}
	people := tableDataset("people.csv", peopleColumns, core.Row{{Column: "name", Value: "Ann"}, {Column: "phone", Value: "1"}, {Column: "age", Value: "1"}})
	s := newSearcher(t, &staticSource{datasets: []*core.Dataset{people}}, fixedIndex{{1, 0}}, readyModel(t, emb))

	results := s.Search(context.Background(), "ann", core.SearchUniversal)
	require.Len(t, results, 1)
	assert.Equal(t, core.OriginTable, results[0].Origin)
}

func TestSearch_ThresholdMonotonic(t *testing.T) {
	emb := tableEmbedder{
		"query": {1, 0},
		"near":  {0.9, 0.436},
		"mid":   {0.5, 0.866},
		"far":   {0, 1},
	}
	model := readyModel(t, emb)
	cols := []core.Column{{Name: "w", Text: true}}
	ds := tableDataset("w.csv", cols, core.Row{{Column: "w", Value: "near"}}, core.Row{{Column: "w", Value: "mid"}}, core.Row{{Column: "w", Value: "far"}})

	idx, err := index.New(model, index.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.IndexDataset(context.Background(), ds))
	src := &staticSource{datasets: []*core.Dataset{ds}}

	count := func(threshold float32) int {
		s := newSearcher(t, src, idx, model, WithThreshold(threshold))
		return len(s.Search(context.Background(), "query", core.SearchUniversal))
	}

	assert.Equal(t, 2, count(DefaultThreshold))
	assert.Equal(t, 1, count(0.6))
	assert.Equal(t, 0, count(0.95))
	assert.Equal(t, 3, count(-0.1))
}

func TestSearch_SemanticCap(t *testing.T) {
	cols := []core.Column{{Name: "w", Text: true}}
	var rows []core.Row
	var vectors [][]float32
	for i := range 10 {
		rows = append(rows, core.Row{{Column: "w", Value: fmt.Sprintf("r%d", i)}})
		vectors = append(vectors, []float32{1, 0})
	}
	ds := tableDataset("w.csv", cols, rows...)
	model := readyModel(t, tableEmbedder{"q": {1, 0}})

	s := newSearcher(t, &staticSource{datasets: []*core.Dataset{ds, ds}}, fixedIndex(vectors), model, WithMaxResults(4))
	results := s.Search(context.Background(), "q", core.SearchUniversal)
	assert.Len(t, results, 4)
}

func TestSearch_BrokenIndexEntryIsSkipped(t *testing.T) {
	cols := []core.Column{{Name: "w", Text: true}}
	broken := tableDataset("broken.csv", cols, core.Row{{Column: "w", Value: "a"}})
	notes := textDataset("notes.txt", "q here")
	model := readyModel(t, tableEmbedder{"q": {1, 0}})

	// Two vectors for one row: indexing past the rows panics inside the
	// dataset scan.
	s := newSearcher(t, &staticSource{datasets: []*core.Dataset{broken, notes}}, fixedIndex{{1, 0}, {1, 0}}, model)
	results := s.Search(context.Background(), "q", core.SearchUniversal)

	require.Len(t, results, 1)
	assert.Equal(t, "notes.txt", results[0].Source)
}

func TestSearch_StatsMonitor(t *testing.T) {
	src := &staticSource{datasets: []*core.Dataset{textDataset("a.txt", "ann\nbob")}}
	stats := NewStatsMonitor()
	s := newSearcher(t, src, emptyIndex{}, loadingModel(), WithMonitor(stats))

	s.Search(context.Background(), "ann", core.SearchUniversal)
	s.Search(context.Background(), "555", core.SearchPhone)
	s.Search(context.Background(), "", core.SearchEmail)

	snap := stats.Snapshot()
	assert.Equal(t, 2, snap.Queries, "empty queries are not counted")
	assert.Equal(t, 1, snap.ByKind[core.SearchUniversal])
	assert.Equal(t, 1, snap.ByKind[core.SearchPhone])
	assert.Equal(t, 1, snap.LexicalHits)
	assert.Equal(t, 1, snap.Empty)

	snap.ByKind[core.SearchIP] = 99
	assert.Zero(t, stats.Snapshot().ByKind[core.SearchIP], "snapshot is a copy")
}
