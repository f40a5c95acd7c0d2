package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/omnisearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func source(t *testing.T, path string, data []byte) Source {
	t.Helper()
	encs, err := LookupEncodings(DefaultEncodings)
	require.NoError(t, err)
	return Source{Path: path, Data: data, Encodings: encs}
}

func TestLoadCSV(t *testing.T) {
	data := []byte("name,phone,empty\nAnn Lee,123,\nBob,456,\n")
	ds, err := LoadCSV(source(t, "people.csv", data))
	require.NoError(t, err)

	assert.Equal(t, core.KindTable, ds.Kind)
	require.NotNil(t, ds.Table)
	assert.Equal(t, []string{"name", "phone"}, ds.Table.TextColumns(), "all-empty column dropped")
	require.Len(t, ds.Table.Rows, 2)
	assert.Equal(t, `{"name": "Ann Lee", "phone": "123"}`, ds.Table.Rows[0].String())
}

func TestLoadCSV_FillsMissingCells(t *testing.T) {
	data := []byte("a,b\n1\n,2\n")
	ds, err := LoadCSV(source(t, "x.csv", data))
	require.NoError(t, err)
	require.Len(t, ds.Table.Rows, 2)

	v, ok := ds.Table.Rows[0].Get("b")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	v, _ = ds.Table.Rows[1].Get("a")
	assert.Equal(t, "", v)
}

func TestLoadCSV_SkipsWideRows(t *testing.T) {
	data := []byte("a,b\n1,2\n1,2,3\n4,5\n")
	ds, err := LoadCSV(source(t, "x.csv", data))
	require.NoError(t, err)
	assert.Len(t, ds.Table.Rows, 2)
}

func TestLoadCSV_DuplicateHeaders(t *testing.T) {
	data := []byte("a,a,\n1,2,3\n")
	ds, err := LoadCSV(source(t, "x.csv", data))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2"}, ds.Table.TextColumns())
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := LoadCSV(source(t, "x.csv", nil))
	assert.ErrorIs(t, err, ErrParse)
}

func TestLoadCSV_EncodingFallback(t *testing.T) {
	// "имя,город\nИван,Москва" in windows-1251
	data := []byte{
		0xe8, 0xec, 0xff, ',', 0xe3, 0xee, 0xf0, 0xee, 0xe4, '\n',
		0xc8, 0xe2, 0xe0, 0xed, ',', 0xcc, 0xee, 0xf1, 0xea, 0xe2, 0xe0, '\n',
	}
	ds, err := LoadCSV(source(t, "ru.csv", data))
	require.NoError(t, err)
	assert.Equal(t, []string{"имя", "город"}, ds.Table.TextColumns())
	v, _ := ds.Table.Rows[0].Get("город")
	assert.Equal(t, "Москва", v)
}

func TestLoadCSV_UTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name\nAnn\n")...)
	ds, err := LoadCSV(source(t, "x.csv", data))
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, ds.Table.TextColumns())
}

func TestLoadText(t *testing.T) {
	ds, err := LoadText(source(t, "notes.txt", []byte("line one\nline two\n")))
	require.NoError(t, err)
	assert.Equal(t, core.KindText, ds.Kind)
	assert.Equal(t, "line one\nline two\n", ds.Text)
}

func TestDecodeText_NoEncodingFits(t *testing.T) {
	utf8Only, err := LookupEncodings([]string{"utf-8"})
	require.NoError(t, err)
	_, _, err = decodeText([]byte{0xff, 0xfe, 0x00}, utf8Only)
	assert.ErrorIs(t, err, ErrUndetectableEncoding)
}

func TestLookupEncoding(t *testing.T) {
	enc, err := LookupEncoding("CP1251")
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", enc.Name)

	_, err = LookupEncoding("ebcdic")
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestLoadJSON_ArrayOfObjects(t *testing.T) {
	data := []byte(`[
		{"name": "Ann", "age": 30, "contact": {"email": "ann@example.com"}, "gone": null},
		{"name": "Bob", "contact": {"email": "bob@example.com", "phone": "555"}, "gone": null}
	]`)
	ds, err := LoadJSON(source(t, "people.json", data))
	require.NoError(t, err)
	assert.Equal(t, core.KindTable, ds.Kind)

	var names []string
	for _, c := range ds.Table.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"name", "age", "contact.email", "contact.phone"}, names)
	assert.Equal(t, []string{"name", "contact.email", "contact.phone"}, ds.Table.TextColumns())

	v, _ := ds.Table.Rows[0].Get("age")
	assert.Equal(t, "30", v)
	v, _ = ds.Table.Rows[1].Get("age")
	assert.Equal(t, "", v)
}

func TestLoadJSON_Document(t *testing.T) {
	data := []byte(`{"b": {"phone": "123"}, "a": [1, 2]}`)
	ds, err := LoadJSON(source(t, "doc.json", data))
	require.NoError(t, err)
	assert.Equal(t, core.KindDocument, ds.Kind)
	require.Len(t, ds.Document.Members, 2)
	assert.Equal(t, "b", ds.Document.Members[0].Key, "member order preserved")
}

func TestLoadJSON_MixedArrayIsDocument(t *testing.T) {
	ds, err := LoadJSON(source(t, "mixed.json", []byte(`[{"a": 1}, 2]`)))
	require.NoError(t, err)
	assert.Equal(t, core.KindDocument, ds.Kind)

	ds, err = LoadJSON(source(t, "empty.json", []byte(`[]`)))
	require.NoError(t, err)
	assert.Equal(t, core.KindDocument, ds.Kind)
}

func TestLoadJSON_Invalid(t *testing.T) {
	for _, data := range []string{`{"a": }`, `{"a": 1} {"b": 2}`, ``} {
		_, err := LoadJSON(source(t, "bad.json", []byte(data)))
		assert.ErrorIs(t, err, ErrParse, data)
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"name", "phone", "blank"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Ann", "123"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Bob", 456}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	ds, err := LoadXLSX(source(t, path, data))
	require.NoError(t, err)

	assert.Equal(t, core.KindTable, ds.Kind)
	assert.Equal(t, []string{"name", "phone"}, ds.Table.TextColumns())
	require.Len(t, ds.Table.Rows, 2)
	v, _ := ds.Table.Rows[1].Get("phone")
	assert.Equal(t, "456", v)
}

func TestLoadXLSX_Garbage(t *testing.T) {
	_, err := LoadXLSX(source(t, "bad.xlsx", []byte("not a zip")))
	assert.ErrorIs(t, err, ErrParse)
}

func TestLoadXLS(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "table.xls"))
	require.NoError(t, err)

	ds, err := LoadXLS(source(t, "table.xls", data))
	require.NoError(t, err)
	require.NoError(t, core.ValidateTable(ds.Table))

	assert.Equal(t, core.KindTable, ds.Kind)
	assert.Equal(t, []string{"Code", "Name", "Description"}, ds.Table.TextColumns())
	require.Len(t, ds.Table.Rows, 11)
	assert.Equal(t, `{"Code": "code1", "Name": "name1", "Description": "description1"}`, ds.Table.Rows[0].String())
	assert.Equal(t, `{"Code": "code11", "Name": "name11", "Description": "description11"}`, ds.Table.Rows[10].String())
}

func TestLoadXLS_Garbage(t *testing.T) {
	_, err := LoadXLS(source(t, "bad.xls", []byte("not a workbook")))
	assert.ErrorIs(t, err, ErrParse)
}
