// Package dataset loads the files under a data directory into memory.
//
// Supported formats are CSV, XLSX, XLS, JSON and plain text. Tabular files
// become core.Table values with string cells; JSON arrays of objects are
// flattened into tables and every other JSON value is kept as a document.
//
// A Store mirrors the directory. LoadAll re-reads everything and swaps the
// result in at once, so concurrent searches see either the old or the new
// set of datasets:
//
//	store, err := dataset.NewStore("./data", dataset.WithPoolSize(4))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.LoadAll(ctx); err != nil {
//	    return err
//	}
//	store.View(func(datasets []*core.Dataset) {
//	    // read-only access
//	})
package dataset
