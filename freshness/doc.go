// Package freshness keeps the dataset store synchronized with the data
// directory.
//
// The Monitor polls: every check interval it rehashes the files that are
// currently loaded and triggers a full reload when any changed or vanished.
// A second loop re-embeds tables on a longer interval once the embedding
// model is ready. With WithWatch, filesystem events on supported files
// also trigger a debounced reload, which is how newly added files are
// picked up between polls.
package freshness
