package badger

import (
	"github.com/poiesic/omnisearch/core"
	"github.com/poiesic/omnisearch/storage"
)

// Key prefixes for different data types
const (
	vectorPrefix = "vec:"
)

// makeVectorKey generates a key for a cached vector by content ID.
// Format: prefix + 8 byte big-endian ID
func makeVectorKey(id core.ID) []byte {
	buf := make([]byte, 0, len(vectorPrefix)+8)
	buf = append(buf, vectorPrefix...)
	return append(buf, storage.MarshalID(id)...)
}
