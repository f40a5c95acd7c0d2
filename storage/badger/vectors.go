package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/omnisearch/core"
	"github.com/poiesic/omnisearch/storage"
)

// VectorCache implements storage.VectorCache for BadgerDB.
type VectorCache struct {
	backend *Backend
	owned   bool
}

var _ storage.VectorCache = (*VectorCache)(nil)

// NewVectorCache creates a vector cache on an open backend. The caller keeps
// ownership of the backend.
func NewVectorCache(backend *Backend) (*VectorCache, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	return &VectorCache{backend: backend}, nil
}

// OpenVectorCache opens a backend at dir (or in memory when dir is empty)
// and returns a cache that closes the backend on Close.
func OpenVectorCache(dir string) (*VectorCache, error) {
	backend, err := OpenBackend(dir, dir == "")
	if err != nil {
		return nil, err
	}
	return &VectorCache{backend: backend, owned: true}, nil
}

// GetVectors returns the cached vectors for ids. Missing IDs are skipped.
func (c *VectorCache) GetVectors(ctx context.Context, ids ...core.ID) (map[core.ID][]float32, error) {
	found := make(map[core.ID][]float32, len(ids))
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := tx.Get(makeVectorKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				vec, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				found[id] = vec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// PutVectors stores vectors, replacing existing entries.
func (c *VectorCache) PutVectors(ctx context.Context, vectors map[core.ID][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	return c.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for id, vec := range vectors {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeVectorKey(id), storage.MarshalVector(vec)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Retain deletes every cached vector whose ID is not in keep.
func (c *VectorCache) Retain(ctx context.Context, keep map[core.ID]struct{}) (int, error) {
	var stale [][]byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := iter.Item().KeyCopy(nil)
			id, err := storage.UnmarshalID(key[len(vectorPrefix):])
			if err != nil {
				return err
			}
			if _, ok := keep[id]; !ok {
				stale = append(stale, key)
			}
		}
		return nil
	}, false)
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	err = c.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, key := range stale {
			if err := wb.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Len counts the cached vectors.
func (c *VectorCache) Len(ctx context.Context) (int, error) {
	count := 0
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close closes the backend if the cache opened it.
func (c *VectorCache) Close() error {
	if c.owned {
		return c.backend.Close()
	}
	return nil
}
