package store

import (
	"context"

	"github.com/dhstore/dhstore/hash"
)

// GetBlob returns the content of blob id, if present.
func (s *Store) GetBlob(id hash.Hash) ([]byte, bool, error) {
	return s.blobs.Get(context.Background(), id)
}

// Root returns the store's current root configuration digest.
func (s *Store) Root() hash.Hash {
	return s.idx.Root()
}

// Stats reports the object count, blob count, and total blob bytes
// currently in the store, for the CLI's stat subcommand.
func (s *Store) Stats() (objects int, blobs int, blobBytes int64) {
	ctx := context.Background()
	s.blobs.List(ctx, func(id hash.Hash) error {
		blobs++
		if size, ok, err := s.blobs.Stat(ctx, id); err == nil && ok {
			blobBytes += size
		}
		return nil
	})
	objects = s.idx.Count()
	return objects, blobs, blobBytes
}
